package svctest

import (
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"
	"golang.org/x/net/html"

	"github.com/alphabot-ai/commentthread/internal/commentsvc"
	"github.com/alphabot-ai/commentthread/internal/dom"
	"github.com/alphabot-ai/commentthread/internal/thread"
	"github.com/alphabot-ai/commentthread/internal/view"
)

// handleArticle handles GET /news/article/{aid}/ by rendering the page the
// way the site's template does, and sets the CSRF cookie.
func (s *Server) handleArticle(w http.ResponseWriter, r *http.Request) {
	articleID := chi.URLParam(r, "articleID")
	mode := thread.ParseSortMode(r.URL.Query().Get("sort"))

	s.mu.Lock()
	page := s.renderPage(articleID, mode)
	s.mu.Unlock()

	http.SetCookie(w, &http.Cookie{Name: commentsvc.CSRFCookie, Value: s.CSRFToken, Path: "/"})
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	html.Render(w, page)
}

func (s *Server) renderPage(articleID string, mode thread.SortMode) *html.Node {
	comments := s.ordered(articleID)
	children := make(map[int]int)
	for _, c := range comments {
		if c.ParentID != 0 {
			children[c.ParentID]++
		}
	}

	var roots []*Comment
	for _, c := range comments {
		if c.ParentID == 0 {
			roots = append(roots, c)
		}
	}
	switch mode {
	case thread.SortNewest:
		sort.SliceStable(roots, func(i, j int) bool { return roots[i].ID > roots[j].ID })
	case thread.SortMostUpvoted:
		sort.SliceStable(roots, func(i, j int) bool { return len(roots[i].Upvotes) > len(roots[j].Upvotes) })
	}

	viewer := view.Viewer{Authenticated: s.User != ""}
	list := dom.Element("div", "id", "comments-list")
	nodes := make(map[int]*html.Node)
	levels := make(map[int]int)

	render := func(c *Comment) *html.Node {
		level := 0
		if c.ParentID != 0 {
			level = levels[c.ParentID] + 1
		}
		levels[c.ID] = level
		tc := &thread.Comment{
			ID:              strconv.Itoa(c.ID),
			Author:          c.Author,
			CreatedAt:       c.CreatedAt,
			Content:         c.Content,
			Tally:           thread.Tally{Upvotes: len(c.Upvotes), Downvotes: len(c.Downvotes)},
			IsOwner:         c.Author != "" && c.Author == s.User,
			IsDeleted:       c.Deleted,
			ChildrenVisible: true,
		}
		if c.ParentID != 0 {
			tc.ParentID = strconv.Itoa(c.ParentID)
		}
		n := view.Comment(tc, view.Meta{Level: level, Children: children[c.ID], Reported: c.Reported}, viewer)
		nodes[c.ID] = n
		return n
	}

	for _, c := range roots {
		dom.Append(list, render(c))
	}
	// Replies are appended in creation order, which always follows their parent.
	for _, c := range comments {
		if c.ParentID == 0 {
			continue
		}
		parent, ok := nodes[c.ParentID]
		if !ok {
			continue
		}
		dom.Append(view.Replies(parent, strconv.Itoa(c.ParentID)), render(c))
	}
	if len(comments) == 0 {
		dom.Append(list, dom.Append(dom.Element("p", "id", "no-comments-msg"), dom.TextNode("No comments yet.")))
	}

	body := dom.Append(dom.Element("body"),
		dom.Append(dom.Element("div", "class", "article-detail", "data-article-id", articleID),
			dom.Append(dom.Element("h3"),
				dom.TextNode("Comments ("),
				dom.Append(dom.Element("span", "id", "comment-count"), dom.TextNode(strconv.Itoa(s.count(articleID)))),
				dom.TextNode(")"),
			),
			dom.Append(dom.Element("form", "id", "comment-form", "action", "/news/article/"+articleID+"/comment/"),
				dom.Element("textarea", "name", "content", "rows", "3"),
				dom.Append(dom.Element("button", "type", "submit", "class", "btn btn-primary submit-comment"), dom.TextNode("Post")),
			),
			list,
		),
	)
	return dom.Append(dom.Element("html"), dom.Append(dom.Element("head"), dom.Append(dom.Element("title"), dom.TextNode("Article"))), body)
}
