package view

import (
	"strconv"
	"strings"
	"time"

	"github.com/alphabot-ai/commentthread/internal/dom"
	"github.com/alphabot-ai/commentthread/internal/thread"
	"golang.org/x/net/html"
)

// Hydrate reads server-rendered comment blocks under root in document order,
// so every parent precedes its replies. Parents come from nesting, not from
// data attributes. Missing ids, levels and toggle attributes are filled in.
func Hydrate(root *html.Node) []*thread.Comment {
	var out []*thread.Comment
	var walk func(n *html.Node, parentID string, level int)
	walk = func(n *html.Node, parentID string, level int) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			if !dom.HasClass(c, ClassComment) {
				walk(c, parentID, level)
				continue
			}
			id := dom.Attr(c, "data-comment-id")
			if id == "" {
				id = strings.TrimPrefix(dom.Attr(c, "id"), "comment-")
			}
			if id == "" {
				continue
			}
			out = append(out, read(c, id, parentID, level))
			if replies := Replies(c, id); replies != nil {
				walk(replies, id, level+1)
			}
		}
	}
	walk(root, "", 0)
	return out
}

func read(n *html.Node, id, parentID string, level int) *thread.Comment {
	dom.SetAttr(n, "id", CommentID(id))
	dom.SetAttr(n, "data-comment-id", id)
	dom.SetAttr(n, "data-level", strconv.Itoa(level))
	if parentID != "" {
		dom.SetAttr(n, "data-parent-id", parentID)
	}

	c := &thread.Comment{
		ID:        id,
		ParentID:  parentID,
		IsDeleted: dom.HasClass(n, ClassDeleted) || dom.Attr(n, "data-deleted") == "true",
		IsOwner:   Own(n, ClassEdit) != nil || Own(n, ClassDelete) != nil,
	}
	if info := Own(n, "my-comment-user-info"); info != nil {
		c.Author = strings.TrimSpace(dom.Text(dom.Find(info, func(e *html.Node) bool { return e.Data == "strong" })))
		c.CreatedAt = ParseDate(dom.Text(Own(info, "my-comment-date")))
	}
	if !c.IsDeleted {
		c.Content = strings.TrimSpace(dom.Text(BodyText(n)))
	}
	c.Tally.Upvotes = atoi(dom.Text(Own(n, ClassUpvoteCount)))
	c.Tally.Downvotes = atoi(dom.Text(Own(n, ClassDownvoteCount)))

	replies := Replies(n, id)
	c.ChildrenVisible = replies == nil || !dom.IsHidden(replies)
	if replies == nil {
		replies = dom.Element("div", "class", ClassReplies, "id", RepliesID(id), "data-comment-id", id)
		dom.Append(n, replies)
	}
	if btn := Own(n, ClassToggle); btn != nil && dom.Attr(btn, "data-comment-id") == "" {
		dom.SetAttr(btn, "data-comment-id", id)
	}
	return c
}

// ParseDate reads a comment timestamp in any of the formats the server emits.
// Unknown formats give the zero time.
func ParseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range []string{DateLayout, time.RFC3339, "Jan 02, 2006 03:04 PM"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func atoi(s string) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || v < 0 {
		return 0
	}
	return v
}
