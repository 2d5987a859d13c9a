// Package svctest runs an in-memory implementation of the site's comment
// endpoints for tests and local sessions.
package svctest

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/alphabot-ai/commentthread/internal/commentsvc"
)

// Op names the endpoint a hook is called for.
type Op string

const (
	OpVote    Op = "vote"
	OpReply   Op = "reply"
	OpComment Op = "comment"
	OpEdit    Op = "edit"
	OpDelete  Op = "delete"
	OpReport  Op = "report"
)

// Hook runs before an endpoint mutates anything. Returning an error turns the
// call into a success=false response carrying the error text. Hooks may block.
type Hook func(op Op, commentID string) error

// Comment is the server-side record.
type Comment struct {
	ID        int
	ArticleID string
	ParentID  int
	Author    string
	Content   string
	CreatedAt time.Time
	Deleted   bool
	Reported  bool
	Upvotes   map[string]bool
	Downvotes map[string]bool
}

// Server is an in-memory comment service.
type Server struct {
	mu       sync.Mutex
	comments map[int]*Comment
	nextID   int
	now      func() time.Time

	// User is who the requests are made as. Empty means anonymous.
	User string
	// CSRFToken is the value set in the csrftoken cookie and required on every POST.
	CSRFToken string
	Hook      Hook
	// Logger receives one debug entry per request. Nil disables request logging.
	Logger logrus.FieldLogger

	router chi.Router
}

// New creates a server with a logged-in user and a random CSRF token.
func New() *Server {
	s := &Server{
		comments:  make(map[int]*Comment),
		nextID:    1,
		now:       func() time.Time { return time.Now().UTC() },
		User:      "alice",
		CSRFToken: strings.ReplaceAll(uuid.New().String(), "-", ""),
	}
	s.router = s.routes()
	return s
}

// Start serves s on a local listener. Close the returned server when done.
func (s *Server) Start() *httptest.Server {
	return httptest.NewServer(s)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(s.logRequests)
	r.Get("/news/article/{articleID}/", s.handleArticle)
	r.Group(func(r chi.Router) {
		r.Use(s.requireAjax)
		r.Post("/news/comment/{commentID}/vote/{action}/", s.handleVote)
		r.Post("/news/article/{articleID}/comment/{parentID}/reply/", s.handleReply)
		r.Post("/news/article/{articleID}/comment/", s.handleComment)
		r.Post("/news/comment/{commentID}/edit/", s.handleEdit)
		r.Post("/news/comment/{commentID}/delete/", s.handleDelete)
		r.Post("/news/comment/{commentID}/report/", s.handleReport)
	})
	return r
}

// Seed stores a comment directly and returns its id.
func (s *Server) Seed(articleID, author, content, parentID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	parent, _ := strconv.Atoi(parentID)
	c := s.insert(articleID, author, content, parent)
	return strconv.Itoa(c.ID)
}

// Get returns a copy of a stored comment.
func (s *Server) Get(id string) (Comment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, _ := strconv.Atoi(id)
	c, ok := s.comments[n]
	if !ok {
		return Comment{}, false
	}
	return *c, true
}

// CastVote records a vote from another user, as a concurrent tab would.
func (s *Server) CastVote(id, user string, up bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, _ := strconv.Atoi(id)
	if c, ok := s.comments[n]; ok {
		vote(c, user, up)
	}
}

func (s *Server) insert(articleID, author, content string, parent int) *Comment {
	c := &Comment{
		ID:        s.nextID,
		ArticleID: articleID,
		ParentID:  parent,
		Author:    author,
		Content:   content,
		CreatedAt: s.now(),
		Upvotes:   make(map[string]bool),
		Downvotes: make(map[string]bool),
	}
	s.comments[c.ID] = c
	s.nextID++
	return c
}

// count includes soft-deleted comments, as the site does.
func (s *Server) count(articleID string) int {
	n := 0
	for _, c := range s.comments {
		if c.ArticleID == articleID {
			n++
		}
	}
	return n
}

func (s *Server) ordered(articleID string) []*Comment {
	var out []*Comment
	for _, c := range s.comments {
		if c.ArticleID == articleID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Server) hook(op Op, id string) error {
	if s.Hook == nil {
		return nil
	}
	return s.Hook(op, id)
}

func vote(c *Comment, user string, up bool) {
	if up {
		c.Upvotes[user] = true
		delete(c.Downvotes, user)
		return
	}
	c.Downvotes[user] = true
	delete(c.Upvotes, user)
}

// Middleware

func (s *Server) requireAjax(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.User == "" {
			http.Redirect(w, r, "/accounts/login/?next="+r.URL.Path, http.StatusFound)
			return
		}
		cookie, err := r.Cookie(commentsvc.CSRFCookie)
		token := r.Header.Get("X-CSRFToken")
		if err != nil || cookie.Value != s.CSRFToken || token != s.CSRFToken {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte("<h1>Forbidden (403)</h1><p>CSRF verification failed.</p>"))
			return
		}
		if r.Header.Get("X-Requested-With") != "XMLHttpRequest" {
			http.Redirect(w, r, r.URL.Path, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// logRequests logs every request with the id the client sent, if any.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.Logger != nil {
			s.Logger.WithFields(logrus.Fields{
				"request_id": r.Header.Get("X-Request-Id"),
				"method":     r.Method,
				"path":       r.URL.Path,
			}).Debug("request")
		}
		next.ServeHTTP(w, r)
	})
}

// Response helpers

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"success": false, "error": message})
}

var errNotFound = errors.New("comment not found")

func (s *Server) lookup(r *http.Request, param string) (*Comment, error) {
	id, err := strconv.Atoi(chi.URLParam(r, param))
	if err != nil {
		return nil, errNotFound
	}
	c, ok := s.comments[id]
	if !ok {
		return nil, errNotFound
	}
	return c, nil
}

func (s *Server) created(c *Comment) map[string]any {
	var parent any
	if c.ParentID != 0 {
		parent = c.ParentID
	}
	return map[string]any{
		"success":           true,
		"comment_id":        c.ID,
		"username":          c.Author,
		"content":           c.Content,
		"created_at":        c.CreatedAt.Format("2006-01-02 15:04:05"),
		"parent_comment_id": parent,
		"is_owner":          c.Author == s.User,
		"comment_count":     s.count(c.ArticleID),
	}
}
