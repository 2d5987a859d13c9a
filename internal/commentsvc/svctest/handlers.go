package svctest

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

// handleVote handles POST /news/comment/{id}/vote/{action}/
func (s *Server) handleVote(w http.ResponseWriter, r *http.Request) {
	if err := s.hook(OpVote, chi.URLParam(r, "commentID")); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.lookup(r, "commentID")
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if c.Deleted {
		writeError(w, http.StatusBadRequest, "Cannot vote on a deleted comment.")
		return
	}

	switch chi.URLParam(r, "action") {
	case "upvote":
		vote(c, s.User, true)
	case "downvote":
		vote(c, s.User, false)
	default:
		writeError(w, http.StatusBadRequest, "Invalid vote action.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"upvotes":   len(c.Upvotes),
		"downvotes": len(c.Downvotes),
	})
}

// handleReply handles POST /news/article/{aid}/comment/{pid}/reply/
func (s *Server) handleReply(w http.ResponseWriter, r *http.Request) {
	if err := s.hook(OpReply, chi.URLParam(r, "parentID")); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	parent, err := s.lookup(r, "parentID")
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	articleID := chi.URLParam(r, "articleID")
	if parent.ArticleID != articleID {
		writeError(w, http.StatusBadRequest, "Parent comment must belong to the same article.")
		return
	}
	if parent.Deleted {
		writeError(w, http.StatusBadRequest, "Cannot reply to a deleted comment.")
		return
	}
	content := strings.TrimSpace(r.PostFormValue("content"))
	if content == "" {
		writeError(w, http.StatusBadRequest, "Reply content cannot be empty.")
		return
	}

	c := s.insert(articleID, s.User, content, parent.ID)
	writeJSON(w, http.StatusOK, s.created(c))
}

// handleComment handles POST /news/article/{aid}/comment/
func (s *Server) handleComment(w http.ResponseWriter, r *http.Request) {
	if err := s.hook(OpComment, ""); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	content := strings.TrimSpace(r.PostFormValue("content"))
	if content == "" {
		writeError(w, http.StatusBadRequest, "Comment cannot be empty.")
		return
	}

	c := s.insert(chi.URLParam(r, "articleID"), s.User, content, 0)
	writeJSON(w, http.StatusOK, s.created(c))
}

// handleEdit handles POST /news/comment/{id}/edit/
func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	if err := s.hook(OpEdit, chi.URLParam(r, "commentID")); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.lookup(r, "commentID")
	if err != nil || c.Author != s.User {
		writeError(w, http.StatusNotFound, errNotFound.Error())
		return
	}
	if c.Deleted {
		writeError(w, http.StatusBadRequest, "Cannot edit a deleted comment.")
		return
	}
	content := strings.TrimSpace(r.PostFormValue("content"))
	if content == "" {
		writeError(w, http.StatusBadRequest, "Comment cannot be empty.")
		return
	}

	c.Content = content
	writeJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"comment_id":      c.ID,
		"updated_content": c.Content,
		"updated_at":      s.now().Format("Jan 02, 2006 03:04 PM"),
	})
}

// handleDelete handles POST /news/comment/{id}/delete/
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.hook(OpDelete, chi.URLParam(r, "commentID")); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.lookup(r, "commentID")
	if err != nil || c.Author != s.User {
		writeError(w, http.StatusNotFound, errNotFound.Error())
		return
	}

	c.Deleted = true
	c.Content = "[Deleted]"
	c.Author = ""
	c.Upvotes = make(map[string]bool)
	c.Downvotes = make(map[string]bool)

	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"comment_id":    c.ID,
		"deleted":       true,
		"comment_count": s.count(c.ArticleID),
	})
}

// handleReport handles POST /news/comment/{id}/report/
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if err := s.hook(OpReport, chi.URLParam(r, "commentID")); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.lookup(r, "commentID")
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	c.Reported = true
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"comment_id": strconv.Itoa(c.ID),
	})
}
