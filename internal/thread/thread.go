package thread

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrParentNotFound   = errors.New("parent comment not found")
	ErrDuplicateComment = errors.New("comment already in thread")
	ErrEmptyID          = errors.New("comment id is required")
	ErrNegativeTally    = errors.New("vote tally cannot be negative")
)

// Tally is the server-confirmed vote count for a comment.
type Tally struct {
	Upvotes   int `json:"upvotes"`
	Downvotes int `json:"downvotes"`
}

// Comment is one node of a thread. Only ChildrenVisible is client-side state;
// every other field mirrors something the server confirmed.
type Comment struct {
	ID              string    `json:"id"`
	ParentID        string    `json:"parent_id,omitempty"`
	Author          string    `json:"author"`
	CreatedAt       time.Time `json:"created_at"`
	Content         string    `json:"content"`
	Tally           Tally     `json:"tally"`
	IsOwner         bool      `json:"is_owner"`
	IsDeleted       bool      `json:"is_deleted"`
	ChildrenVisible bool      `json:"-"`

	children []string
}

// Thread is the comment tree attached to one article.
type Thread struct {
	articleID string
	sort      SortMode
	roots     []string
	byID      map[string]*Comment
}

// New creates an empty thread.
func New(articleID string, sort SortMode) *Thread {
	return &Thread{
		articleID: articleID,
		sort:      sort,
		byID:      make(map[string]*Comment),
	}
}

func (t *Thread) ArticleID() string { return t.articleID }

func (t *Thread) Sort() SortMode { return t.sort }

// Len returns the number of comments in the thread, including deleted ones.
func (t *Thread) Len() int { return len(t.byID) }

// Insert adds a comment to the thread. Replies go to the tail of their
// parent's children; top-level comments follow the thread's sort mode.
func (t *Thread) Insert(c *Comment) error {
	return t.insert(c, t.sort == SortNewest)
}

// Load adds comments that are already on display, in display order. Every
// parent must come before its replies.
func (t *Thread) Load(comments []*Comment) error {
	for _, c := range comments {
		if err := t.insert(c, false); err != nil {
			return fmt.Errorf("loading comment %s: %w", c.ID, err)
		}
	}
	return nil
}

func (t *Thread) insert(c *Comment, prepend bool) error {
	if c.ID == "" {
		return ErrEmptyID
	}
	if _, ok := t.byID[c.ID]; ok {
		return ErrDuplicateComment
	}
	if c.Tally.Upvotes < 0 || c.Tally.Downvotes < 0 {
		return ErrNegativeTally
	}

	if c.ParentID != "" {
		parent, ok := t.byID[c.ParentID]
		if !ok {
			return ErrParentNotFound
		}
		parent.children = append(parent.children, c.ID)
	} else if prepend {
		t.roots = append([]string{c.ID}, t.roots...)
	} else {
		t.roots = append(t.roots, c.ID)
	}

	c.children = nil
	t.byID[c.ID] = c
	return nil
}

// Get returns the comment with the given id.
func (t *Thread) Get(id string) (*Comment, bool) {
	c, ok := t.byID[id]
	return c, ok
}

// Roots returns the top-level comments in display order.
func (t *Thread) Roots() []*Comment {
	return t.resolve(t.roots)
}

// All returns every comment depth first in display order.
func (t *Thread) All() []*Comment {
	out := make([]*Comment, 0, len(t.byID))
	var walk func(ids []string)
	walk = func(ids []string) {
		for _, c := range t.resolve(ids) {
			out = append(out, c)
			walk(c.children)
		}
	}
	walk(t.roots)
	return out
}

// Children returns the direct replies of a comment in chronological order.
func (t *Thread) Children(id string) []*Comment {
	c, ok := t.byID[id]
	if !ok {
		return nil
	}
	return t.resolve(c.children)
}

// ChildCount returns the number of direct replies of a comment.
func (t *Thread) ChildCount(id string) int {
	if c, ok := t.byID[id]; ok {
		return len(c.children)
	}
	return 0
}

// Level returns the nesting depth of a comment: 0 for top level, parent+1 otherwise.
// Unknown ids report -1.
func (t *Thread) Level(id string) int {
	c, ok := t.byID[id]
	if !ok {
		return -1
	}
	level := 0
	for c.ParentID != "" {
		c = t.byID[c.ParentID]
		level++
	}
	return level
}

// SetTally overwrites the tally of a comment with server-confirmed values.
func (t *Thread) SetTally(id string, tally Tally) error {
	if tally.Upvotes < 0 || tally.Downvotes < 0 {
		return ErrNegativeTally
	}
	c, ok := t.byID[id]
	if !ok {
		return nil
	}
	c.Tally = tally
	return nil
}

// SetContent replaces the content of a comment. Deleted comments keep their tombstone.
func (t *Thread) SetContent(id, content string) bool {
	c, ok := t.byID[id]
	if !ok || c.IsDeleted {
		return false
	}
	c.Content = content
	return true
}

// MarkDeleted soft-deletes a comment. It reports whether the state changed.
func (t *Thread) MarkDeleted(id string) bool {
	c, ok := t.byID[id]
	if !ok || c.IsDeleted {
		return false
	}
	c.IsDeleted = true
	c.Content = ""
	return true
}

// SetChildrenVisible records the reply container visibility of a comment.
func (t *Thread) SetChildrenVisible(id string, visible bool) bool {
	c, ok := t.byID[id]
	if !ok {
		return false
	}
	c.ChildrenVisible = visible
	return true
}

// ToggleChildren flips the reply container visibility and returns the new state.
func (t *Thread) ToggleChildren(id string) (visible bool, ok bool) {
	c, ok := t.byID[id]
	if !ok {
		return false, false
	}
	c.ChildrenVisible = !c.ChildrenVisible
	return c.ChildrenVisible, true
}

// Remove drops a comment and its whole subtree from the thread and returns
// the removed ids. Only the hard-delete mode uses it.
func (t *Thread) Remove(id string) []string {
	c, ok := t.byID[id]
	if !ok {
		return nil
	}

	if c.ParentID != "" {
		if parent, ok := t.byID[c.ParentID]; ok {
			parent.children = without(parent.children, id)
		}
	} else {
		t.roots = without(t.roots, id)
	}

	var removed []string
	var walk func(id string)
	walk = func(id string) {
		n, ok := t.byID[id]
		if !ok {
			return
		}
		for _, child := range n.children {
			walk(child)
		}
		delete(t.byID, id)
		removed = append(removed, id)
	}
	walk(id)
	return removed
}

func (t *Thread) resolve(ids []string) []*Comment {
	out := make([]*Comment, 0, len(ids))
	for _, id := range ids {
		if c, ok := t.byID[id]; ok {
			out = append(out, c)
		}
	}
	return out
}

func without(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
