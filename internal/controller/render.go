package controller

import (
	"fmt"

	"golang.org/x/net/html"

	"github.com/alphabot-ai/commentthread/internal/commentsvc"
	"github.com/alphabot-ai/commentthread/internal/dom"
	"github.com/alphabot-ai/commentthread/internal/thread"
	"github.com/alphabot-ai/commentthread/internal/view"
)

// Render inserts comments the server already confirmed, for example from a
// thread listing fetched after load. Parents must come before their replies.
// Comments already in the thread are skipped.
func (c *Controller) Render(comments []*thread.Comment) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ready(); err != nil {
		return err
	}

	touched := make(map[string]bool)
	for _, in := range comments {
		if _, ok := c.thread.Get(in.ID); ok {
			continue
		}
		cm := *in
		cm.ChildrenVisible = c.opts.RepliesVisible
		if saved, ok := c.toggles[cm.ID]; ok {
			cm.ChildrenVisible = saved
		}
		if err := c.insert(&cm); err != nil {
			return fmt.Errorf("rendering comment %s: %w", cm.ID, err)
		}
		if cm.ParentID != "" {
			touched[cm.ParentID] = true
		} else {
			dom.Remove(dom.ByID(c.doc, NoCommentsMsgID))
		}
	}

	for id := range touched {
		cm, ok := c.thread.Get(id)
		if !ok {
			continue
		}
		view.SyncToggle(c.comment(id), id, cm.ChildrenVisible)
	}
	view.Indent(c.root, c.opts.IndentStep)
	return nil
}

// insert adds cm to the model and places its markup. Replies go to the tail
// of their parent's container, top-level comments follow the sort mode.
func (c *Controller) insert(cm *thread.Comment) error {
	if err := c.thread.Insert(cm); err != nil {
		return err
	}
	meta := view.Meta{
		Level:    c.thread.Level(cm.ID),
		Reported: c.reported[cm.ID],
	}
	n := view.Comment(cm, meta, c.opts.Viewer)

	if cm.ParentID != "" {
		replies := view.Replies(c.comment(cm.ParentID), cm.ParentID)
		if replies == nil {
			c.thread.Remove(cm.ID)
			return thread.ErrParentNotFound
		}
		dom.Append(replies, n)
		return nil
	}
	c.placeRoot(cm.ID, n)
	return nil
}

// placeRoot puts a top-level comment next to its neighbour in the model's
// root order, falling back to the end of the container.
func (c *Controller) placeRoot(id string, n *html.Node) {
	roots := c.thread.Roots()
	for i, r := range roots {
		if r.ID != id {
			continue
		}
		if i+1 < len(roots) {
			if next := c.comment(roots[i+1].ID); next != nil {
				dom.InsertBefore(next, n)
				return
			}
		}
		if i > 0 {
			if prev := c.comment(roots[i-1].ID); prev != nil {
				dom.InsertAfter(prev, n)
				return
			}
		}
		break
	}
	dom.Append(c.root, n)
}

// fromCreated builds the model of a comment the server just created.
func (c *Controller) fromCreated(res *commentsvc.Created) *thread.Comment {
	cm := &thread.Comment{
		ID:              res.CommentID.String(),
		ParentID:        res.ParentID.String(),
		Author:          res.Author,
		CreatedAt:       view.ParseDate(res.CreatedAt),
		Content:         res.Content,
		IsOwner:         res.IsOwner,
		ChildrenVisible: true,
	}
	if cm.CreatedAt.IsZero() {
		cm.CreatedAt = c.now()
	}
	return cm
}
