package controller

import (
	"context"
	"fmt"

	"golang.org/x/net/html"

	"github.com/alphabot-ai/commentthread/internal/commentsvc"
	"github.com/alphabot-ai/commentthread/internal/dom"
	"github.com/alphabot-ai/commentthread/internal/view"
)

// Kind is what a gesture inside the thread asks for.
type Kind string

const (
	KindVote          Kind = "vote"
	KindReply         Kind = "reply"
	KindReport        Kind = "report"
	KindEdit          Kind = "edit"
	KindDelete        Kind = "delete"
	KindToggleReplies Kind = "toggleReplies"
	KindSubmitReply   Kind = "submitReply"
	KindCancelReply   Kind = "cancelReply"
	KindSaveEdit      Kind = "saveEdit"
	KindCancelEdit    Kind = "cancelEdit"
)

// Action is a dispatched gesture. Direction is only read for votes.
type Action struct {
	Kind      Kind
	Direction commentsvc.Direction
}

// controls maps the class of an action element to its kind. Order matters
// only for elements carrying several of these classes.
var controls = []struct {
	class string
	kind  Kind
	attr  string
}{
	{view.ClassVote, KindVote, "data-comment-id"},
	{view.ClassReply, KindReply, "data-parent-id"},
	{view.ClassEdit, KindEdit, "data-comment-id"},
	{view.ClassDelete, KindDelete, "data-comment-id"},
	{view.ClassReport, KindReport, "data-comment-id"},
	{view.ClassToggle, KindToggleReplies, "data-comment-id"},
	{view.ClassSubmitReply, KindSubmitReply, "data-parent-id"},
	{view.ClassCancelReply, KindCancelReply, "data-parent-id"},
	{view.ClassSaveEdit, KindSaveEdit, "data-comment-id"},
	{view.ClassCancelEdit, KindCancelEdit, "data-comment-id"},
}

// Click is the single delegated listener for the thread container. It finds
// the action element at or above target and dispatches it. Clicks outside the
// container, on plain content or on disabled controls are ignored.
func (c *Controller) Click(ctx context.Context, target *html.Node) error {
	c.mu.Lock()
	if err := c.ready(); err != nil {
		c.mu.Unlock()
		return err
	}
	if target == nil || !dom.Attached(c.root, target) {
		c.mu.Unlock()
		return nil
	}

	var kind Kind
	var attr string
	el := dom.Closest(target, c.root, func(n *html.Node) bool {
		for _, ctl := range controls {
			if dom.HasClass(n, ctl.class) {
				kind, attr = ctl.kind, ctl.attr
				return true
			}
		}
		return false
	})
	if el == nil || dom.IsDisabled(el) {
		c.mu.Unlock()
		return nil
	}

	id := dom.Attr(el, attr)
	if id == "" {
		if owner := dom.Closest(el, c.root, func(n *html.Node) bool { return dom.HasClass(n, view.ClassComment) }); owner != nil {
			id = dom.Attr(owner, "data-comment-id")
		}
	}
	action := Action{Kind: kind}
	if kind == KindVote {
		dir, err := commentsvc.ParseDirection(dom.Attr(el, "data-action"))
		if err != nil {
			c.mu.Unlock()
			return err
		}
		action.Direction = dir
	}
	c.mu.Unlock()

	return c.HandleAction(ctx, action, id, el)
}

// HandleAction performs one action on a comment. Each call is independent:
// a failure is reported to the user and returned, and never affects other
// actions in flight. Actions the viewer is not offered on the comment fail
// with ErrNotAllowed. target is the element that triggered it and may be nil.
func (c *Controller) HandleAction(ctx context.Context, a Action, commentID string, target *html.Node) error {
	switch a.Kind {
	case KindVote:
		return c.Vote(ctx, commentID, a.Direction)
	case KindReply:
		return c.ShowReplyForm(ctx, commentID)
	case KindCancelReply:
		return c.CancelReply(commentID)
	case KindSubmitReply:
		return c.SubmitReply(ctx, commentID, c.formContent(view.ReplyFormID(commentID)))
	case KindReport:
		return c.Report(ctx, commentID)
	case KindEdit:
		return c.ShowEditForm(commentID)
	case KindCancelEdit:
		return c.CancelEdit(commentID)
	case KindSaveEdit:
		return c.SaveEdit(ctx, commentID, c.formContent(view.EditFormID(commentID)))
	case KindDelete:
		return c.Delete(ctx, commentID)
	case KindToggleReplies:
		return c.Toggle(ctx, commentID)
	}
	return fmt.Errorf("unknown action %q", a.Kind)
}

func (c *Controller) formContent(formID string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.root == nil {
		return ""
	}
	return view.FormContent(dom.ByID(c.root, formID))
}
