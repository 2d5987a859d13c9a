package controller

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"

	"github.com/alphabot-ai/commentthread/internal/commentsvc"
	"github.com/alphabot-ai/commentthread/internal/dom"
	"github.com/alphabot-ai/commentthread/internal/notify"
	"github.com/alphabot-ai/commentthread/internal/thread"
	"github.com/alphabot-ai/commentthread/internal/view"
)

const (
	confirmDelete = "Are you sure you want to delete this comment?"
	confirmReport = "Are you sure you want to report this comment?"
)

// Vote

// Vote casts a vote and overwrites the displayed tally with the one the
// server returns. Votes are not debounced: whichever response is applied
// last is what the user sees.
func (c *Controller) Vote(ctx context.Context, id string, dir commentsvc.Direction) error {
	c.mu.Lock()
	err := c.ready()
	if err == nil {
		err = c.allow(id, thread.ActionVote)
	}
	c.mu.Unlock()
	if err != nil {
		return err
	}

	res, err := c.svc.Vote(ctx, id, dir)
	if err != nil {
		c.fail("vote", id, "Failed to vote.", err)
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.comment(id) == nil {
		c.gone("vote", id)
		return nil
	}
	tally := thread.Tally{Upvotes: res.Upvotes, Downvotes: res.Downvotes}
	if err := c.thread.SetTally(id, tally); err != nil {
		c.log.WithError(err).WithField("comment_id", id).Warn("ignoring vote response")
		return nil
	}
	view.SetTally(c.root, id, tally)
	return nil
}

// Reply

// ShowReplyForm opens the reply form for a parent, replacing any form still
// open for it. While a reply to the parent is in flight the open form is kept,
// and a reopened one starts with its submit disabled. The replies container is
// made visible so the form can be seen.
func (c *Controller) ShowReplyForm(ctx context.Context, parentID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ready(); err != nil {
		return err
	}
	n := c.comment(parentID)
	if n == nil {
		c.gone("reply", parentID)
		return nil
	}
	if err := c.allow(parentID, thread.ActionReply); err != nil {
		return err
	}

	replies := view.Replies(n, parentID)
	if replies == nil {
		return nil
	}
	open := dom.ByID(c.root, view.ReplyFormID(parentID))
	switch {
	case c.replying[parentID] && open != nil:
		// keep it, its submit is already held
	case c.replying[parentID]:
		form := view.ReplyForm(parentID)
		dom.SetDisabled(view.SubmitButton(form), true)
		dom.Prepend(replies, form)
	default:
		dom.Remove(open)
		dom.Prepend(replies, view.ReplyForm(parentID))
	}

	c.thread.SetChildrenVisible(parentID, true)
	view.SyncToggle(n, parentID, true)
	c.saveToggle(ctx, parentID, true)
	return nil
}

// CancelReply closes the reply form of a parent. Replies stay as they are.
func (c *Controller) CancelReply(parentID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ready(); err != nil {
		return err
	}
	dom.Remove(dom.ByID(c.root, view.ReplyFormID(parentID)))
	return nil
}

// SubmitReply posts a reply under parentID. Only one reply per parent is in
// flight at a time; a second submit while it runs is dropped. The form's
// submit control is disabled while the request runs and re-enabled afterwards
// whatever the outcome. On success the reply is appended at the tail of the
// parent's replies, the form is cleared and closed, the parent's toggle is
// synced and the comment count is taken from the response.
func (c *Controller) SubmitReply(ctx context.Context, parentID, content string) error {
	c.mu.Lock()
	if err := c.ready(); err != nil {
		c.mu.Unlock()
		return err
	}
	if err := c.allow(parentID, thread.ActionReply); err != nil {
		c.mu.Unlock()
		return err
	}
	if c.replying[parentID] {
		c.mu.Unlock()
		c.log.WithField("comment_id", parentID).Debug("reply already in flight, submit dropped")
		return nil
	}
	c.replying[parentID] = true
	dom.SetDisabled(view.SubmitButton(dom.ByID(c.root, view.ReplyFormID(parentID))), true)
	articleID := c.thread.ArticleID()
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.replying, parentID)
		// The form may have been closed and reopened in the meantime.
		dom.SetDisabled(view.SubmitButton(dom.ByID(c.root, view.ReplyFormID(parentID))), false)
	}()

	res, err := c.svc.Reply(ctx, articleID, parentID, content)
	if err != nil {
		c.fail("submitReply", parentID, "Failed to submit reply.", err)
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.setCount(res.CommentCount)

	parent := c.comment(parentID)
	if parent == nil {
		c.gone("submitReply", parentID)
		return nil
	}
	cm := c.fromCreated(res)
	cm.ParentID = parentID
	if err := c.insert(cm); err != nil {
		c.log.WithError(err).WithField("comment_id", cm.ID).Warn("dropping reply")
		return nil
	}

	if form := dom.ByID(c.root, view.ReplyFormID(parentID)); form != nil {
		view.SetFormContent(form, "")
		dom.Remove(form)
	}
	c.thread.SetChildrenVisible(parentID, true)
	view.SyncToggle(parent, parentID, true)
	c.saveToggle(ctx, parentID, true)
	view.Indent(c.root, c.opts.IndentStep)
	return nil
}

// SubmitComment posts a new top-level comment through the page's comment
// form. It is placed according to the thread's sort mode.
func (c *Controller) SubmitComment(ctx context.Context, content string) error {
	c.mu.Lock()
	if err := c.ready(); err != nil {
		c.mu.Unlock()
		return err
	}
	form := dom.ByID(c.doc, CommentFormID)
	release := c.hold(view.SubmitButton(form))
	articleID := c.thread.ArticleID()
	c.mu.Unlock()
	defer release()

	res, err := c.svc.CreateComment(ctx, articleID, content)
	if err != nil {
		c.fail("comment", "", "There was an error posting your comment.", err)
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.setCount(res.CommentCount)
	cm := c.fromCreated(res)
	cm.ParentID = ""
	if err := c.insert(cm); err != nil {
		c.log.WithError(err).WithField("comment_id", cm.ID).Warn("dropping comment")
		return nil
	}
	dom.Remove(dom.ByID(c.doc, NoCommentsMsgID))
	if form != nil {
		view.SetFormContent(form, "")
	}
	view.Indent(c.root, c.opts.IndentStep)
	return nil
}

// Toggle

// Toggle flips a comment between expanded and collapsed replies. Comments
// without replies have no toggle and are left alone.
func (c *Controller) Toggle(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ready(); err != nil {
		return err
	}
	n := c.comment(id)
	if n == nil || c.thread.ChildCount(id) == 0 {
		return nil
	}
	visible, ok := c.thread.ToggleChildren(id)
	if !ok {
		return nil
	}
	view.SyncToggle(n, id, visible)
	c.saveToggle(ctx, id, visible)
	return nil
}

// Edit

// ShowEditForm swaps the comment's content for an edit form pre-filled with
// the current text. Opening it twice keeps the first form.
func (c *Controller) ShowEditForm(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ready(); err != nil {
		return err
	}
	n := c.comment(id)
	if n == nil {
		c.gone("edit", id)
		return nil
	}
	if err := c.allow(id, thread.ActionEdit); err != nil {
		return err
	}
	if _, open := c.editing[id]; open {
		return nil
	}
	p := view.BodyText(n)
	if p == nil || dom.HasClass(p, view.ClassDeletedBody) {
		return nil
	}

	dom.InsertBefore(p, view.EditForm(id, dom.Text(p)))
	dom.Remove(p)
	c.editing[id] = p
	return nil
}

// CancelEdit closes the edit form and puts back the exact text that was
// shown before it opened.
func (c *Controller) CancelEdit(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ready(); err != nil {
		return err
	}
	c.closeEdit(id, nil)
	return nil
}

// SaveEdit posts new content. The displayed text becomes what the server
// stored, not what was typed.
func (c *Controller) SaveEdit(ctx context.Context, id, content string) error {
	c.mu.Lock()
	if err := c.ready(); err != nil {
		c.mu.Unlock()
		return err
	}
	if err := c.allow(id, thread.ActionEdit); err != nil {
		c.mu.Unlock()
		return err
	}
	release := c.hold(view.SubmitButton(dom.ByID(c.root, view.EditFormID(id))))
	c.mu.Unlock()
	defer release()

	res, err := c.svc.Edit(ctx, id, content)
	if err != nil {
		msg := "Failed to edit comment."
		var se *commentsvc.ServiceError
		if errors.As(err, &se) && se.Message != "" {
			msg += " " + se.Message
		}
		c.fail("saveEdit", id, msg, err)
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	n := c.comment(id)
	if n == nil {
		c.gone("saveEdit", id)
		return nil
	}
	if !c.thread.SetContent(id, res.UpdatedContent) {
		return nil
	}
	if !c.closeEdit(id, &res.UpdatedContent) {
		dom.SetText(view.BodyText(n), res.UpdatedContent)
	}
	return nil
}

// closeEdit removes the edit form of id and restores its content node,
// optionally with new text. It reports whether a form was open.
func (c *Controller) closeEdit(id string, text *string) bool {
	p, open := c.editing[id]
	delete(c.editing, id)
	form := dom.ByID(c.root, view.EditFormID(id))
	if !open {
		dom.Remove(form)
		return false
	}
	if text != nil {
		dom.SetText(p, *text)
	}
	if form != nil {
		dom.InsertBefore(form, p)
		dom.Remove(form)
	}
	return true
}

// Delete

// Delete asks for confirmation and deletes a comment. By default the comment
// becomes a tombstone and its replies, toggle and visibility are untouched.
// DeleteRemove drops the whole subtree instead.
func (c *Controller) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	if err := c.ready(); err != nil {
		c.mu.Unlock()
		return err
	}
	if err := c.allow(id, thread.ActionDelete); err != nil {
		c.mu.Unlock()
		return err
	}
	n := c.comment(id)
	c.mu.Unlock()
	if n == nil {
		c.gone("delete", id)
		return nil
	}

	if !c.confirm.Confirm(ctx, confirmDelete) {
		return nil
	}

	c.mu.Lock()
	release := c.hold(view.Own(n, view.ClassDelete))
	c.mu.Unlock()
	defer release()

	res, err := c.svc.Delete(ctx, id)
	if err != nil {
		c.fail("delete", id, "Failed to delete the comment.", err)
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if res.CommentCount != nil {
		c.setCount(*res.CommentCount)
	}
	n = c.comment(id)
	if n == nil {
		c.gone("delete", id)
		return nil
	}

	if c.opts.DeleteMode == DeleteRemove {
		c.remove(id, n)
	} else {
		c.tombstone(id, n)
	}
	view.Indent(c.root, c.opts.IndentStep)

	c.log.WithFields(logrus.Fields{"comment_id": id, "mode": c.opts.DeleteMode}).Debug("comment deleted")
	return nil
}

func (c *Controller) tombstone(id string, n *html.Node) {
	if !c.thread.MarkDeleted(id) {
		return
	}
	delete(c.editing, id)
	dom.Remove(dom.ByID(n, view.EditFormID(id)))
	dom.Remove(dom.ByID(n, view.ReplyFormID(id)))
	view.Tombstone(n, c.now())
}

func (c *Controller) remove(id string, n *html.Node) {
	var parentID string
	if cm, ok := c.thread.Get(id); ok {
		parentID = cm.ParentID
	}
	for _, gone := range c.thread.Remove(id) {
		delete(c.editing, gone)
		delete(c.toggles, gone)
	}
	dom.Remove(n)

	if parent := c.comment(parentID); parent != nil {
		visible := true
		if cm, ok := c.thread.Get(parentID); ok {
			visible = cm.ChildrenVisible
		}
		view.SyncToggle(parent, parentID, visible)
	}
}

// Report

// Report asks for confirmation and flags a comment. On success the report
// control stays disabled for the rest of the session. On failure it is
// enabled again so the user can retry.
func (c *Controller) Report(ctx context.Context, id string) error {
	c.mu.Lock()
	if err := c.ready(); err != nil {
		c.mu.Unlock()
		return err
	}
	if err := c.allow(id, thread.ActionReport); err != nil {
		c.mu.Unlock()
		return err
	}
	n := c.comment(id)
	reported := c.reported[id]
	c.mu.Unlock()
	if n == nil {
		c.gone("report", id)
		return nil
	}
	if reported {
		return nil
	}

	if !c.confirm.Confirm(ctx, confirmReport) {
		return nil
	}

	c.mu.Lock()
	btn := view.Own(n, view.ClassReport)
	dom.SetDisabled(btn, true)
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if !c.reported[id] {
			dom.SetDisabled(btn, false)
		}
	}()

	if _, err := c.svc.Report(ctx, id); err != nil {
		c.fail("report", id, "Failed to report the comment.", err)
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.reported[id] = true
	if c.store != nil && c.opts.SessionID != "" {
		if err := c.store.MarkReported(ctx, c.opts.SessionID, id); err != nil {
			c.log.WithError(err).WithField("comment_id", id).Warn("could not save report")
		}
	}
	c.notify.Notify(notify.Notice{Level: notify.Success, Message: "Comment reported."})
	return nil
}
