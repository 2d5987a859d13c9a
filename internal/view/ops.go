package view

import (
	"strconv"
	"time"

	"github.com/alphabot-ai/commentthread/internal/dom"
	"github.com/alphabot-ai/commentthread/internal/thread"
	"golang.org/x/net/html"
)

// Own returns the first element with class inside a comment block without
// descending into its replies, so nested comments are never matched.
func Own(comment *html.Node, class string) *html.Node {
	var found *html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil && found == nil; c = c.NextSibling {
			if c.Type != html.ElementNode || dom.HasClass(c, ClassReplies) {
				continue
			}
			if dom.HasClass(c, class) {
				found = c
				return
			}
			walk(c)
		}
	}
	if comment != nil {
		walk(comment)
	}
	return found
}

// Replies returns the replies container owned by a comment. Older markup
// without ids is upgraded in place.
func Replies(comment *html.Node, id string) *html.Node {
	if comment == nil {
		return nil
	}
	if n := dom.ByID(comment, RepliesID(id)); n != nil {
		return n
	}
	n := dom.ChildByClass(comment, ClassReplies)
	if n != nil {
		dom.SetAttr(n, "id", RepliesID(id))
		dom.SetAttr(n, "data-comment-id", id)
	}
	return n
}

// ChildComments returns the comment blocks directly inside a replies container.
func ChildComments(replies *html.Node) []*html.Node {
	return dom.ChildrenByClass(replies, ClassComment)
}

// SyncToggle makes the toggle affordance of a comment match its children:
// absent without children, otherwise labelled to agree with the container.
func SyncToggle(comment *html.Node, id string, visible bool) {
	replies := Replies(comment, id)
	if replies == nil {
		return
	}
	dom.SetHidden(replies, !visible)

	row := Own(comment, ClassToggleRow)
	// Older markup has a bare toggle button with no row around it.
	if btn := Own(comment, ClassToggle); btn != nil && !dom.HasClass(btn.Parent, ClassToggleRow) {
		if row == nil {
			row = dom.Element("div", "class", ClassToggleRow)
			dom.InsertBefore(btn, row)
			dom.Append(row, btn)
		} else {
			dom.Remove(btn)
		}
	}
	if len(ChildComments(replies)) == 0 {
		dom.Remove(row)
		return
	}
	if row == nil {
		row = toggleRow(id, visible)
		dom.InsertBefore(replies, row)
		return
	}
	btn := dom.FindClass(row, ClassToggle)
	if btn == nil {
		dom.Append(row, button("btn btn-link "+ClassToggle, toggleLabel(visible), "data-comment-id", id))
		return
	}
	dom.SetAttr(btn, "data-comment-id", id)
	dom.SetText(btn, toggleLabel(visible))
}

// SetTally writes server-confirmed counts. It reports whether any count node existed.
func SetTally(root *html.Node, id string, t thread.Tally) bool {
	up := dom.ByID(root, UpvoteCountID(id))
	down := dom.ByID(root, DownvoteCountID(id))
	if up != nil {
		dom.SetText(up, strconv.Itoa(t.Upvotes))
	}
	if down != nil {
		dom.SetText(down, strconv.Itoa(t.Downvotes))
	}
	return up != nil || down != nil
}

// BodyText returns the paragraph holding the comment content.
func BodyText(comment *html.Node) *html.Node {
	body := Own(comment, ClassBody)
	if body == nil {
		return nil
	}
	return dom.Find(body, func(n *html.Node) bool { return n.Data == "p" })
}

// Tombstone turns a rendered comment into its deleted form. Replies and the
// toggle are left exactly as they are.
func Tombstone(comment *html.Node, at time.Time) {
	dom.AddClass(comment, ClassDeleted)
	dom.SetAttr(comment, "data-deleted", "true")
	if top := Own(comment, ClassTop); top != nil {
		dom.InsertBefore(top, tombstoneTop(at))
		dom.Remove(top)
	}
	if b := Own(comment, ClassBody); b != nil {
		dom.InsertBefore(b, tombstoneBody())
		dom.Remove(b)
	}
	dom.Remove(Own(comment, ClassActions))
}

// ReplyForm builds the inline reply form for a parent.
func ReplyForm(parentID string) *html.Node {
	form := dom.Element("form", "class", ClassReplyForm, "id", ReplyFormID(parentID), "data-parent-id", parentID)
	submit := button("btn btn-primary "+ClassSubmitReply, "Submit Reply", "data-parent-id", parentID)
	dom.SetAttr(submit, "type", "submit")
	return dom.Append(form,
		dom.Element("textarea", "name", "content", "rows", "3", "placeholder", "Write a reply..."),
		submit,
		button("btn btn-secondary "+ClassCancelReply, "Cancel", "data-parent-id", parentID),
	)
}

// EditForm builds the inline edit form pre-filled with content.
func EditForm(id, content string) *html.Node {
	form := dom.Element("form", "class", ClassEditForm, "id", EditFormID(id), "data-comment-id", id)
	save := button("btn btn-primary "+ClassSaveEdit, "Save", "data-comment-id", id)
	dom.SetAttr(save, "type", "submit")
	return dom.Append(form,
		dom.Append(dom.Element("textarea", "name", "content", "rows", "3"), dom.TextNode(content)),
		save,
		button("btn btn-secondary "+ClassCancelEdit, "Cancel", "data-comment-id", id),
	)
}

// FormContent returns what is typed in a form's textarea.
func FormContent(form *html.Node) string {
	return dom.Text(dom.Find(form, func(n *html.Node) bool { return n.Data == "textarea" }))
}

// SetFormContent replaces what is typed in a form's textarea.
func SetFormContent(form *html.Node, s string) {
	if ta := dom.Find(form, func(n *html.Node) bool { return n.Data == "textarea" }); ta != nil {
		dom.SetText(ta, s)
	}
}

// SubmitButton returns the submit control of a form.
func SubmitButton(form *html.Node) *html.Node {
	return dom.Find(form, func(n *html.Node) bool {
		return n.Data == "button" && dom.Attr(n, "type") == "submit"
	})
}

// Indent sets every comment's left margin from its data-level.
func Indent(root *html.Node, step int) {
	for _, c := range dom.FindAllClass(root, ClassComment) {
		level, _ := strconv.Atoi(dom.Attr(c, "data-level"))
		dom.SetStyle(c, "margin-left", strconv.Itoa(level*step)+"px")
	}
}
