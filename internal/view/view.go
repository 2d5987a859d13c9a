// Package view builds and reads the comment markup owned by the controller.
package view

import (
	"strconv"
	"time"

	"github.com/alphabot-ai/commentthread/internal/dom"
	"github.com/alphabot-ai/commentthread/internal/thread"
	"golang.org/x/net/html"
)

// Toggle labels. Hydration also accepts LabelShowReplies as a collapsed label.
const (
	LabelHide        = "Hide Replies"
	LabelShowMore    = "Show More Replies"
	LabelShowReplies = "Show Replies"
)

// Class names shared with the server templates.
const (
	ClassComment       = "comment"
	ClassTop           = "my-comment-top"
	ClassBody          = "my-comment-body"
	ClassActions       = "my-comment-actions"
	ClassToggleRow     = "my-comment-toggle"
	ClassToggle        = "toggle-replies"
	ClassReplies       = "replies"
	ClassVote          = "vote-btn"
	ClassReply         = "reply-btn"
	ClassEdit          = "edit-btn"
	ClassDelete        = "delete-btn"
	ClassReport        = "report-btn"
	ClassReplyForm     = "reply-form"
	ClassSubmitReply   = "submit-reply"
	ClassCancelReply   = "cancel-reply"
	ClassEditForm      = "edit-form"
	ClassSaveEdit      = "save-edit"
	ClassCancelEdit    = "cancel-edit"
	ClassDeleted       = "deleted-comment"
	ClassDeletedBody   = "deleted-content"
	ClassUpvoteCount   = "upvote-count"
	ClassDownvoteCount = "downvote-count"
)

// DateLayout is the timestamp format the server uses for comment dates.
const DateLayout = "2006-01-02 15:04:05"

// Viewer describes who is looking at the thread.
type Viewer struct {
	Authenticated bool
}

// Meta carries the per-comment render inputs that live outside the Comment itself.
type Meta struct {
	Level    int
	Children int
	Reported bool
}

func CommentID(id string) string       { return "comment-" + id }
func RepliesID(id string) string       { return "replies-" + id }
func ReplyFormID(id string) string     { return "reply-form-" + id }
func EditFormID(id string) string      { return "edit-form-" + id }
func UpvoteCountID(id string) string   { return "upvote-count-" + id }
func DownvoteCountID(id string) string { return "downvote-count-" + id }

// Comment renders a full comment block with an empty replies container.
func Comment(c *thread.Comment, meta Meta, v Viewer) *html.Node {
	n := dom.Element("div",
		"class", "comment mb-3 my-comment",
		"id", CommentID(c.ID),
		"data-comment-id", c.ID,
		"data-level", strconv.Itoa(meta.Level),
	)
	if c.ParentID != "" {
		dom.SetAttr(n, "data-parent-id", c.ParentID)
	}

	if c.IsDeleted {
		dom.AddClass(n, ClassDeleted)
		dom.Append(n, tombstoneTop(c.CreatedAt), tombstoneBody())
	} else {
		dom.Append(n, header(c), body(c.Content))
		if row := actions(c, v, meta.Reported); row != nil {
			dom.Append(n, row)
		}
	}

	replies := dom.Element("div",
		"class", ClassReplies,
		"id", RepliesID(c.ID),
		"data-comment-id", c.ID,
	)
	dom.SetHidden(replies, !c.ChildrenVisible)
	if meta.Children > 0 {
		dom.Append(n, toggleRow(c.ID, c.ChildrenVisible))
	}
	dom.Append(n, replies)
	return n
}

func header(c *thread.Comment) *html.Node {
	date := ""
	if !c.CreatedAt.IsZero() {
		date = c.CreatedAt.Format(DateLayout)
	}
	return dom.Append(dom.Element("div", "class", ClassTop+" d-flex justify-content-between align-items-center"),
		dom.Append(dom.Element("div", "class", "my-comment-user-info"),
			dom.Append(dom.Element("strong"), dom.TextNode(c.Author)),
			dom.Append(dom.Element("span", "class", "comment-separator"), dom.TextNode(" · ")),
			dom.Append(dom.Element("span", "class", "my-comment-date"), dom.TextNode(date)),
		),
	)
}

func body(content string) *html.Node {
	return dom.Append(dom.Element("div", "class", ClassBody),
		dom.Append(dom.Element("p"), dom.TextNode(content)),
	)
}

func actions(c *thread.Comment, v Viewer, reported bool) *html.Node {
	set := thread.Actions(v.Authenticated, c.IsOwner, c.IsDeleted)
	if len(set) == 0 {
		return nil
	}

	row := dom.Element("div", "class", ClassActions+" d-flex align-items-center")
	for _, a := range set {
		switch a {
		case thread.ActionVote:
			dom.Append(row, dom.Append(dom.Element("div", "class", "my-vote-section me-3"),
				button("btn btn-sm btn-outline-success "+ClassVote, "👍", "data-action", "upvote", "data-comment-id", c.ID),
				count(ClassUpvoteCount, UpvoteCountID(c.ID), c.Tally.Upvotes),
				button("btn btn-sm btn-outline-danger "+ClassVote, "👎", "data-action", "downvote", "data-comment-id", c.ID),
				count(ClassDownvoteCount, DownvoteCountID(c.ID), c.Tally.Downvotes),
			))
		case thread.ActionReply:
			dom.Append(row, dom.Append(dom.Element("div", "class", "my-reply-section"),
				button("btn btn-sm btn-outline-primary "+ClassReply, "Reply", "data-parent-id", c.ID),
			))
		case thread.ActionEdit:
			dom.Append(row, button("btn btn-sm btn-outline-warning "+ClassEdit, "Edit", "data-comment-id", c.ID))
		case thread.ActionDelete:
			dom.Append(row, button("btn btn-sm btn-outline-danger "+ClassDelete, "Delete", "data-comment-id", c.ID))
		case thread.ActionReport:
			b := button("btn btn-sm btn-outline-danger "+ClassReport, "Report", "data-comment-id", c.ID)
			dom.SetDisabled(b, reported)
			dom.Append(row, b)
		}
	}
	return row
}

func button(class, label string, attrs ...string) *html.Node {
	b := dom.Element("button", append([]string{"type", "button", "class", class}, attrs...)...)
	return dom.Append(b, dom.TextNode(label))
}

func count(class, id string, v int) *html.Node {
	return dom.Append(dom.Element("span", "class", class, "id", id), dom.TextNode(strconv.Itoa(v)))
}

func toggleRow(id string, visible bool) *html.Node {
	return dom.Append(dom.Element("div", "class", ClassToggleRow),
		button("btn btn-link "+ClassToggle, toggleLabel(visible), "data-comment-id", id),
	)
}

func toggleLabel(visible bool) string {
	if visible {
		return LabelHide
	}
	return LabelShowMore
}

func tombstoneTop(at time.Time) *html.Node {
	stamp := ""
	if !at.IsZero() {
		stamp = at.Format(DateLayout)
	}
	return dom.Append(dom.Element("div", "class", ClassTop),
		dom.Append(dom.Element("p"),
			dom.Append(dom.Element("strong"), dom.TextNode("Deleted")),
			dom.TextNode(" "),
			dom.Append(dom.Element("small"), dom.TextNode(stamp)),
		),
	)
}

func tombstoneBody() *html.Node {
	return dom.Append(dom.Element("div", "class", ClassBody),
		dom.Append(dom.Element("p", "class", ClassDeletedBody), dom.TextNode("[Deleted]")),
		dom.Append(dom.Element("small", "class", "deleted-note"), dom.TextNode("Actions disabled for deleted comments")),
	)
}
