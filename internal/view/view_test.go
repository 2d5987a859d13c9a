package view

import (
	"strings"
	"testing"
	"time"

	"github.com/alphabot-ai/commentthread/internal/dom"
	"github.com/alphabot-ai/commentthread/internal/thread"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func TestCommentActionsByViewer(t *testing.T) {
	tests := []struct {
		name    string
		viewer  Viewer
		owner   bool
		present []string
		absent  []string
	}{
		{
			name:   "anonymous is read-only",
			viewer: Viewer{},
			absent: []string{ClassActions, ClassVote, ClassReply, ClassEdit, ClassDelete, ClassReport},
		},
		{
			name:    "owner can edit and delete",
			viewer:  Viewer{Authenticated: true},
			owner:   true,
			present: []string{ClassVote, ClassReply, ClassEdit, ClassDelete},
			absent:  []string{ClassReport},
		},
		{
			name:    "other user can report",
			viewer:  Viewer{Authenticated: true},
			present: []string{ClassVote, ClassReply, ClassReport},
			absent:  []string{ClassEdit, ClassDelete},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := Comment(&thread.Comment{ID: "7", Author: "ann", Content: "hi", IsOwner: tt.owner}, Meta{}, tt.viewer)
			for _, class := range tt.present {
				assert.NotNil(t, Own(n, class), "expected %s", class)
			}
			for _, class := range tt.absent {
				assert.Nil(t, Own(n, class), "unexpected %s", class)
			}
		})
	}
}

func TestCommentToggleOnlyWithChildren(t *testing.T) {
	c := &thread.Comment{ID: "1", ChildrenVisible: true}

	n := Comment(c, Meta{}, Viewer{Authenticated: true})
	assert.Nil(t, Own(n, ClassToggle))
	require.NotNil(t, Replies(n, "1"))

	n = Comment(c, Meta{Children: 2}, Viewer{Authenticated: true})
	btn := Own(n, ClassToggle)
	require.NotNil(t, btn)
	assert.Equal(t, LabelHide, dom.Text(btn))
	assert.Equal(t, "1", dom.Attr(btn, "data-comment-id"))
}

func TestCommentReportedDisablesReport(t *testing.T) {
	n := Comment(&thread.Comment{ID: "1"}, Meta{Reported: true}, Viewer{Authenticated: true})
	assert.True(t, dom.IsDisabled(Own(n, ClassReport)))
}

func TestSyncToggle(t *testing.T) {
	parent := Comment(&thread.Comment{ID: "p", ChildrenVisible: true}, Meta{}, Viewer{Authenticated: true})
	replies := Replies(parent, "p")

	SyncToggle(parent, "p", true)
	assert.Nil(t, Own(parent, ClassToggle))

	dom.Append(replies, Comment(&thread.Comment{ID: "c", ParentID: "p"}, Meta{Level: 1}, Viewer{}))
	SyncToggle(parent, "p", true)
	SyncToggle(parent, "p", true)
	toggles := dom.FindAll(parent, func(n *html.Node) bool {
		return dom.HasClass(n, ClassToggle) && dom.Attr(n, "data-comment-id") == "p"
	})
	require.Len(t, toggles, 1)
	assert.Equal(t, LabelHide, dom.Text(toggles[0]))
	assert.False(t, dom.IsHidden(replies))

	SyncToggle(parent, "p", false)
	assert.Equal(t, LabelShowMore, dom.Text(toggles[0]))
	assert.True(t, dom.IsHidden(replies))

	dom.ReplaceChildren(replies)
	SyncToggle(parent, "p", false)
	assert.Nil(t, Own(parent, ClassToggle))
}

func TestTombstoneKeepsReplies(t *testing.T) {
	parent := Comment(&thread.Comment{ID: "p", Author: "bob", Content: "text", IsOwner: true, ChildrenVisible: false},
		Meta{Children: 1}, Viewer{Authenticated: true})
	replies := Replies(parent, "p")
	child := Comment(&thread.Comment{ID: "c", ParentID: "p", Content: "child"}, Meta{Level: 1}, Viewer{Authenticated: true})
	dom.Append(replies, child)

	at := time.Date(2025, 3, 7, 18, 20, 0, 0, time.UTC)
	Tombstone(parent, at)

	assert.True(t, dom.HasClass(parent, ClassDeleted))
	assert.Nil(t, Own(parent, ClassActions))
	assert.Equal(t, "[Deleted]", dom.Text(dom.FindClass(parent, ClassDeletedBody)))
	assert.Contains(t, dom.Text(Own(parent, ClassTop)), "Deleted")
	assert.Contains(t, dom.Text(Own(parent, ClassTop)), "2025-03-07 18:20:00")

	assert.Same(t, replies, Replies(parent, "p"))
	assert.True(t, dom.IsHidden(replies))
	assert.Equal(t, []*html.Node{child}, ChildComments(replies))
	assert.NotNil(t, Own(child, ClassActions))
	assert.NotNil(t, Own(parent, ClassToggle))
}

func TestForms(t *testing.T) {
	form := ReplyForm("9")
	assert.Equal(t, ReplyFormID("9"), dom.Attr(form, "id"))
	SetFormContent(form, "typed")
	assert.Equal(t, "typed", FormContent(form))
	assert.True(t, dom.HasClass(SubmitButton(form), ClassSubmitReply))

	edit := EditForm("9", "old text")
	assert.Equal(t, "old text", FormContent(edit))
	assert.True(t, dom.HasClass(SubmitButton(edit), ClassSaveEdit))
}

func TestIndent(t *testing.T) {
	root := dom.Element("div", "id", "comments-list")
	a := Comment(&thread.Comment{ID: "a"}, Meta{Level: 0}, Viewer{})
	b := Comment(&thread.Comment{ID: "b", ParentID: "a"}, Meta{Level: 1}, Viewer{})
	c := Comment(&thread.Comment{ID: "c", ParentID: "b"}, Meta{Level: 2}, Viewer{})
	dom.Append(root, a)
	dom.Append(Replies(a, "a"), b)
	dom.Append(Replies(b, "b"), c)

	Indent(root, 20)
	assert.Equal(t, "0px", dom.Style(a, "margin-left"))
	assert.Equal(t, "20px", dom.Style(b, "margin-left"))
	assert.Equal(t, "40px", dom.Style(c, "margin-left"))
}

const serverMarkup = `<div id="comments-list">
<div class="comment my-comment" data-comment-id="1">
  <div class="my-comment-top"><div class="my-comment-user-info"><strong>alice</strong> · <span class="my-comment-date">2025-03-07 18:20:00</span></div></div>
  <div class="my-comment-body"><p> first post </p></div>
  <div class="my-comment-actions">
    <button class="vote-btn" data-action="upvote" data-comment-id="1">+</button><span class="upvote-count" id="upvote-count-1">4</span>
    <button class="vote-btn" data-action="downvote" data-comment-id="1">-</button><span class="downvote-count" id="downvote-count-1">1</span>
    <button class="reply-btn" data-parent-id="1">Reply</button>
    <button class="edit-btn" data-comment-id="1">Edit</button>
  </div>
  <div class="my-comment-toggle"><button class="btn btn-link toggle-replies">Hide Replies</button></div>
  <div class="replies" style="display: none">
    <div class="comment my-comment" id="comment-2">
      <div class="my-comment-body"><p>reply</p></div>
      <div class="my-comment-actions"><button class="report-btn" data-comment-id="2">Report</button></div>
      <div class="replies"></div>
    </div>
  </div>
</div>
<div class="comment my-comment deleted-comment" data-comment-id="3">
  <div class="my-comment-body"><p class="deleted-content">[Deleted]</p></div>
</div>
</div>`

func TestHydrate(t *testing.T) {
	nodes, err := dom.ParseFragment(serverMarkup)
	require.NoError(t, err)
	root := nodes[0]

	comments := Hydrate(root)
	require.Len(t, comments, 3)

	first := comments[0]
	assert.Equal(t, "1", first.ID)
	assert.Equal(t, "", first.ParentID)
	assert.Equal(t, "alice", first.Author)
	assert.Equal(t, "first post", first.Content)
	assert.Equal(t, thread.Tally{Upvotes: 4, Downvotes: 1}, first.Tally)
	assert.True(t, first.IsOwner)
	assert.False(t, first.ChildrenVisible)
	assert.Equal(t, 2025, first.CreatedAt.Year())

	reply := comments[1]
	assert.Equal(t, "2", reply.ID)
	assert.Equal(t, "1", reply.ParentID)
	assert.False(t, reply.IsOwner)
	assert.Equal(t, thread.Tally{}, reply.Tally)
	assert.Equal(t, "1", dom.Attr(dom.ByID(root, CommentID("2")), "data-level"))

	deleted := comments[2]
	assert.True(t, deleted.IsDeleted)
	assert.Empty(t, deleted.Content)
	assert.NotNil(t, Replies(dom.ByID(root, CommentID("3")), "3"))

	btn := dom.FindClass(root, ClassToggle)
	assert.Equal(t, "1", dom.Attr(btn, "data-comment-id"))
	assert.NotNil(t, dom.ByID(root, RepliesID("1")))
	assert.True(t, strings.Contains(dom.Render(root), `id="replies-2"`))
}
