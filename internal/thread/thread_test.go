package thread

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(comments []*Comment) []string {
	out := make([]string, 0, len(comments))
	for _, c := range comments {
		out = append(out, c.ID)
	}
	return out
}

func TestInsertOrdering(t *testing.T) {
	tests := []struct {
		name string
		sort SortMode
		want []string
	}{
		{name: "newest first", sort: SortNewest, want: []string{"c3", "c2", "c1"}},
		{name: "oldest first", sort: SortOldest, want: []string{"c1", "c2", "c3"}},
		{name: "server order", sort: SortMostUpvoted, want: []string{"c1", "c2", "c3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			th := New("a1", tt.sort)
			for _, id := range []string{"c1", "c2", "c3"} {
				require.NoError(t, th.Insert(&Comment{ID: id}))
			}
			assert.Equal(t, tt.want, ids(th.Roots()))
		})
	}
}

func TestInsertRepliesAppendRegardlessOfSort(t *testing.T) {
	th := New("a1", SortNewest)
	require.NoError(t, th.Insert(&Comment{ID: "p"}))
	require.NoError(t, th.Insert(&Comment{ID: "r1", ParentID: "p"}))
	require.NoError(t, th.Insert(&Comment{ID: "r2", ParentID: "p"}))

	assert.Equal(t, []string{"r1", "r2"}, ids(th.Children("p")))
	assert.Equal(t, 2, th.ChildCount("p"))
}

func TestLoadKeepsDisplayOrder(t *testing.T) {
	th := New("a1", SortNewest)
	require.NoError(t, th.Load([]*Comment{
		{ID: "3"},
		{ID: "4", ParentID: "3"},
		{ID: "1"},
	}))
	assert.Equal(t, []string{"3", "1"}, ids(th.Roots()))
	assert.Equal(t, []string{"3", "4", "1"}, ids(th.All()))

	// Later inserts still follow the sort mode.
	require.NoError(t, th.Insert(&Comment{ID: "5"}))
	assert.Equal(t, []string{"5", "3", "1"}, ids(th.Roots()))

	err := th.Load([]*Comment{{ID: "9", ParentID: "missing"}})
	assert.ErrorIs(t, err, ErrParentNotFound)
}

func TestInsertValidation(t *testing.T) {
	th := New("a1", SortNewest)
	require.NoError(t, th.Insert(&Comment{ID: "c1"}))

	tests := []struct {
		name    string
		comment *Comment
		wantErr error
	}{
		{name: "missing id", comment: &Comment{}, wantErr: ErrEmptyID},
		{name: "duplicate", comment: &Comment{ID: "c1"}, wantErr: ErrDuplicateComment},
		{name: "unknown parent", comment: &Comment{ID: "c2", ParentID: "nope"}, wantErr: ErrParentNotFound},
		{name: "negative tally", comment: &Comment{ID: "c3", Tally: Tally{Upvotes: -1}}, wantErr: ErrNegativeTally},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, th.Insert(tt.comment), tt.wantErr)
		})
	}
	assert.Equal(t, 1, th.Len())
}

func TestLevel(t *testing.T) {
	th := New("a1", SortOldest)
	require.NoError(t, th.Insert(&Comment{ID: "a"}))
	require.NoError(t, th.Insert(&Comment{ID: "b", ParentID: "a"}))
	require.NoError(t, th.Insert(&Comment{ID: "c", ParentID: "b"}))
	require.NoError(t, th.Insert(&Comment{ID: "d", ParentID: "c"}))

	assert.Equal(t, 0, th.Level("a"))
	assert.Equal(t, 1, th.Level("b"))
	assert.Equal(t, 2, th.Level("c"))
	assert.Equal(t, 3, th.Level("d"))
	assert.Equal(t, -1, th.Level("missing"))
}

func TestSetTallyOverwrites(t *testing.T) {
	th := New("a1", SortNewest)
	require.NoError(t, th.Insert(&Comment{ID: "c1", Tally: Tally{Upvotes: 10, Downvotes: 3}}))

	require.NoError(t, th.SetTally("c1", Tally{Upvotes: 1, Downvotes: 0}))
	c, _ := th.Get("c1")
	assert.Equal(t, Tally{Upvotes: 1}, c.Tally)

	assert.ErrorIs(t, th.SetTally("c1", Tally{Downvotes: -2}), ErrNegativeTally)
	assert.Equal(t, Tally{Upvotes: 1}, c.Tally)

	assert.NoError(t, th.SetTally("missing", Tally{}))
}

func TestMarkDeletedIsMonotonic(t *testing.T) {
	th := New("a1", SortNewest)
	require.NoError(t, th.Insert(&Comment{ID: "c1", Content: "hello"}))
	require.NoError(t, th.Insert(&Comment{ID: "c2", ParentID: "c1"}))

	assert.True(t, th.MarkDeleted("c1"))
	assert.False(t, th.MarkDeleted("c1"))
	assert.False(t, th.SetContent("c1", "back again"))

	c, _ := th.Get("c1")
	assert.True(t, c.IsDeleted)
	assert.Empty(t, c.Content)
	assert.Equal(t, []string{"c2"}, ids(th.Children("c1")))
}

func TestToggleChildren(t *testing.T) {
	th := New("a1", SortNewest)
	require.NoError(t, th.Insert(&Comment{ID: "c1", ChildrenVisible: true}))

	visible, ok := th.ToggleChildren("c1")
	require.True(t, ok)
	assert.False(t, visible)

	visible, _ = th.ToggleChildren("c1")
	assert.True(t, visible)

	_, ok = th.ToggleChildren("missing")
	assert.False(t, ok)
}

func TestRemoveSubtree(t *testing.T) {
	th := New("a1", SortOldest)
	require.NoError(t, th.Insert(&Comment{ID: "a"}))
	require.NoError(t, th.Insert(&Comment{ID: "b", ParentID: "a"}))
	require.NoError(t, th.Insert(&Comment{ID: "c", ParentID: "b"}))
	require.NoError(t, th.Insert(&Comment{ID: "d"}))

	removed := th.Remove("b")
	assert.ElementsMatch(t, []string{"b", "c"}, removed)
	assert.Equal(t, 0, th.ChildCount("a"))
	assert.Equal(t, 2, th.Len())

	th.Remove("a")
	assert.Equal(t, []string{"d"}, ids(th.Roots()))
	assert.Nil(t, th.Remove("a"))
}

func TestActions(t *testing.T) {
	tests := []struct {
		name          string
		authenticated bool
		owner         bool
		deleted       bool
		want          []Action
	}{
		{name: "anonymous", want: nil},
		{name: "anonymous owner flag ignored", owner: true, want: nil},
		{name: "owner", authenticated: true, owner: true, want: []Action{ActionVote, ActionReply, ActionEdit, ActionDelete}},
		{name: "other user", authenticated: true, want: []Action{ActionVote, ActionReply, ActionReport}},
		{name: "deleted", authenticated: true, owner: true, deleted: true, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Actions(tt.authenticated, tt.owner, tt.deleted))
		})
	}
}

func TestHas(t *testing.T) {
	mine := Actions(true, true, false)
	assert.True(t, Has(mine, ActionDelete))
	assert.False(t, Has(mine, ActionReport))
	assert.False(t, Has(Actions(true, false, true), ActionVote))
	assert.False(t, Has(nil, ActionReply))
}

func TestParseSortMode(t *testing.T) {
	assert.Equal(t, SortNewest, ParseSortMode(""))
	assert.Equal(t, SortNewest, ParseSortMode("bogus"))
	assert.Equal(t, SortOldest, ParseSortMode("oldest"))
	assert.Equal(t, SortMostUpvoted, ParseSortMode(" Most_Upvoted "))
}
