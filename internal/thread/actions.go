package thread

import "strings"

// SortMode orders the top-level comments of a thread.
type SortMode string

const (
	SortNewest      SortMode = "newest"
	SortOldest      SortMode = "oldest"
	SortMostUpvoted SortMode = "most_upvoted"
)

// ParseSortMode maps a query value to a sort mode, defaulting to newest.
func ParseSortMode(s string) SortMode {
	switch SortMode(strings.ToLower(strings.TrimSpace(s))) {
	case SortOldest:
		return SortOldest
	case SortMostUpvoted:
		return SortMostUpvoted
	default:
		return SortNewest
	}
}

// Action is a capability rendered next to a comment.
type Action string

const (
	ActionVote   Action = "vote"
	ActionReply  Action = "reply"
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
	ActionReport Action = "report"
)

// Actions returns the affordances a viewer gets on a comment.
//
//	anonymous        -> none
//	owner            -> vote, reply, edit, delete
//	everyone else    -> vote, reply, report
//
// Deleted comments never carry actions.
func Actions(authenticated, owner, deleted bool) []Action {
	if !authenticated || deleted {
		return nil
	}
	if owner {
		return []Action{ActionVote, ActionReply, ActionEdit, ActionDelete}
	}
	return []Action{ActionVote, ActionReply, ActionReport}
}

// Has reports whether a is in the set.
func Has(actions []Action, a Action) bool {
	for _, v := range actions {
		if v == a {
			return true
		}
	}
	return false
}
