package store

import (
	"context"
	"errors"
)

var ErrSessionNotFound = errors.New("session not found")

// Store persists per-session client state: which comments the user already
// reported and which reply containers they collapsed.
type Store interface {
	// Sessions
	CreateSession(ctx context.Context, articleID string) (*Session, error)
	GetSession(ctx context.Context, id string) (*Session, error)

	// Reports
	MarkReported(ctx context.Context, sessionID, commentID string) error
	IsReported(ctx context.Context, sessionID, commentID string) (bool, error)
	ListReported(ctx context.Context, sessionID string) ([]string, error)

	// Reply visibility
	SaveToggle(ctx context.Context, sessionID, commentID string, visible bool) error
	ToggleState(ctx context.Context, sessionID string) (map[string]bool, error)

	// Lifecycle
	Close() error
}
