package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store. State is lost when the process exits.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*memSession
}

type memSession struct {
	Session
	reported map[string]time.Time
	toggles  map[string]bool
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*memSession),
	}
}

func (m *MemoryStore) CreateSession(ctx context.Context, articleID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := &memSession{
		Session: Session{
			ID:        uuid.New().String(),
			ArticleID: articleID,
			CreatedAt: time.Now().UTC(),
		},
		reported: make(map[string]time.Time),
		toggles:  make(map[string]bool),
	}
	m.sessions[s.ID] = s
	out := s.Session
	return &out, nil
}

func (m *MemoryStore) GetSession(ctx context.Context, id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	out := s.Session
	return &out, nil
}

func (m *MemoryStore) MarkReported(ctx context.Context, sessionID, commentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	if _, seen := s.reported[commentID]; !seen {
		s.reported[commentID] = time.Now()
	}
	return nil
}

func (m *MemoryStore) IsReported(ctx context.Context, sessionID, commentID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return false, nil
	}
	_, reported := s.reported[commentID]
	return reported, nil
}

func (m *MemoryStore) ListReported(ctx context.Context, sessionID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	ids := make([]string, 0, len(s.reported))
	for id := range s.reported {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		ti, tj := s.reported[ids[i]], s.reported[ids[j]]
		if ti.Equal(tj) {
			return ids[i] < ids[j]
		}
		return ti.Before(tj)
	})
	return ids, nil
}

func (m *MemoryStore) SaveToggle(ctx context.Context, sessionID, commentID string, visible bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	s.toggles[commentID] = visible
	return nil
}

func (m *MemoryStore) ToggleState(ctx context.Context, sessionID string) (map[string]bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state := make(map[string]bool)
	if s, ok := m.sessions[sessionID]; ok {
		for id, v := range s.toggles {
			state[id] = v
		}
	}
	return state, nil
}

func (m *MemoryStore) Close() error { return nil }

// Ensure MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)
