package store

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) (*SQLiteStore, func()) {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "commentthread-test-*.db")
	require.NoError(t, err)
	tmpFile.Close()

	store, err := NewSQLiteStore(tmpFile.Name())
	if err != nil {
		os.Remove(tmpFile.Name())
		t.Fatalf("failed to create store: %v", err)
	}

	cleanup := func() {
		store.Close()
		os.Remove(tmpFile.Name())
	}

	return store, cleanup
}

// eachStore runs fn against every Store implementation.
func eachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("sqlite", func(t *testing.T) {
		s, cleanup := setupTestDB(t)
		defer cleanup()
		fn(t, s)
	})
	t.Run("memory", func(t *testing.T) {
		fn(t, NewMemoryStore())
	})
}

func TestSessionCreate(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		session, err := s.CreateSession(ctx, "42")
		require.NoError(t, err)
		assert.NotEmpty(t, session.ID)
		assert.Equal(t, "42", session.ArticleID)

		fetched, err := s.GetSession(ctx, session.ID)
		require.NoError(t, err)
		assert.Equal(t, session.ID, fetched.ID)
		assert.Equal(t, "42", fetched.ArticleID)

		_, err = s.GetSession(ctx, "missing")
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})
}

func TestReports(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		session, err := s.CreateSession(ctx, "1")
		require.NoError(t, err)
		other, err := s.CreateSession(ctx, "1")
		require.NoError(t, err)

		reported, err := s.IsReported(ctx, session.ID, "7")
		require.NoError(t, err)
		assert.False(t, reported)

		require.NoError(t, s.MarkReported(ctx, session.ID, "7"))
		// Reporting twice is harmless.
		require.NoError(t, s.MarkReported(ctx, session.ID, "7"))
		require.NoError(t, s.MarkReported(ctx, session.ID, "9"))

		reported, err = s.IsReported(ctx, session.ID, "7")
		require.NoError(t, err)
		assert.True(t, reported)

		reported, err = s.IsReported(ctx, other.ID, "7")
		require.NoError(t, err)
		assert.False(t, reported, "reports are scoped to a session")

		ids, err := s.ListReported(ctx, session.ID)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"7", "9"}, ids)

		assert.Error(t, s.MarkReported(ctx, "missing", "7"))
	})
}

func TestToggles(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		session, err := s.CreateSession(ctx, "1")
		require.NoError(t, err)

		state, err := s.ToggleState(ctx, session.ID)
		require.NoError(t, err)
		assert.Empty(t, state)

		require.NoError(t, s.SaveToggle(ctx, session.ID, "3", false))
		require.NoError(t, s.SaveToggle(ctx, session.ID, "4", true))
		require.NoError(t, s.SaveToggle(ctx, session.ID, "3", true))
		require.NoError(t, s.SaveToggle(ctx, session.ID, "4", false))

		state, err = s.ToggleState(ctx, session.ID)
		require.NoError(t, err)
		assert.Equal(t, map[string]bool{"3": true, "4": false}, state)

		assert.Error(t, s.SaveToggle(ctx, "missing", "3", true))
	})
}

func TestSQLiteStorePersists(t *testing.T) {
	tmpFile, err := os.CreateTemp("", "commentthread-persist-*.db")
	require.NoError(t, err)
	tmpFile.Close()
	defer os.Remove(tmpFile.Name())

	ctx := context.Background()
	s, err := NewSQLiteStore(tmpFile.Name())
	require.NoError(t, err)
	session, err := s.CreateSession(ctx, "1")
	require.NoError(t, err)
	require.NoError(t, s.MarkReported(ctx, session.ID, "5"))
	require.NoError(t, s.SaveToggle(ctx, session.ID, "5", false))
	require.NoError(t, s.Close())

	s, err = NewSQLiteStore(tmpFile.Name())
	require.NoError(t, err)
	defer s.Close()

	reported, err := s.IsReported(ctx, session.ID, "5")
	require.NoError(t, err)
	assert.True(t, reported)

	state, err := s.ToggleState(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"5": false}, state)
}
