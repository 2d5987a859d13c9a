package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		article_id TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS reports (
		session_id TEXT NOT NULL,
		comment_id TEXT NOT NULL,
		reported_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (session_id, comment_id),
		FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS toggles (
		session_id TEXT NOT NULL,
		comment_id TEXT NOT NULL,
		visible INTEGER NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (session_id, comment_id),
		FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Sessions

func (s *SQLiteStore) CreateSession(ctx context.Context, articleID string) (*Session, error) {
	session := &Session{
		ID:        uuid.New().String(),
		ArticleID: articleID,
		CreatedAt: time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, article_id, created_at)
		VALUES (?, ?, ?)
	`, session.ID, session.ArticleID, session.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	return session, nil
}

func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*Session, error) {
	var session Session
	err := s.db.QueryRowContext(ctx, `
		SELECT id, article_id, created_at FROM sessions WHERE id = ?
	`, id).Scan(&session.ID, &session.ArticleID, &session.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// Reports

func (s *SQLiteStore) MarkReported(ctx context.Context, sessionID, commentID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO reports (session_id, comment_id, reported_at)
		VALUES (?, ?, ?)
	`, sessionID, commentID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("marking %s reported: %w", commentID, err)
	}
	return nil
}

func (s *SQLiteStore) IsReported(ctx context.Context, sessionID, commentID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM reports WHERE session_id = ? AND comment_id = ?
	`, sessionID, commentID).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLiteStore) ListReported(ctx context.Context, sessionID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT comment_id FROM reports WHERE session_id = ? ORDER BY reported_at, comment_id
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Reply visibility

func (s *SQLiteStore) SaveToggle(ctx context.Context, sessionID, commentID string, visible bool) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO toggles (session_id, comment_id, visible, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(session_id, comment_id) DO UPDATE SET visible = excluded.visible, updated_at = excluded.updated_at
	`, sessionID, commentID, boolToInt(visible), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("saving toggle for %s: %w", commentID, err)
	}
	return nil
}

func (s *SQLiteStore) ToggleState(ctx context.Context, sessionID string) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT comment_id, visible FROM toggles WHERE session_id = ?
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	state := make(map[string]bool)
	for rows.Next() {
		var id string
		var visible int
		if err := rows.Scan(&id, &visible); err != nil {
			return nil, err
		}
		state[id] = visible == 1
	}
	return state, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var _ Store = (*SQLiteStore)(nil)
