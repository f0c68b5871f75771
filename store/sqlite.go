package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/avrillon/chatrelay/domain"
	_ "github.com/mattn/go-sqlite3"
)

// createdAtLayout is fixed-width (nine fractional digits, always UTC)
// so that the lexicographic order of stored created_at values matches
// their chronological order. RFC3339Nano drops trailing zeros, which
// would make a prefix rendering sort after a longer one.
const createdAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore implements Store using SQLite. Session histories are
// stored as a JSON array in a single column, so a history replace is a
// single UPDATE and either lands fully or not at all.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and migrates) a SQLite database at the given DSN.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS session_chats (
			id TEXT PRIMARY KEY NOT NULL,
			title TEXT,
			created_at TEXT NOT NULL,
			chat_history TEXT NOT NULL DEFAULT '[]'
		)`,
		`CREATE INDEX IF NOT EXISTS idx_session_chats_created ON session_chats(created_at DESC)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ListSessionChats returns all sessions, newest first.
func (s *SQLiteStore) ListSessionChats(ctx context.Context) ([]domain.SessionChat, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, created_at, chat_history FROM session_chats ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := []domain.SessionChat{}
	for rows.Next() {
		session, err := scanSessionChat(rows.Scan)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}
	return sessions, rows.Err()
}

// GetSessionChat retrieves a session by id. Returns domain.ErrNotFound
// when no session exists for the id.
func (s *SQLiteStore) GetSessionChat(ctx context.Context, id string) (*domain.SessionChat, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, created_at, chat_history FROM session_chats WHERE id = ?`, id)
	session, err := scanSessionChat(row.Scan)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

// CreateSessionChat inserts a new session.
func (s *SQLiteStore) CreateSessionChat(ctx context.Context, session *domain.SessionChat) error {
	history, err := json.Marshal(session.ChatHistory)
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO session_chats (id, title, created_at, chat_history) VALUES (?, ?, ?, ?)`,
		session.ID, session.Title, session.CreatedAt.UTC().Format(createdAtLayout), string(history))
	return err
}

// ReplaceHistory replaces the whole message list of a session and
// returns the updated session. Last write wins between concurrent
// callers; serialization is the caller's concern.
func (s *SQLiteStore) ReplaceHistory(ctx context.Context, id string, history []domain.ChatMessage) (*domain.SessionChat, error) {
	if history == nil {
		history = []domain.ChatMessage{}
	}
	encoded, err := json.Marshal(history)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal history: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE session_chats SET chat_history = ? WHERE id = ?`, string(encoded), id)
	if err != nil {
		return nil, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, err
	} else if n == 0 {
		return nil, domain.ErrNotFound
	}

	return s.GetSessionChat(ctx, id)
}

// RenameSessionChat updates a session title and returns the updated session.
func (s *SQLiteStore) RenameSessionChat(ctx context.Context, id, title string) (*domain.SessionChat, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE session_chats SET title = ? WHERE id = ?`, title, id)
	if err != nil {
		return nil, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, err
	} else if n == 0 {
		return nil, domain.ErrNotFound
	}

	return s.GetSessionChat(ctx, id)
}

// DeleteSessionChat deletes a session. Deleting an absent id is not an error.
func (s *SQLiteStore) DeleteSessionChat(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM session_chats WHERE id = ?`, id)
	return err
}

// scanSessionChat builds a SessionChat from a row scan function.
func scanSessionChat(scan func(dest ...interface{}) error) (*domain.SessionChat, error) {
	var session domain.SessionChat
	var createdAt string
	var history sql.NullString
	if err := scan(&session.ID, &session.Title, &createdAt, &history); err != nil {
		return nil, err
	}

	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("invalid created_at %q: %w", createdAt, err)
	}
	session.CreatedAt = ts

	session.ChatHistory = []domain.ChatMessage{}
	if history.Valid && history.String != "" {
		if err := json.Unmarshal([]byte(history.String), &session.ChatHistory); err != nil {
			return nil, fmt.Errorf("invalid chat_history for session %s: %w", session.ID, err)
		}
	}
	return &session, nil
}
