package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gestio/messagerie/internal/conversation"
	"github.com/gestio/messagerie/internal/shared"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS sessions (
		user_id TEXT PRIMARY KEY,
		selected_contact_id TEXT,
		draft_text TEXT NOT NULL DEFAULT '',
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(updated_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetSession retrieves the persisted session for a user.
func (s *SQLiteStore) GetSession(ctx context.Context, userID string) (*conversation.SessionRecord, error) {
	query := `SELECT user_id, selected_contact_id, draft_text FROM sessions WHERE user_id = ?`

	row := s.db.QueryRowContext(ctx, query, userID)

	var rec conversation.SessionRecord
	var selected sql.NullString
	err := row.Scan(&rec.UserID, &selected, &rec.DraftText)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan session row: %w", err)
	}
	rec.SelectedContactID = selected.String
	return &rec, nil
}

// SaveSession creates or updates a session record. Retries once on a SQLite
// concurrency conflict.
func (s *SQLiteStore) SaveSession(ctx context.Context, rec *conversation.SessionRecord) error {
	query := `
	INSERT INTO sessions (user_id, selected_contact_id, draft_text, updated_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		selected_contact_id = excluded.selected_contact_id,
		draft_text = excluded.draft_text,
		updated_at = excluded.updated_at`

	var selected interface{}
	if rec.SelectedContactID != "" {
		selected = rec.SelectedContactID
	}

	_, err := s.db.ExecContext(ctx, query, rec.UserID, selected, rec.DraftText, time.Now().Unix())
	if err != nil && shared.IsSQLiteConflictError(err) {
		time.Sleep(100 * time.Millisecond)
		_, err = s.db.ExecContext(ctx, query, rec.UserID, selected, rec.DraftText, time.Now().Unix())
	}
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// DeleteSession removes a session record.
func (s *SQLiteStore) DeleteSession(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
