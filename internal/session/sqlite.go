package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SQLiteStore keeps the session in a key-value table of the local database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates the session table when missing and returns a store over db.
func NewSQLiteStore(ctx context.Context, db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New("session: db must not be nil")
	}
	s := &SQLiteStore{db: db}
	if err := s.initSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initSchema(ctx context.Context) error {
	const query = `
	CREATE TABLE IF NOT EXISTS session_values (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("session: create schema: %w", err)
	}
	return nil
}

const upsertValue = `
	INSERT INTO session_values (key, value, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

// Save writes both values in one transaction so they are never half-written.
func (s *SQLiteStore) Save(ctx context.Context, userID, email string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("session: Save begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().Unix()
	if _, err := tx.ExecContext(ctx, upsertValue, KeyUserID, userID, now); err != nil {
		return fmt.Errorf("session: Save %s: %w", KeyUserID, err)
	}
	if _, err := tx.ExecContext(ctx, upsertValue, KeyEmail, email, now); err != nil {
		return fmt.Errorf("session: Save %s: %w", KeyEmail, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("session: Save commit: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Read(ctx context.Context) (Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value FROM session_values WHERE key IN (?, ?, ?)`,
		KeyUserID, KeyEmail, KeyChatID)
	if err != nil {
		return Session{}, fmt.Errorf("session: Read query: %w", err)
	}
	defer rows.Close()

	var out Session
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return Session{}, fmt.Errorf("session: Read scan: %w", err)
		}
		switch key {
		case KeyUserID:
			out.UserID = value
		case KeyEmail:
			out.Email = value
		case KeyChatID:
			out.ChatID = value
		}
	}
	if err := rows.Err(); err != nil {
		return Session{}, fmt.Errorf("session: Read rows: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) RecordChatID(ctx context.Context, chatID string) error {
	if chatID == "" {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, upsertValue, KeyChatID, chatID, time.Now().Unix()); err != nil {
		return fmt.Errorf("session: RecordChatID: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ForgetChatID(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM session_values WHERE key = ?`, KeyChatID); err != nil {
		return fmt.Errorf("session: ForgetChatID: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM session_values WHERE key IN (?, ?, ?)`,
		KeyUserID, KeyEmail, KeyChatID)
	if err != nil {
		return fmt.Errorf("session: Clear: %w", err)
	}
	return nil
}
