// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists chats to disk.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/kosiew/my-chat-gpt/internal/model"
)

// SchemaVersion tracks the database layout for migrations.
const SchemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
) WITHOUT ROWID;

CREATE TABLE IF NOT EXISTS chats (
    id TEXT PRIMARY KEY,
    summary TEXT NOT NULL,
    draft TEXT NOT NULL DEFAULT '',
    updated_at INTEGER NOT NULL -- Unix milliseconds
);

CREATE TABLE IF NOT EXISTS messages (
    chat_id TEXT NOT NULL REFERENCES chats(id) ON DELETE CASCADE,
    position INTEGER NOT NULL,
    id TEXT NOT NULL,
    role TEXT NOT NULL,
    content TEXT NOT NULL,
    is_preamble INTEGER NOT NULL DEFAULT 0,
    is_important INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL, -- Unix nanoseconds
    PRIMARY KEY (chat_id, position),
    UNIQUE (chat_id, id)
);
`

// =============================================================================
// SQLITE STORE
// =============================================================================

// SQLiteStore keeps chats in a single SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens or creates the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if _, err := db.Exec(
		`INSERT OR IGNORE INTO metadata (key, value) VALUES ('schema_version', ?)`,
		fmt.Sprint(SchemaVersion),
	); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize metadata: %w", err)
	}

	return &SQLiteStore{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Save replaces the chat and all its messages in one transaction.
func (s *SQLiteStore) Save(rec model.ChatRecord) error {
	if rec.ID == "" {
		return invalidID(rec.ID)
	}
	updated := rec.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin save %s: %w", rec.ID, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		INSERT INTO chats (id, summary, draft, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			summary = excluded.summary,
			draft = excluded.draft,
			updated_at = excluded.updated_at`,
		rec.ID, rec.Summary, rec.Draft, updated.UnixMilli(),
	); err != nil {
		return fmt.Errorf("save chat %s: %w", rec.ID, err)
	}

	if _, err := tx.Exec(`DELETE FROM messages WHERE chat_id = ?`, rec.ID); err != nil {
		return fmt.Errorf("clear messages of %s: %w", rec.ID, err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO messages (chat_id, position, id, role, content, is_preamble, is_important, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare message insert: %w", err)
	}
	defer stmt.Close()

	for i, msg := range rec.Messages {
		if _, err := stmt.Exec(
			rec.ID, i, msg.ID, string(msg.Role), msg.Content,
			msg.IsPreamble, msg.IsImportant, toNanos(msg.Timestamp),
		); err != nil {
			return fmt.Errorf("save message %s: %w", msg.ID, err)
		}
	}

	return tx.Commit()
}

// Load reads one chat.
func (s *SQLiteStore) Load(id string) (model.ChatRecord, error) {
	rec := model.ChatRecord{ID: id}
	var updated int64
	err := s.db.QueryRow(
		`SELECT summary, draft, updated_at FROM chats WHERE id = ?`, id,
	).Scan(&rec.Summary, &rec.Draft, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ChatRecord{}, notFound(id)
	}
	if err != nil {
		return model.ChatRecord{}, fmt.Errorf("load chat %s: %w", id, err)
	}
	rec.UpdatedAt = time.UnixMilli(updated)

	rec.Messages, err = s.messages(id)
	if err != nil {
		return model.ChatRecord{}, err
	}
	return rec, nil
}

func (s *SQLiteStore) messages(chatID string) ([]model.Message, error) {
	rows, err := s.db.Query(`
		SELECT id, role, content, is_preamble, is_important, created_at
		FROM messages WHERE chat_id = ? ORDER BY position`, chatID)
	if err != nil {
		return nil, fmt.Errorf("load messages of %s: %w", chatID, err)
	}
	defer rows.Close()

	msgs := []model.Message{}
	for rows.Next() {
		var (
			msg     model.Message
			role    string
			created int64
		)
		if err := rows.Scan(&msg.ID, &role, &msg.Content, &msg.IsPreamble, &msg.IsImportant, &created); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.Role = model.Role(role)
		msg.Timestamp = fromNanos(created)
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}

// LoadAll reads every chat, newest first.
func (s *SQLiteStore) LoadAll() ([]model.ChatRecord, error) {
	rows, err := s.db.Query(`SELECT id FROM chats`)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan chat id: %w", err)
		}
		ids = append(ids, id)
	}
	// close before querying again, the pool has a single connection
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	recs := make([]model.ChatRecord, 0, len(ids))
	for _, id := range ids {
		rec, err := s.Load(id)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	sortRecords(recs)
	return recs, nil
}

// Delete removes one chat and its messages.
func (s *SQLiteStore) Delete(id string) error {
	res, err := s.db.Exec(`DELETE FROM chats WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete chat %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound(id)
	}
	return nil
}

// Clear removes every chat.
func (s *SQLiteStore) Clear() error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.Exec(`DELETE FROM messages`); err != nil {
		return fmt.Errorf("clear messages: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM chats`); err != nil {
		return fmt.Errorf("clear chats: %w", err)
	}
	return tx.Commit()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// toNanos stores the zero time as 0, since UnixNano is undefined for it.
func toNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}
