// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/streamchat/internal/model"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// Store persists chat messages in SQLite.
type Store struct {
	db   *sql.DB
	path string

	mu     sync.RWMutex
	closed bool

	// now is swapped in tests
	now func() time.Time
}

// Open opens (or creates) the database at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, wrap("open", fmt.Errorf("database path is empty"))
	}

	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, wrap("open", fmt.Errorf("failed to create database directory: %w", err))
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, wrap("open", fmt.Errorf("failed to open database: %w", err))
	}

	// SQLite only supports one writer at a time. A single connection also
	// keeps an in-memory database alive for the life of the store.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, wrap("open", fmt.Errorf("failed to set pragma: %w", err))
		}
	}

	if _, err := db.ExecContext(ctx, Schema); err != nil {
		db.Close()
		return nil, wrap("open", fmt.Errorf("failed to initialize schema: %w", err))
	}

	return &Store{db: db, path: path, now: time.Now}, nil
}

// Path returns the database location.
func (s *Store) Path() string {
	return s.path
}

// List returns all messages ordered by id ascending. The result is never nil.
func (s *Store) List(ctx context.Context) ([]model.Message, error) {
	if err := s.checkOpen(); err != nil {
		return nil, wrap("list", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, role, content, created_at FROM messages ORDER BY id ASC`)
	if err != nil {
		return nil, wrap("list", err)
	}
	defer rows.Close()

	msgs := make([]model.Message, 0)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, wrap("list", err)
		}
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list", err)
	}
	return msgs, nil
}

// Create persists a message and returns the stored record.
func (s *Store) Create(ctx context.Context, role model.Role, content string) (model.Message, error) {
	if err := s.checkOpen(); err != nil {
		return model.Message{}, wrap("create", err)
	}
	if !role.Valid() {
		return model.Message{}, wrap("create", fmt.Errorf("invalid role %q", role))
	}

	row := s.db.QueryRowContext(ctx,
		`INSERT INTO messages (role, content, created_at) VALUES (?, ?, ?)
		 RETURNING id, role, content, created_at`,
		string(role), content, s.now().UTC().UnixNano())

	msg, err := scanMessage(row)
	if err != nil {
		return model.Message{}, wrap("create", err)
	}
	return msg, nil
}

// Clear deletes every message in one transaction. The id sequence is kept,
// so ids assigned after a clear are still greater than any earlier id.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.checkOpen(); err != nil {
		return wrap("clear", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrap("clear", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages`); err != nil {
		return wrap("clear", err)
	}
	return wrap("clear", tx.Commit())
}

// Count returns the number of stored messages.
func (s *Store) Count(ctx context.Context) (int, error) {
	if err := s.checkOpen(); err != nil {
		return 0, wrap("count", err)
	}

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`).Scan(&n); err != nil {
		return 0, wrap("count", err)
	}
	return n, nil
}

// Close releases the database handle. Further calls return ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *Store) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMessage(row scanner) (model.Message, error) {
	var (
		msg     model.Message
		role    string
		created int64
	)
	if err := row.Scan(&msg.ID, &role, &msg.Content, &created); err != nil {
		return model.Message{}, err
	}
	msg.Role = model.Role(strings.ToLower(role))
	msg.CreatedAt = time.Unix(0, created).UTC()
	return msg, nil
}
