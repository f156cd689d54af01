// Package tokenstore persists the bearer token that authenticates API calls.
package tokenstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
)

// TokenKey is the well-known key the bearer token is stored under.
const TokenKey = "authToken"

// Store holds at most one bearer token. Absence means unauthenticated.
type Store interface {
	Save(ctx context.Context, token string) error
	Read(ctx context.Context) (string, bool, error)
	Clear(ctx context.Context) error
}

// SQLiteStore keeps the token in the kv table created by database.Migrate.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a store backed by db.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Save persists token, replacing any previous one.
func (s *SQLiteStore) Save(ctx context.Context, token string) error {
	if token == "" {
		return errors.New("tokenstore: refusing to save an empty token")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		TokenKey, token)
	if err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

// Read returns the stored token and whether one exists.
func (s *SQLiteStore) Read(ctx context.Context) (string, bool, error) {
	var token string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", TokenKey).Scan(&token)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, fmt.Errorf("read token: %w", err)
	}
	return token, token != "", nil
}

// Clear removes the token. Clearing an empty store is not an error.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", TokenKey); err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	return nil
}

// MemoryStore keeps the token for the lifetime of the process.
type MemoryStore struct {
	mu    sync.RWMutex
	token string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Save(_ context.Context, token string) error {
	if token == "" {
		return errors.New("tokenstore: refusing to save an empty token")
	}
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Read(_ context.Context) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token, m.token != "", nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	m.token = ""
	m.mu.Unlock()
	return nil
}
