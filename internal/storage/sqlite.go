package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/desertthunder/bookrack/internal/shared"
)

// SQLiteStorage is a [Storage] backed by the kv_entries table.
//
// The database is owned by the caller; Close only marks the storage closed.
type SQLiteStorage struct {
	db     *sql.DB
	closed atomic.Bool
}

// NewSQLiteStorage wraps db. [shared.RunMigrations] must have been applied.
func NewSQLiteStorage(db *sql.DB) *SQLiteStorage {
	return &SQLiteStorage{db: db}
}

// Get implements [Storage].
func (s *SQLiteStorage) Get(key string) (string, bool, error) {
	if s.closed.Load() {
		return "", false, shared.ErrStorageClosed
	}

	var value string
	err := s.db.QueryRow("SELECT value FROM kv_entries WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, true, nil
}

// Set implements [Storage].
func (s *SQLiteStorage) Set(key, value string) error {
	if s.closed.Load() {
		return shared.ErrStorageClosed
	}

	query := `
		INSERT INTO kv_entries (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := s.db.Exec(query, key, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// Delete implements [Storage].
func (s *SQLiteStorage) Delete(key string) error {
	if s.closed.Load() {
		return shared.ErrStorageClosed
	}
	if _, err := s.db.Exec("DELETE FROM kv_entries WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// Close implements [Storage].
func (s *SQLiteStorage) Close() error {
	s.closed.Store(true)
	return nil
}
