package repositories

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/desertthunder/bookrack/internal/models"
	"github.com/desertthunder/bookrack/internal/shared"
)

// maxQueryParams stays below SQLite's default host parameter limit.
const maxQueryParams = 500

// BookRepository caches catalog metadata in the book_cache table.
type BookRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewBookRepository creates a new BookRepository with the given database connection
func NewBookRepository(db *sql.DB) *BookRepository {
	return &BookRepository{db: db, now: time.Now}
}

// Put inserts or replaces the cached metadata for each book and stamps it with the current time.
func (r *BookRepository) Put(books ...models.Book) error {
	if len(books) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO book_cache (md5, title, payload, fetched_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(md5) DO UPDATE SET title = excluded.title, payload = excluded.payload, fetched_at = excluded.fetched_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	now := r.now().UTC()
	for _, b := range books {
		if b.MD5 == "" {
			return fmt.Errorf("%w: book without md5", shared.ErrInvalidInput)
		}
		payload, err := json.Marshal(b)
		if err != nil {
			return fmt.Errorf("failed to encode book %s: %w", b.MD5, err)
		}
		if _, err := stmt.Exec(b.MD5.String(), b.Title, string(payload), now); err != nil {
			return fmt.Errorf("failed to cache book %s: %w", b.MD5, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit book cache: %w", err)
	}
	return nil
}

// Get returns the cached book for id. It returns [shared.ErrCacheMiss] when the id is absent or older than maxAge.
// A maxAge of zero accepts any age.
func (r *BookRepository) Get(id models.BookID, maxAge time.Duration) (*models.Book, error) {
	var payload string
	var fetchedAt time.Time
	err := r.db.QueryRow("SELECT payload, fetched_at FROM book_cache WHERE md5 = ?", id.String()).Scan(&payload, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached book: %w", err)
	}
	if r.stale(fetchedAt, maxAge) {
		return nil, shared.ErrCacheMiss
	}

	var book models.Book
	if err := json.Unmarshal([]byte(payload), &book); err != nil {
		return nil, fmt.Errorf("failed to decode cached book %s: %w", id, err)
	}
	return &book, nil
}

// GetMany returns the fresh cached books among ids, keyed by id. Missing, stale and undecodable rows are skipped.
func (r *BookRepository) GetMany(ids []models.BookID, maxAge time.Duration) (map[models.BookID]models.Book, error) {
	found := make(map[models.BookID]models.Book, len(ids))
	for chunk := range slices.Chunk(ids, maxQueryParams) {
		args := make([]any, len(chunk))
		for i, id := range chunk {
			args[i] = id.String()
		}

		rows, err := r.db.Query(
			fmt.Sprintf("SELECT payload, fetched_at FROM book_cache WHERE md5 IN (%s)", placeholders(len(chunk))),
			args...,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to query cached books: %w", err)
		}

		for rows.Next() {
			var payload string
			var fetchedAt time.Time
			if err := rows.Scan(&payload, &fetchedAt); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan cached book: %w", err)
			}
			if r.stale(fetchedAt, maxAge) {
				continue
			}
			var book models.Book
			if err := json.Unmarshal([]byte(payload), &book); err != nil {
				continue
			}
			found[book.MD5] = book
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to iterate cached books: %w", err)
		}
	}
	return found, nil
}

// Delete removes the cached book for id.
func (r *BookRepository) Delete(id models.BookID) error {
	if _, err := r.db.Exec("DELETE FROM book_cache WHERE md5 = ?", id.String()); err != nil {
		return fmt.Errorf("failed to delete cached book: %w", err)
	}
	return nil
}

// Prune removes entries fetched more than olderThan ago and returns how many were removed.
func (r *BookRepository) Prune(olderThan time.Duration) (int64, error) {
	cutoff := r.now().UTC().Add(-olderThan)
	result, err := r.db.Exec("DELETE FROM book_cache WHERE fetched_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune book cache: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

// Count returns the number of cached books.
func (r *BookRepository) Count() (int, error) {
	var n int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM book_cache").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count cached books: %w", err)
	}
	return n, nil
}

func (r *BookRepository) stale(fetchedAt time.Time, maxAge time.Duration) bool {
	return maxAge > 0 && r.now().Sub(fetchedAt) > maxAge
}
