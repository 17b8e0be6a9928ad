// Package storage implements the durable key-value contract consumed by the persisted stores.
//
// A [Storage] maps string keys (store namespaces such as "BR::progress") to string blobs.
// Writes are atomic per key and there are no multi-key transactions. Three drivers exist:
//   - [SQLiteStorage] : rows in the kv_entries table, sharing the metadata cache database
//   - [BadgerStorage] : one badger key per namespace in a dedicated directory
//   - [MemoryStorage] : process-local map for tests and ephemeral sessions
package storage

import (
	"database/sql"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/bookrack/internal/shared"
)

// Storage is a namespaced get/set contract over string keys and string blobs.
type Storage interface {
	// Get returns the blob stored under key. ok is false when the key is absent.
	Get(key string) (value string, ok bool, err error)

	// Set replaces the blob stored under key.
	Set(key, value string) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(key string) error

	// Close releases the backend. Later calls return [shared.ErrStorageClosed].
	Close() error
}

// Options selects and configures a [Storage] driver.
type Options struct {
	Driver    string  // sqlite, badger or memory
	DB        *sql.DB // required by the sqlite driver; migrations must have run
	BadgerDir string  // required by the badger driver
	Logger    *log.Logger
}

// Open constructs the driver named by opts.Driver.
func Open(opts Options) (Storage, error) {
	switch opts.Driver {
	case "sqlite", "":
		if opts.DB == nil {
			return nil, fmt.Errorf("%w: sqlite storage needs a database", shared.ErrInvalidConfig)
		}
		return NewSQLiteStorage(opts.DB), nil
	case "badger":
		return OpenBadger(opts.BadgerDir, opts.Logger)
	case "memory":
		return NewMemoryStorage(), nil
	default:
		return nil, fmt.Errorf("%w: %q", shared.ErrUnknownDriver, opts.Driver)
	}
}
