package storage

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/bookrack/internal/shared"
	"github.com/dgraph-io/badger/v4"
)

// BadgerStorage is a [Storage] backed by a badger database directory.
type BadgerStorage struct {
	db *badger.DB
}

// OpenBadger opens (or creates) a badger database in dir.
func OpenBadger(dir string, logger *log.Logger) (*BadgerStorage, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: badger storage needs a directory", shared.ErrInvalidConfig)
	}
	return openBadger(badger.DefaultOptions(dir), logger)
}

// OpenBadgerInMemory opens a badger database that never touches disk.
func OpenBadgerInMemory(logger *log.Logger) (*BadgerStorage, error) {
	return openBadger(badger.DefaultOptions("").WithInMemory(true), logger)
}

func openBadger(opts badger.Options, logger *log.Logger) (*BadgerStorage, error) {
	opts.Logger = nil
	opts.SyncWrites = true

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	if logger != nil {
		logger.Debug("badger storage opened", "dir", opts.Dir, "in_memory", opts.InMemory)
	}
	return &BadgerStorage{db: db}, nil
}

// Get implements [Storage].
func (b *BadgerStorage) Get(key string) (string, bool, error) {
	if b.db.IsClosed() {
		return "", false, shared.ErrStorageClosed
	}

	var value []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return string(value), true, nil
}

// Set implements [Storage].
func (b *BadgerStorage) Set(key, value string) error {
	if b.db.IsClosed() {
		return shared.ErrStorageClosed
	}
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), []byte(value))
	})
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// Delete implements [Storage].
func (b *BadgerStorage) Delete(key string) error {
	if b.db.IsClosed() {
		return shared.ErrStorageClosed
	}
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// Close implements [Storage].
func (b *BadgerStorage) Close() error {
	if b.db.IsClosed() {
		return nil
	}
	return b.db.Close()
}
