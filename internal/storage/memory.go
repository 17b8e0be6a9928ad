package storage

import (
	"maps"
	"sync"

	"github.com/desertthunder/bookrack/internal/shared"
)

// MemoryStorage is a [Storage] backed by a map. Contents are lost when the process exits.
type MemoryStorage struct {
	mu      sync.RWMutex
	entries map[string]string
	closed  bool
}

// NewMemoryStorage creates an empty [MemoryStorage].
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{entries: make(map[string]string)}
}

// Get implements [Storage].
func (m *MemoryStorage) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return "", false, shared.ErrStorageClosed
	}
	v, ok := m.entries[key]
	return v, ok, nil
}

// Set implements [Storage].
func (m *MemoryStorage) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return shared.ErrStorageClosed
	}
	m.entries[key] = value
	return nil
}

// Delete implements [Storage].
func (m *MemoryStorage) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return shared.ErrStorageClosed
	}
	delete(m.entries, key)
	return nil
}

// Close implements [Storage].
func (m *MemoryStorage) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Snapshot returns a copy of every entry. Used by tests to inspect durable state.
func (m *MemoryStorage) Snapshot() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.entries)
}
