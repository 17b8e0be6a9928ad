// Package stores implements the client's persisted state: bookmarks, reading progress, settings and layout.
//
// Every store is a thin typed facade over [Persisted], which owns one namespace of a [storage.Storage].
// On construction a store hydrates from its namespace and falls back to its initial state when the entry is
// absent, unparsable, written by another schema version, or rejected by the store's Restore function. Mutations
// merge into the in-memory state, write the persisted subset immediately, and notify subscribers.
//
// The in-memory copy is the source of truth after load. A failed durable write is logged and reported by
// Err, but never rolls the in-memory state back.
//
// Stores are built once per process by [Open] and handed to consumers by reference.
package stores
