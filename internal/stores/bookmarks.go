package stores

import (
	"slices"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/bookrack/internal/models"
	"github.com/desertthunder/bookrack/internal/storage"
)

// NamespaceBookmarks is the durable key owned by [BookmarkStore].
const NamespaceBookmarks = "BR::bookmarks"

// bookmarkSet is an immutable set of ids that remembers insertion order.
type bookmarkSet struct {
	ids     []models.BookID
	members map[models.BookID]struct{}
}

func newBookmarkSet(ids []models.BookID) bookmarkSet {
	set := bookmarkSet{
		ids:     make([]models.BookID, 0, len(ids)),
		members: make(map[models.BookID]struct{}, len(ids)),
	}
	for _, id := range ids {
		if _, dup := set.members[id]; dup {
			continue
		}
		set.members[id] = struct{}{}
		set.ids = append(set.ids, id)
	}
	return set
}

func (s bookmarkSet) has(id models.BookID) bool {
	_, ok := s.members[id]
	return ok
}

func (s bookmarkSet) with(id models.BookID) bookmarkSet {
	return newBookmarkSet(append(slices.Clone(s.ids), id))
}

func (s bookmarkSet) without(id models.BookID) bookmarkSet {
	return newBookmarkSet(slices.DeleteFunc(slices.Clone(s.ids), func(x models.BookID) bool { return x == id }))
}

type bookmarkBlob struct {
	Bookmarks []string `json:"bookmarks"`
}

var bookmarkSchema = Schema[bookmarkSet, bookmarkBlob]{
	Namespace: NamespaceBookmarks,
	Version:   0,
	Initial:   func() bookmarkSet { return newBookmarkSet(nil) },
	Persist: func(s bookmarkSet) bookmarkBlob {
		out := make([]string, len(s.ids))
		for i, id := range s.ids {
			out[i] = string(id)
		}
		return bookmarkBlob{Bookmarks: out}
	},
	Restore: func(b bookmarkBlob) (bookmarkSet, error) {
		ids := make([]models.BookID, len(b.Bookmarks))
		for i, id := range b.Bookmarks {
			ids[i] = models.BookID(id)
		}
		return newBookmarkSet(ids), nil
	},
}

// BookmarkStore is the set of bookmarked books.
//
// Ids are stored opaquely: malformed hashes are accepted and never validated here.
type BookmarkStore struct {
	p *Persisted[bookmarkSet, bookmarkBlob]
}

// NewBookmarkStore hydrates a [BookmarkStore] from st.
func NewBookmarkStore(st storage.Storage, logger *log.Logger) *BookmarkStore {
	return &BookmarkStore{p: NewPersisted(st, bookmarkSchema, logger)}
}

// Toggle adds id if absent or removes it if present, returning the new membership.
func (b *BookmarkStore) Toggle(id models.BookID) bool {
	next := b.p.Update(func(s bookmarkSet) bookmarkSet {
		if s.has(id) {
			return s.without(id)
		}
		return s.with(id)
	})
	return next.has(id)
}

// Remove drops id from the set, reporting whether it was present.
func (b *BookmarkStore) Remove(id models.BookID) bool {
	var removed bool
	b.p.Update(func(s bookmarkSet) bookmarkSet {
		if removed = s.has(id); !removed {
			return s
		}
		return s.without(id)
	})
	return removed
}

// Has reports whether id is bookmarked.
func (b *BookmarkStore) Has(id models.BookID) bool {
	return b.p.State().has(id)
}

// List returns the bookmarked ids. Callers must not rely on the order.
func (b *BookmarkStore) List() []models.BookID {
	return slices.Clone(b.p.State().ids)
}

// Len returns the number of bookmarks.
func (b *BookmarkStore) Len() int {
	return len(b.p.State().ids)
}

// Clear removes every bookmark and the durable entry.
func (b *BookmarkStore) Clear() {
	b.p.Reset()
}

// Subscribe calls fn with the bookmark list after every change.
func (b *BookmarkStore) Subscribe(fn func([]models.BookID)) (cancel func()) {
	return b.p.Subscribe(func(s bookmarkSet) { fn(slices.Clone(s.ids)) })
}

// Err reports the most recent durable write failure.
func (b *BookmarkStore) Err() error { return b.p.Err() }
