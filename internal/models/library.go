package models

import "time"

// LibraryEntry is a book in the reader's library with its local state.
type LibraryEntry struct {
	Book       Book             `json:"book" yaml:"book"`
	Progress   *ReadingProgress `json:"progress,omitempty" yaml:"progress,omitempty"`
	Bookmarked bool             `json:"bookmarked" yaml:"bookmarked"`
}

// LibraryView merges the bookmark and progress stores with catalog metadata.
//
// Reading holds active progress records whose books resolved. Unresolved lists ids the catalog did not know.
type LibraryView struct {
	Reading     []LibraryEntry `json:"reading" yaml:"reading"`
	Bookmarks   []LibraryEntry `json:"bookmarks" yaml:"bookmarks"`
	Unresolved  []BookID       `json:"unresolved,omitempty" yaml:"unresolved,omitempty"`
	GeneratedAt time.Time      `json:"generated_at" yaml:"generated_at"`
}

// Entries returns every distinct entry, reading first.
func (v *LibraryView) Entries() []LibraryEntry {
	seen := make(map[BookID]bool, len(v.Reading)+len(v.Bookmarks))
	out := make([]LibraryEntry, 0, len(v.Reading)+len(v.Bookmarks))
	for _, group := range [][]LibraryEntry{v.Reading, v.Bookmarks} {
		for _, e := range group {
			if seen[e.Book.MD5] {
				continue
			}
			seen[e.Book.MD5] = true
			out = append(out, e)
		}
	}
	return out
}
