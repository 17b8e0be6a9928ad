package models

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("read failed") }

func TestBookID(t *testing.T) {
	t.Run("ContentKey", func(t *testing.T) {
		id, err := ContentKey(strings.NewReader("hello"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if id != "5d41402abc4b2a76b9719d911017c592" {
			t.Errorf("unexpected md5: %s", id)
		}
		if !id.Valid() {
			t.Error("content key should be valid")
		}
	})

	t.Run("ContentKey Is Stable", func(t *testing.T) {
		a, _ := ContentKey(strings.NewReader("same bytes"))
		b, _ := ContentKey(strings.NewReader("same bytes"))
		if a != b {
			t.Errorf("expected identical keys, got %s and %s", a, b)
		}
	})

	t.Run("ContentKey Read Failure", func(t *testing.T) {
		if _, err := ContentKey(failingReader{}); err == nil {
			t.Error("expected error from failing reader")
		}
	})

	t.Run("ContentKeyFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "book.epub")
		if err := os.WriteFile(path, []byte("hello"), 0644); err != nil {
			t.Fatal(err)
		}
		id, err := ContentKeyFile(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if id != "5d41402abc4b2a76b9719d911017c592" {
			t.Errorf("unexpected md5: %s", id)
		}

		if _, err := ContentKeyFile(filepath.Join(t.TempDir(), "missing")); err == nil {
			t.Error("expected error for missing file")
		}
	})

	t.Run("Valid", func(t *testing.T) {
		tc := map[BookID]bool{
			"5d41402abc4b2a76b9719d911017c592":  true,
			"5D41402ABC4B2A76B9719D911017C592":  false,
			"abc123":                            false,
			"5d41402abc4b2a76b9719d911017c59z":  false,
			"":                                  false,
			"5d41402abc4b2a76b9719d911017c5920": false,
		}
		for id, want := range tc {
			if got := id.Valid(); got != want {
				t.Errorf("%q.Valid() = %v, want %v", id, got, want)
			}
		}
	})

	t.Run("ParseBookID", func(t *testing.T) {
		if got := ParseBookID("  5D41402ABC4B2A76B9719D911017C592 "); got != "5d41402abc4b2a76b9719d911017c592" {
			t.Errorf("unexpected parse: %q", got)
		}
		if got := ParseBookID("not-a-hash"); got != "not-a-hash" {
			t.Errorf("malformed ids should pass through, got %q", got)
		}
	})
}

func TestBook(t *testing.T) {
	t.Run("DownloadLinks", func(t *testing.T) {
		b := Book{
			Link: "https://cdn.example.com/a.epub",
			ExternalDownloads: []ExternalDownload{
				{Name: "IPFS", Link: "https://ipfs.io/ipfs/Qm123?filename=a.epub"},
				{Name: "empty"},
			},
		}
		links := b.DownloadLinks()
		if len(links) != 2 {
			t.Fatalf("expected 2 links, got %v", links)
		}
		if links[0] != b.Link {
			t.Errorf("primary link should come first, got %s", links[0])
		}
	})

	t.Run("Extension", func(t *testing.T) {
		tc := map[string]string{"EPUB": "epub", ".pdf": "pdf", "": "bin", " mobi ": "mobi"}
		for in, want := range tc {
			if got := (Book{FileType: in}).Extension(); got != want {
				t.Errorf("Extension(%q) = %q, want %q", in, got, want)
			}
		}
	})
}

func TestReadingProgress(t *testing.T) {
	tc := []struct {
		name     string
		progress ReadingProgress
		active   bool
		complete bool
		percent  float64
	}{
		{name: "unknown total", progress: ReadingProgress{CurrentPage: 4}, percent: 0},
		{name: "not started", progress: ReadingProgress{CurrentPage: 0, TotalPages: 200}, active: true, percent: 0},
		{name: "in progress", progress: ReadingProgress{CurrentPage: 10, TotalPages: 200}, active: true, percent: 5},
		{name: "finished", progress: ReadingProgress{CurrentPage: 200, TotalPages: 200}, complete: true, percent: 100},
		{name: "past the end", progress: ReadingProgress{CurrentPage: 250, TotalPages: 200}, complete: true, percent: 100},
		{name: "negative page", progress: ReadingProgress{CurrentPage: -3, TotalPages: 200}, active: true, percent: 0},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.progress.Active(); got != tt.active {
				t.Errorf("Active() = %v, want %v", got, tt.active)
			}
			if got := tt.progress.Complete(); got != tt.complete {
				t.Errorf("Complete() = %v, want %v", got, tt.complete)
			}
			if got := tt.progress.Percent(); got != tt.percent {
				t.Errorf("Percent() = %v, want %v", got, tt.percent)
			}
		})
	}
}

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()
	if s.BooksPerSearch != DefaultBooksPerSearch || s.Theme != ThemeLight {
		t.Errorf("unexpected defaults: %+v", s)
	}
}

func TestLibraryView(t *testing.T) {
	t.Run("Entries dedupes reading and bookmarks", func(t *testing.T) {
		view := LibraryView{
			Reading:   []LibraryEntry{{Book: Book{MD5: "a"}, Bookmarked: true}, {Book: Book{MD5: "b"}}},
			Bookmarks: []LibraryEntry{{Book: Book{MD5: "a"}, Bookmarked: true}, {Book: Book{MD5: "c"}, Bookmarked: true}},
		}
		entries := view.Entries()
		if len(entries) != 3 {
			t.Fatalf("expected 3 entries, got %d", len(entries))
		}
		if entries[0].Book.MD5 != "a" || entries[2].Book.MD5 != "c" {
			t.Errorf("unexpected order: %+v", entries)
		}
	})
}
