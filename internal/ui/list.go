package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/bookrack/internal/models"
)

var (
	_ list.Item = entryItem{}
	_ list.Item = bookItem{}
)

// entryItem wraps [models.LibraryEntry] to implement [list.Item].
type entryItem struct {
	entry models.LibraryEntry
}

func (i entryItem) FilterValue() string { return i.entry.Book.Title }
func (i entryItem) Title() string {
	if i.entry.Bookmarked {
		return "★ " + i.entry.Book.Title
	}
	return i.entry.Book.Title
}
func (i entryItem) Description() string {
	parts := []string{i.entry.Book.Author}
	if p := i.entry.Progress; p != nil {
		switch {
		case p.TotalPages > 0:
			parts = append(parts, fmt.Sprintf("p. %d/%d (%.0f%%)", p.CurrentPage, p.TotalPages, p.Percent()))
		default:
			parts = append(parts, fmt.Sprintf("p. %d", p.CurrentPage))
		}
	}
	return joinNonEmpty(parts)
}

// bookItem wraps a catalog search result to implement [list.Item].
type bookItem struct {
	book       models.Book
	bookmarked bool
}

func (i bookItem) FilterValue() string { return i.book.Title }
func (i bookItem) Title() string {
	if i.bookmarked {
		return "★ " + i.book.Title
	}
	return i.book.Title
}
func (i bookItem) Description() string {
	return joinNonEmpty([]string{i.book.Author, i.book.Year, strings.ToUpper(i.book.FileType), i.book.Size})
}

func joinNonEmpty(parts []string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " • ")
}

// newList creates a list with the built-in filter and quit bindings disabled; the model handles those keys.
func newList(title string) list.Model {
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = title
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	l.KeyMap.Quit.SetEnabled(false)
	l.KeyMap.ForceQuit.SetEnabled(false)
	return l
}
