package ui

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/bookrack/internal/models"
	"github.com/desertthunder/bookrack/internal/shared"
	"github.com/desertthunder/bookrack/internal/storage"
	"github.com/desertthunder/bookrack/internal/stores"
	"github.com/desertthunder/bookrack/internal/tasks"
	tu "github.com/desertthunder/bookrack/internal/testing"
)

var (
	dune     = models.Book{MD5: "11111111111111111111111111111111", Title: "Dune", Author: "Frank Herbert"}
	hyperion = models.Book{MD5: "22222222222222222222222222222222", Title: "Hyperion", Author: "Dan Simmons"}
)

type fixture struct {
	model   *Model
	stores  *stores.Stores
	storage *storage.MemoryStorage
	catalog *tu.MockCatalog
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st, mem := tu.NewTestStores(t)
	catalog := tu.NewMockCatalog(dune, hyperion)

	read := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	st.Progress.Upsert(dune.MD5, 1, 10, &read)
	st.Bookmarks.Toggle(hyperion.MD5)

	engine := tasks.NewLibraryEngine(st, catalog, shared.NewLogger(io.Discard))
	m := NewModel(context.Background(), st, engine)
	t.Cleanup(m.Close)

	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return &fixture{model: m, stores: st, storage: mem, catalog: catalog}
}

// run executes cmd and feeds the resulting model messages back until none remain.
func (f *fixture) run(t *testing.T, cmd tea.Cmd) {
	t.Helper()
	for range 20 {
		if cmd == nil {
			return
		}
		msg, ok := cmd().(Msg)
		if !ok {
			return
		}
		_, cmd = f.model.Update(msg)
	}
	t.Fatal("command chain did not settle")
}

func (f *fixture) press(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "tab":
			msg = tea.KeyMsg{Type: tea.KeyTab}
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		_, cmd := f.model.Update(msg)
		f.run(t, cmd)
	}
}

func TestModel(t *testing.T) {
	t.Run("Init loads both shelves", func(t *testing.T) {
		f := newFixture(t)
		f.run(t, f.model.Init())

		if f.model.err != nil {
			t.Fatalf("expected no error, got %v", f.model.err)
		}
		if got := len(f.model.reading.Items()); got != 1 {
			t.Errorf("expected 1 reading item, got %d", got)
		}
		if got := len(f.model.bookmarks.Items()); got != 1 {
			t.Errorf("expected 1 bookmark item, got %d", got)
		}
		if f.stores.Layout.PageTitle() != "Reading" {
			t.Errorf("expected Reading title, got %q", f.stores.Layout.PageTitle())
		}
		if view := f.model.View(); !strings.Contains(view, "Dune") || !strings.Contains(view, "p. 1/10") {
			t.Errorf("expected reading entry in view, got:\n%s", view)
		}
	})

	t.Run("tab switches view and page title", func(t *testing.T) {
		f := newFixture(t)
		f.run(t, f.model.Init())

		f.press(t, "tab")
		if f.model.view != BookmarksView || f.stores.Layout.PageTitle() != "Bookmarks" {
			t.Errorf("expected bookmarks view, got %v %q", f.model.view, f.stores.Layout.PageTitle())
		}
		f.press(t, "tab")
		if f.model.view != ReadingView {
			t.Errorf("expected reading view, got %v", f.model.view)
		}
	})

	t.Run("sidebar toggle is persisted without the title", func(t *testing.T) {
		f := newFixture(t)
		f.run(t, f.model.Init())

		f.press(t, "s")
		if !f.stores.Layout.SidebarOpen() {
			t.Fatal("expected sidebar open")
		}
		raw, ok, err := f.storage.Get(stores.NamespaceLayout)
		if err != nil || !ok {
			t.Fatalf("expected layout entry, got %v %v", ok, err)
		}
		if !strings.Contains(raw, `"isOpen":true`) || strings.Contains(raw, "Reading") {
			t.Errorf("unexpected layout blob %s", raw)
		}
		if view := f.model.View(); !strings.Contains(view, "Page size") {
			t.Errorf("expected sidebar in view, got:\n%s", view)
		}
	})

	t.Run("page turns go through the engine", func(t *testing.T) {
		f := newFixture(t)
		f.run(t, f.model.Init())

		f.press(t, "+", "+", "-")
		p, _ := f.stores.Progress.Find(dune.MD5)
		if p.CurrentPage != 2 {
			t.Errorf("expected page 2, got %d", p.CurrentPage)
		}
		if !strings.Contains(f.model.status, "page 2") {
			t.Errorf("unexpected status %q", f.model.status)
		}
	})

	t.Run("bookmark toggle rebuilds shelves", func(t *testing.T) {
		f := newFixture(t)
		f.run(t, f.model.Init())

		f.press(t, "b")
		if !f.stores.Bookmarks.Has(dune.MD5) {
			t.Fatal("expected dune bookmarked")
		}
		if got := len(f.model.bookmarks.Items()); got != 2 {
			t.Errorf("expected 2 bookmark items, got %d", got)
		}
	})

	t.Run("theme toggle switches palette", func(t *testing.T) {
		f := newFixture(t)
		f.press(t, "t")
		if f.stores.Settings.Get().Theme != models.ThemeDark {
			t.Errorf("expected dark theme, got %q", f.stores.Settings.Get().Theme)
		}
		if f.model.palette != themes[models.ThemeDark] {
			t.Error("expected dark palette")
		}
	})

	t.Run("remove drops bookmark and progress", func(t *testing.T) {
		f := newFixture(t)
		f.run(t, f.model.Init())

		f.press(t, "x")
		if _, ok := f.stores.Progress.Find(dune.MD5); ok {
			t.Error("expected progress removed")
		}
		if got := len(f.model.reading.Items()); got != 0 {
			t.Errorf("expected empty reading shelf, got %d", got)
		}
	})

	t.Run("search and bookmark a result", func(t *testing.T) {
		f := newFixture(t)
		f.run(t, f.model.Init())

		f.press(t, "/")
		if f.model.view != SearchView || !f.model.input.Focused() {
			t.Fatal("expected focused search input")
		}
		f.press(t, "hyp", "enter")
		if got := len(f.model.results.Items()); got != 1 {
			t.Fatalf("expected 1 result, got %d", got)
		}

		f.press(t, "b")
		if f.stores.Bookmarks.Has(hyperion.MD5) {
			t.Error("expected hyperion bookmark toggled off")
		}
		item := f.model.results.SelectedItem().(bookItem)
		if item.bookmarked {
			t.Error("expected result to show unbookmarked")
		}

		f.press(t, "esc")
		if f.model.view != ReadingView {
			t.Errorf("expected to return to reading, got %v", f.model.view)
		}
	})

	t.Run("load failure is shown", func(t *testing.T) {
		f := newFixture(t)
		f.catalog.ResolveErr = shared.ErrServiceUnavailable
		f.run(t, f.model.Init())

		if f.model.err == nil {
			t.Fatal("expected error")
		}
		if view := f.model.View(); !strings.Contains(view, "press r to retry") {
			t.Errorf("expected retry hint, got:\n%s", view)
		}
	})
}
