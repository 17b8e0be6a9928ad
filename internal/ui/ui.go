package ui

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/bookrack/internal/models"
	"github.com/desertthunder/bookrack/internal/stores"
	"github.com/desertthunder/bookrack/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	ReadingView ViewState = iota
	BookmarksView
	SearchView
)

// Title is the page title stored in the layout store while the view is shown.
func (v ViewState) Title() string {
	switch v {
	case ReadingView:
		return "Reading"
	case BookmarksView:
		return "Bookmarks"
	case SearchView:
		return "Search"
	default:
		return ""
	}
}

// Model represents the TUI application state.
type Model struct {
	ctx      context.Context
	view     ViewState
	previous ViewState
	stores   *stores.Stores
	engine   *tasks.LibraryEngine
	width    int
	height   int

	reading   list.Model
	bookmarks list.Model
	results   list.Model
	input     textinput.Model

	// books is the catalog metadata seen so far, by content hash.
	books      map[models.BookID]models.Book
	unresolved int
	loading    bool
	status     string
	err        error

	progressChan chan tasks.ProgressUpdate
	doneChan     chan Msg

	palette *Palette
	help    help.Model
	keys    keyMap
	cancel  []func()
}

// NewModel creates a new TUI model over the stores and the engine.
func NewModel(ctx context.Context, st *stores.Stores, engine *tasks.LibraryEngine) *Model {
	input := textinput.New()
	input.Placeholder = "title, author, isbn..."
	input.CharLimit = 200

	m := &Model{
		ctx:       ctx,
		view:      ReadingView,
		stores:    st,
		engine:    engine,
		reading:   newList("Reading"),
		bookmarks: newList("Bookmarks"),
		results:   newList("Results"),
		input:     input,
		books:     map[models.BookID]models.Book{},
		palette:   paletteFor(st.Settings.Get().Theme),
		help:      help.New(),
		keys:      newKeyMap(),
	}

	m.cancel = append(m.cancel,
		st.Settings.Subscribe(func(s models.Settings) { m.palette = paletteFor(s.Theme) }),
		st.Bookmarks.Subscribe(func([]models.BookID) { m.rebuildLists() }),
		st.Progress.Subscribe(func([]models.ReadingProgress) { m.rebuildLists() }),
	)
	return m
}

// Close unregisters the store subscriptions.
func (m *Model) Close() {
	for _, cancel := range m.cancel {
		cancel()
	}
	m.cancel = nil
}

// Init loads the library from the catalog.
func (m *Model) Init() tea.Cmd {
	m.setView(ReadingView)
	return m.loadLibrary()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case tea.KeyMsg:
		if m.view == SearchView {
			return m.handleSearchKeys(msg)
		}
		return m.handleLibraryKeys(msg)

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateLists(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgProgressUpdate:
		update := msg.data.(tasks.ProgressUpdate)
		m.status = update.Message
		if m.doneChan == nil {
			return m, nil
		}
		return m, m.waitForProgress()

	case MsgLibraryLoaded:
		data := msg.data.(libraryLoaded)
		m.loading = false
		m.progressChan, m.doneChan = nil, nil
		m.err = data.err
		if data.err != nil {
			m.status = ""
			return m, nil
		}
		for _, e := range data.view.Entries() {
			m.books[e.Book.MD5] = e.Book
		}
		m.status = fmt.Sprintf("Loaded %d books", len(m.books))
		m.rebuildLists()
		return m, nil

	case MsgSearchCompleted:
		data := msg.data.(searchCompleted)
		m.loading = false
		m.err = data.err
		if data.err != nil {
			return m, nil
		}
		for _, b := range data.books {
			m.books[b.MD5] = b
		}
		items := make([]list.Item, len(data.books))
		for i, b := range data.books {
			items[i] = bookItem{book: b, bookmarked: m.stores.Bookmarks.Has(b.MD5)}
		}
		m.results.Title = fmt.Sprintf("Results for '%s'", data.query)
		m.results.SetItems(items)
		m.status = fmt.Sprintf("%d results", len(data.books))
		return m, nil
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	header := m.palette.title.Render(m.stores.Layout.PageTitle())

	var body string
	switch m.view {
	case ReadingView:
		body = m.renderList(m.reading, "Nothing in progress. Import a file or turn a page to start.")
	case BookmarksView:
		body = m.renderList(m.bookmarks, "No bookmarks yet. Press / to search the catalog.")
	case SearchView:
		body = m.renderSearch()
	}

	if m.stores.Layout.SidebarOpen() {
		body = lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(), body)
	}

	return fmt.Sprintf("%s\n%s\n%s\n\n%s", header, body, m.renderStatus(), m.help.View(m.keys))
}

func (m *Model) handleLibraryKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.next):
		if m.view == ReadingView {
			m.setView(BookmarksView)
		} else {
			m.setView(ReadingView)
		}
		return m, nil
	case key.Matches(msg, m.keys.sidebar):
		m.stores.Layout.ToggleSidebar()
		m.resize()
		return m, nil
	case key.Matches(msg, m.keys.theme):
		m.toggleTheme()
		return m, nil
	case key.Matches(msg, m.keys.search):
		m.previous = m.view
		m.setView(SearchView)
		m.input.Focus()
		return m, textinput.Blink
	case key.Matches(msg, m.keys.refresh):
		if m.loading {
			return m, nil
		}
		return m, m.loadLibrary()
	case key.Matches(msg, m.keys.bookmark):
		if e, ok := m.selectedEntry(); ok {
			m.stores.Bookmarks.Toggle(e.Book.MD5)
		}
		return m, nil
	case key.Matches(msg, m.keys.forward):
		m.turn(1)
		return m, nil
	case key.Matches(msg, m.keys.backward):
		m.turn(-1)
		return m, nil
	case key.Matches(msg, m.keys.remove):
		if e, ok := m.selectedEntry(); ok {
			m.engine.RemoveFromLibrary(e.Book.MD5)
			m.status = "Removed " + e.Book.Title
		}
		return m, nil
	}

	return m.updateLists(msg)
}

func (m *Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.input.Focused() {
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "esc":
			m.input.Blur()
			return m, nil
		case "enter":
			query := strings.TrimSpace(m.input.Value())
			if query == "" {
				return m, nil
			}
			m.input.Blur()
			return m, m.search(query)
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.setView(m.previous)
		return m, nil
	case key.Matches(msg, m.keys.search):
		m.input.Focus()
		return m, textinput.Blink
	case key.Matches(msg, m.keys.sidebar):
		m.stores.Layout.ToggleSidebar()
		m.resize()
		return m, nil
	case key.Matches(msg, m.keys.bookmark):
		if item, ok := m.results.SelectedItem().(bookItem); ok {
			item.bookmarked = m.stores.Bookmarks.Toggle(item.book.MD5)
			m.results.SetItem(m.results.Index(), item)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.results, cmd = m.results.Update(msg)
	return m, cmd
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case ReadingView:
		m.reading, cmd = m.reading.Update(msg)
	case BookmarksView:
		m.bookmarks, cmd = m.bookmarks.Update(msg)
	case SearchView:
		m.results, cmd = m.results.Update(msg)
	}
	return m, cmd
}

// setView switches views and records the page title in the layout store.
func (m *Model) setView(v ViewState) {
	m.view = v
	m.stores.Layout.SetPageTitle(v.Title())
}

func (m *Model) toggleTheme() {
	theme := models.ThemeDark
	if m.stores.Settings.Get().Theme == models.ThemeDark {
		theme = models.ThemeLight
	}
	m.stores.Settings.SetTheme(theme)
}

func (m *Model) turn(delta int) {
	e, ok := m.selectedEntry()
	if !ok {
		return
	}
	p, ok := m.engine.Turn(e.Book.MD5, delta)
	if !ok {
		m.status = fmt.Sprintf("%s has no reading progress yet", e.Book.Title)
		return
	}
	m.status = fmt.Sprintf("%s: page %d", e.Book.Title, p.CurrentPage)
}

func (m *Model) selectedEntry() (models.LibraryEntry, bool) {
	var selected list.Item
	switch m.view {
	case ReadingView:
		selected = m.reading.SelectedItem()
	case BookmarksView:
		selected = m.bookmarks.SelectedItem()
	}
	item, ok := selected.(entryItem)
	return item.entry, ok
}

// rebuildLists recomputes both shelves from the stores and the known metadata.
func (m *Model) rebuildLists() {
	var reading, bookmarked []list.Item
	missing := 0

	active := m.stores.Progress.ListActive()
	slices.SortStableFunc(active, func(a, b models.ReadingProgress) int {
		return readAt(b).Compare(readAt(a))
	})
	for _, p := range active {
		book, ok := m.books[p.MD5]
		if !ok {
			missing++
			continue
		}
		record := p
		reading = append(reading, entryItem{models.LibraryEntry{Book: book, Progress: &record, Bookmarked: m.stores.Bookmarks.Has(p.MD5)}})
	}

	for _, id := range m.stores.Bookmarks.List() {
		book, ok := m.books[id]
		if !ok {
			missing++
			continue
		}
		entry := models.LibraryEntry{Book: book, Bookmarked: true}
		if p, ok := m.stores.Progress.Find(id); ok {
			entry.Progress = &p
		}
		bookmarked = append(bookmarked, entryItem{entry})
	}

	m.unresolved = missing
	m.reading.SetItems(reading)
	m.bookmarks.SetItems(bookmarked)
}

func readAt(p models.ReadingProgress) time.Time {
	if p.LastRead == nil {
		return time.Time{}
	}
	return *p.LastRead
}

func (m *Model) resize() {
	w := m.width - 4
	if m.stores.Layout.SidebarOpen() {
		w -= sidebarWidth + 4
	}
	h := m.height - 8
	for _, l := range []*list.Model{&m.reading, &m.bookmarks, &m.results} {
		l.SetSize(max(w, 0), max(h, 0))
	}
	m.input.Width = max(w-4, 10)
}

func (m *Model) loadLibrary() tea.Cmd {
	m.loading = true
	m.err = nil
	m.status = "Loading library..."

	prog := make(chan tasks.ProgressUpdate, 8)
	done := make(chan Msg, 1)
	m.progressChan, m.doneChan = prog, done
	go func() {
		view, err := m.engine.Library(m.ctx, prog)
		done <- libraryLoadedMsg(view, err)
	}()
	return m.waitForProgress()
}

// waitForProgress returns the next progress update, or the final message once the operation is done.
func (m *Model) waitForProgress() tea.Cmd {
	prog, done := m.progressChan, m.doneChan
	return func() tea.Msg {
		select {
		case msg := <-done:
			return msg
		case update := <-prog:
			return progressUpdateMsg(update)
		}
	}
}

func (m *Model) search(query string) tea.Cmd {
	m.loading = true
	m.err = nil
	m.status = fmt.Sprintf("Searching for '%s'...", query)
	return func() tea.Msg {
		books, err := m.engine.Search(m.ctx, query)
		return searchCompletedMsg(query, books, err)
	}
}

const sidebarWidth = 24

func (m *Model) renderSidebar() string {
	settings := m.stores.Settings.Get()
	lines := []string{
		m.palette.As("Library", m.palette.accent),
		"",
		fmt.Sprintf("Reading     %d", len(m.reading.Items())),
		fmt.Sprintf("Bookmarks   %d", m.stores.Bookmarks.Len()),
		fmt.Sprintf("Finished    %d", len(m.stores.Progress.ListComplete())),
	}
	if m.unresolved > 0 {
		lines = append(lines, m.palette.warn.Render(fmt.Sprintf("Unresolved  %d", m.unresolved)))
	}
	lines = append(lines,
		"",
		fmt.Sprintf("Theme       %s", settings.Theme),
		fmt.Sprintf("Page size   %d", settings.BooksPerSearch),
	)
	return m.palette.sidebar.Width(sidebarWidth).Render(strings.Join(lines, "\n"))
}

func (m *Model) renderList(l list.Model, empty string) string {
	if len(l.Items()) == 0 && !m.loading {
		return m.palette.help.Render(empty)
	}
	return l.View()
}

func (m *Model) renderSearch() string {
	prompt := m.input.View()
	if len(m.results.Items()) == 0 {
		return prompt
	}
	return fmt.Sprintf("%s\n\n%s", prompt, m.results.View())
}

func (m *Model) renderStatus() string {
	if err := m.stores.Err(); err != nil {
		return m.palette.err.Render(fmt.Sprintf("Changes are not being saved: %v", err))
	}
	if m.err != nil {
		return m.palette.err.Render(fmt.Sprintf("Error: %v (press r to retry)", m.err))
	}
	if m.loading {
		return m.palette.warn.Render(m.status)
	}
	return m.palette.ok.Render(m.status)
}
