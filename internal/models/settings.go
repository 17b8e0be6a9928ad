package models

// Theme names understood by the UI. The settings store accepts any string.
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// DefaultBooksPerSearch is the page size used until the reader picks another.
const DefaultBooksPerSearch = 11

// Settings holds reader preferences.
type Settings struct {
	BooksPerSearch int    `json:"booksPerSearch"`
	Theme          string `json:"theme"`
}

// DefaultSettings returns the settings of a fresh install.
func DefaultSettings() Settings {
	return Settings{BooksPerSearch: DefaultBooksPerSearch, Theme: ThemeLight}
}

// Layout holds UI chrome state. PageTitle is derived from the current view and never persisted.
type Layout struct {
	SidebarOpen bool   `json:"isOpen"`
	PageTitle   string `json:"-"`
}
