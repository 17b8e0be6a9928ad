package stores

import (
	"github.com/charmbracelet/log"
	"github.com/desertthunder/bookrack/internal/models"
	"github.com/desertthunder/bookrack/internal/storage"
)

// NamespaceSettings is the durable key owned by [SettingsStore].
const NamespaceSettings = "BR::settings"

// settingsBlob uses pointers so fields missing from an older entry keep their defaults.
type settingsBlob struct {
	BooksPerSearch *int    `json:"booksPerSearch"`
	Theme          *string `json:"theme"`
}

var settingsSchema = Schema[models.Settings, settingsBlob]{
	Namespace: NamespaceSettings,
	Version:   0,
	Initial:   models.DefaultSettings,
	Persist: func(s models.Settings) settingsBlob {
		return settingsBlob{BooksPerSearch: &s.BooksPerSearch, Theme: &s.Theme}
	},
	Restore: func(b settingsBlob) (models.Settings, error) {
		s := models.DefaultSettings()
		if b.BooksPerSearch != nil {
			s.BooksPerSearch = max(1, *b.BooksPerSearch)
		}
		if b.Theme != nil {
			s.Theme = *b.Theme
		}
		return s, nil
	},
}

// SettingsStore holds user preferences.
type SettingsStore struct {
	p *Persisted[models.Settings, settingsBlob]
}

// NewSettingsStore hydrates a [SettingsStore] from st.
func NewSettingsStore(st storage.Storage, logger *log.Logger) *SettingsStore {
	return &SettingsStore{p: NewPersisted(st, settingsSchema, logger)}
}

// Get returns the current settings.
func (s *SettingsStore) Get() models.Settings {
	return s.p.State()
}

// SetBooksPerSearch stores n, raised to 1 when smaller. The stored value is returned.
func (s *SettingsStore) SetBooksPerSearch(n int) int {
	next := s.p.Update(func(cur models.Settings) models.Settings {
		cur.BooksPerSearch = max(1, n)
		return cur
	})
	return next.BooksPerSearch
}

// SetTheme stores theme as given. Unknown names are kept and rendered with the light palette.
func (s *SettingsStore) SetTheme(theme string) {
	s.p.Update(func(cur models.Settings) models.Settings {
		cur.Theme = theme
		return cur
	})
}

// Reset restores the defaults.
func (s *SettingsStore) Reset() models.Settings {
	return s.p.Reset()
}

// Subscribe calls fn after every change.
func (s *SettingsStore) Subscribe(fn func(models.Settings)) (cancel func()) {
	return s.p.Subscribe(fn)
}

// Err reports the most recent durable write failure.
func (s *SettingsStore) Err() error { return s.p.Err() }
