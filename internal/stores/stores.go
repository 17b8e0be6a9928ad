package stores

import (
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/bookrack/internal/storage"
)

// Options configures [Open].
type Options struct {
	Logger *log.Logger
	// Clock stamps progress records. Defaults to time.Now.
	Clock func() time.Time
}

// Stores bundles the four client-side stores over one [storage.Storage].
type Stores struct {
	Bookmarks *BookmarkStore
	Progress  *ProgressStore
	Settings  *SettingsStore
	Layout    *LayoutStore
}

// Namespaces returns the durable keys, one per store.
func Namespaces() []string {
	return []string{NamespaceBookmarks, NamespaceProgress, NamespaceSettings, NamespaceLayout}
}

// Open hydrates every store from st.
func Open(st storage.Storage, opts Options) *Stores {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Stores{
		Bookmarks: NewBookmarkStore(st, logger),
		Progress:  NewProgressStore(st, logger, opts.Clock),
		Settings:  NewSettingsStore(st, logger),
		Layout:    NewLayoutStore(st, logger),
	}
}

// Err joins the latest write failure of every store.
func (s *Stores) Err() error {
	return errors.Join(s.Bookmarks.Err(), s.Progress.Err(), s.Settings.Err(), s.Layout.Err())
}
