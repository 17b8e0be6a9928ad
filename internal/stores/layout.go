package stores

import (
	"github.com/charmbracelet/log"
	"github.com/desertthunder/bookrack/internal/models"
	"github.com/desertthunder/bookrack/internal/storage"
)

// NamespaceLayout is the durable key owned by [LayoutStore].
const NamespaceLayout = "BR::layout"

// layoutBlob is the persisted subset of [models.Layout]. The page title is never written.
type layoutBlob struct {
	IsOpen bool `json:"isOpen"`
}

var layoutSchema = Schema[models.Layout, layoutBlob]{
	Namespace: NamespaceLayout,
	Version:   0,
	Initial:   func() models.Layout { return models.Layout{} },
	Persist:   func(l models.Layout) layoutBlob { return layoutBlob{IsOpen: l.SidebarOpen} },
	Restore: func(b layoutBlob) (models.Layout, error) {
		return models.Layout{SidebarOpen: b.IsOpen}, nil
	},
}

// LayoutStore holds the sidebar state and the current page title.
type LayoutStore struct {
	p *Persisted[models.Layout, layoutBlob]
}

// NewLayoutStore hydrates a [LayoutStore] from st. The page title always starts empty.
func NewLayoutStore(st storage.Storage, logger *log.Logger) *LayoutStore {
	return &LayoutStore{p: NewPersisted(st, layoutSchema, logger)}
}

// Get returns the current layout.
func (l *LayoutStore) Get() models.Layout {
	return l.p.State()
}

// SidebarOpen reports whether the sidebar is open.
func (l *LayoutStore) SidebarOpen() bool {
	return l.p.State().SidebarOpen
}

// PageTitle returns the current page title.
func (l *LayoutStore) PageTitle() string {
	return l.p.State().PageTitle
}

// ToggleSidebar flips the sidebar and returns the new value.
func (l *LayoutStore) ToggleSidebar() bool {
	return l.p.Update(func(cur models.Layout) models.Layout {
		cur.SidebarOpen = !cur.SidebarOpen
		return cur
	}).SidebarOpen
}

// SetSidebarOpen sets the sidebar state.
func (l *LayoutStore) SetSidebarOpen(open bool) {
	l.p.Update(func(cur models.Layout) models.Layout {
		cur.SidebarOpen = open
		return cur
	})
}

// SetPageTitle updates the title shown in the header.
func (l *LayoutStore) SetPageTitle(title string) {
	l.p.Update(func(cur models.Layout) models.Layout {
		cur.PageTitle = title
		return cur
	})
}

// Subscribe calls fn after every change.
func (l *LayoutStore) Subscribe(fn func(models.Layout)) (cancel func()) {
	return l.p.Subscribe(fn)
}

// Err reports the most recent durable write failure.
func (l *LayoutStore) Err() error { return l.p.Err() }
