package tasks

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/bookrack/internal/models"
	"github.com/desertthunder/bookrack/internal/services"
	"github.com/desertthunder/bookrack/internal/shared"
	"github.com/desertthunder/bookrack/internal/stores"
	"golang.org/x/sync/errgroup"
)

// LibraryEngine combines the persisted stores with the catalog.
type LibraryEngine struct {
	stores  *stores.Stores
	catalog services.CatalogService
	logger  *log.Logger
	now     func() time.Time
}

// NewLibraryEngine creates a new LibraryEngine. catalog may be nil for purely local operations.
func NewLibraryEngine(st *stores.Stores, catalog services.CatalogService, logger *log.Logger) *LibraryEngine {
	if logger == nil {
		logger = log.Default()
	}
	return &LibraryEngine{stores: st, catalog: catalog, logger: logger, now: time.Now}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *LibraryEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func (e *LibraryEngine) requireCatalog() error {
	if e.catalog == nil {
		return fmt.Errorf("%w: catalog not configured", shared.ErrServiceUnavailable)
	}
	return nil
}

// Library resolves bookmarks and active reading progress against the catalog and merges them by content hash.
//
// Both resolutions run concurrently. Ids the catalog does not return are listed in Unresolved. A request failure
// of either resolution fails the whole view.
func (e *LibraryEngine) Library(ctx context.Context, progress chan<- ProgressUpdate) (*models.LibraryView, error) {
	if err := e.requireCatalog(); err != nil {
		return nil, err
	}

	bookmarks := e.stores.Bookmarks.List()
	active := e.stores.Progress.ListActive()
	activeIDs := make([]models.BookID, len(active))
	for i, p := range active {
		activeIDs[i] = p.MD5
	}

	var bookmarked, reading []models.Book
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		e.sendProgress(progress, resolveUpdate(ResolveBookmarks, len(bookmarks)))
		books, err := e.catalog.ResolveBooks(gctx, bookmarks)
		if err != nil {
			return fmt.Errorf("failed to resolve bookmarks: %w", err)
		}
		bookmarked = books
		return nil
	})
	g.Go(func() error {
		e.sendProgress(progress, resolveUpdate(ResolveReading, len(activeIDs)))
		books, err := e.catalog.ResolveBooks(gctx, activeIDs)
		if err != nil {
			return fmt.Errorf("failed to resolve reading progress: %w", err)
		}
		reading = books
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	view := e.merge(bookmarks, active, bookmarked, reading)
	e.sendProgress(progress, mergeUpdate(view))
	e.logger.Debug("library merged", "reading", len(view.Reading), "bookmarks", len(view.Bookmarks), "unresolved", len(view.Unresolved))
	return view, nil
}

// merge builds the view in store order. Reading entries are then sorted by most recent read, ties keeping store order.
func (e *LibraryEngine) merge(bookmarks []models.BookID, active []models.ReadingProgress, bookmarked, reading []models.Book) *models.LibraryView {
	metadata := make(map[models.BookID]models.Book, len(bookmarked)+len(reading))
	for _, b := range slices.Concat(bookmarked, reading) {
		metadata[b.MD5] = b
	}
	isBookmarked := make(map[models.BookID]bool, len(bookmarks))
	for _, id := range bookmarks {
		isBookmarked[id] = true
	}

	view := &models.LibraryView{
		Reading:     []models.LibraryEntry{},
		Bookmarks:   []models.LibraryEntry{},
		GeneratedAt: e.now().UTC(),
	}
	unresolved := map[models.BookID]bool{}
	markUnresolved := func(id models.BookID) {
		if !unresolved[id] {
			unresolved[id] = true
			view.Unresolved = append(view.Unresolved, id)
		}
	}

	for _, p := range active {
		book, ok := metadata[p.MD5]
		if !ok {
			markUnresolved(p.MD5)
			continue
		}
		record := p
		view.Reading = append(view.Reading, models.LibraryEntry{Book: book, Progress: &record, Bookmarked: isBookmarked[p.MD5]})
	}
	slices.SortStableFunc(view.Reading, func(a, b models.LibraryEntry) int {
		return lastRead(b).Compare(lastRead(a))
	})

	for _, id := range bookmarks {
		book, ok := metadata[id]
		if !ok {
			markUnresolved(id)
			continue
		}
		entry := models.LibraryEntry{Book: book, Bookmarked: true}
		if p, ok := e.stores.Progress.Find(id); ok {
			entry.Progress = &p
		}
		view.Bookmarks = append(view.Bookmarks, entry)
	}
	return view
}

func lastRead(e models.LibraryEntry) time.Time {
	if e.Progress == nil || e.Progress.LastRead == nil {
		return time.Time{}
	}
	return *e.Progress.LastRead
}

// Search queries the catalog with the page size from the settings store.
func (e *LibraryEngine) Search(ctx context.Context, query string) ([]models.Book, error) {
	if err := e.requireCatalog(); err != nil {
		return nil, err
	}
	return e.catalog.SearchBooks(ctx, query, e.stores.Settings.Get().BooksPerSearch)
}

// Turn moves the current page of a book by delta, keeping it within [0, TotalPages].
// It reports false when the book has no progress record.
func (e *LibraryEngine) Turn(id models.BookID, delta int) (models.ReadingProgress, bool) {
	p, ok := e.stores.Progress.Find(id)
	if !ok {
		return models.ReadingProgress{}, false
	}
	page := max(0, p.CurrentPage+delta)
	if p.TotalPages > 0 {
		page = min(page, p.TotalPages)
	}
	return e.stores.Progress.Upsert(id, page, p.TotalPages, nil), true
}

// RemoveFromLibrary drops the bookmark and then the progress record for id.
// Each result reports whether that store held the book.
func (e *LibraryEngine) RemoveFromLibrary(id models.BookID) (bookmarkRemoved, progressRemoved bool) {
	bookmarkRemoved = e.stores.Bookmarks.Remove(id)
	progressRemoved = e.stores.Progress.Forget(id)
	return bookmarkRemoved, progressRemoved
}
