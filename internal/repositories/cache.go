package repositories

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/bookrack/internal/models"
	"github.com/desertthunder/bookrack/internal/services"
)

// CachingResolver is a [services.CatalogService] whose ResolveBooks is backed by a [BookRepository].
//
// The other catalog operations pass straight through.
type CachingResolver struct {
	services.CatalogService
	repo   *BookRepository
	ttl    time.Duration
	logger *log.Logger
}

// NewCachingResolver wraps catalog with the book cache. Entries older than ttl are refetched.
func NewCachingResolver(catalog services.CatalogService, repo *BookRepository, ttl time.Duration, logger *log.Logger) *CachingResolver {
	if logger == nil {
		logger = log.Default()
	}
	return &CachingResolver{CatalogService: catalog, repo: repo, ttl: ttl, logger: logger}
}

// ResolveBooks returns fresh cached books and fetches only the misses.
//
// Cache read and write failures are logged and otherwise ignored. When the catalog fails, the cached subset is
// returned along with the error.
func (c *CachingResolver) ResolveBooks(ctx context.Context, ids []models.BookID) ([]models.Book, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	cached, err := c.repo.GetMany(ids, c.ttl)
	if err != nil {
		c.logger.Warn("book cache unavailable", "error", err)
		cached = map[models.BookID]models.Book{}
	}

	books := make([]models.Book, 0, len(ids))
	var misses []models.BookID
	seen := make(map[models.BookID]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if b, ok := cached[id]; ok {
			books = append(books, b)
		} else {
			misses = append(misses, id)
		}
	}

	if len(misses) == 0 {
		c.logger.Debug("resolved from cache", "count", len(books))
		return books, nil
	}

	fetched, err := c.CatalogService.ResolveBooks(ctx, misses)
	books = append(books, fetched...)
	if len(fetched) > 0 {
		if perr := c.repo.Put(fetched...); perr != nil {
			c.logger.Warn("failed to cache books", "error", perr)
		}
	}
	c.logger.Debug("resolved books", "cached", len(cached), "fetched", len(fetched), "requested", len(seen))
	return books, err
}
