// Package repositories provides the SQLite persistence for catalog metadata.
//
// [BookRepository] caches [models.Book] records in the book_cache table, keyed by content hash. Rows carry the
// time they were fetched so readers can ask only for fresh entries and old rows can be pruned.
//
// [CachingResolver] wraps a [services.CatalogService] and answers ResolveBooks from the cache first,
// fetching only the misses from the catalog and writing them back.
package repositories
