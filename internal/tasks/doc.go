// Package tasks orchestrates the reader's library: merging local stores with catalog metadata, bulk downloads
// and local imports, with real-time progress reporting.
//
// # Core Operations
//
// [LibraryEngine] holds the store bundle and a [services.CatalogService]:
//
//  1. [LibraryEngine.Library] : Build the library view
//     - Resolves bookmarked ids and active reading ids concurrently
//     - Merges metadata with progress by content hash
//     - Reports ids the catalog did not know as unresolved
//
//  2. [LibraryEngine.BulkDownload] : Download many books
//     - Worker pool with a shared rate limiter
//     - Tries the primary link, then each external mirror
//     - Writes a JSON manifest summarising every result
//
//  3. [LibraryEngine.ImportLocal] : Register a local file
//     - Hashes the file to its content key
//     - Reads the page count of PDFs
//     - Starts reading progress unless a record exists
//
// # Progress Reporting
//
// Operations accept an optional channel of [ProgressUpdate]. Updates use select with default, so a slow or
// absent reader never blocks the work.
//
// # Cross-store sequencing
//
// The stores offer no multi-entity atomicity. [LibraryEngine.RemoveFromLibrary] sequences the bookmark removal
// and the progress removal for one book.
package tasks
