// Package services implements the client for the remote catalog backend.
//
// # Catalog Interface
//
// [CatalogService] is the contract the rest of the application consumes. [CatalogClient] implements it over HTTP:
//   - ResolveBooks : GET /_secure/translate?md5=a,b,c → {"results": [...]}
//   - SearchBooks  : GET /search?q=...&limit=N → {"results": [...]}
//   - Download     : GET on a book link, streamed to a writer
//   - Upload       : multipart POST /upload → {"id": ...} or {"error": ...}
//
// Resolution tolerates partial results. Identifiers the catalog does not know are omitted and a 404 is
// treated as "none found". Only the requested identifiers are returned, each at most once.
//
// # Retries
//
// Read requests are retried on network failures and error statuses, except 404, while the failure count is
// below MaxRetries. Uploads are never retried. Every request waits on a shared rate limiter and carries a
// fresh X-Request-ID.
//
// # Error Handling
//
// Failed requests return errors wrapping [shared.ErrAPIRequest] and a [*HTTPError] when the server answered.
// HTTPError unwraps to [shared.ErrNotFound] for 404 and [shared.ErrServiceUnavailable] for 503.
package services
