// package testing contains shared testing utilities
package testing

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/bookrack/internal/models"
	"github.com/desertthunder/bookrack/internal/shared"
	"github.com/desertthunder/bookrack/internal/storage"
	"github.com/desertthunder/bookrack/internal/stores"
)

// MockCatalog is a test double for [services.CatalogService] backed by a fixed set of books.
type MockCatalog struct {
	mu sync.Mutex

	Books map[models.BookID]models.Book
	Files map[string]string // download link → content

	ResolveErr  error
	SearchErr   error
	DownloadErr error
	UploadFn    func(models.UploadSubmission) (*models.UploadResult, error)

	// ResolveCalls records the ids passed to each ResolveBooks call.
	ResolveCalls [][]models.BookID
	Downloads    []string
	Uploads      []models.UploadSubmission
}

// NewMockCatalog creates a catalog that knows books.
func NewMockCatalog(books ...models.Book) *MockCatalog {
	m := &MockCatalog{Books: map[models.BookID]models.Book{}, Files: map[string]string{}}
	for _, b := range books {
		m.Books[b.MD5] = b
	}
	return m
}

func (m *MockCatalog) ResolveBooks(ctx context.Context, ids []models.BookID) ([]models.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ResolveCalls = append(m.ResolveCalls, append([]models.BookID(nil), ids...))
	if m.ResolveErr != nil {
		return nil, m.ResolveErr
	}
	var out []models.Book
	for _, id := range ids {
		if b, ok := m.Books[id]; ok {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *MockCatalog) SearchBooks(ctx context.Context, query string, limit int) ([]models.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SearchErr != nil {
		return nil, m.SearchErr
	}
	var out []models.Book
	for _, b := range m.Books {
		if len(out) < limit && strings.Contains(strings.ToLower(b.Title), strings.ToLower(query)) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *MockCatalog) Download(ctx context.Context, link string, w io.Writer) (int64, error) {
	m.mu.Lock()
	m.Downloads = append(m.Downloads, link)
	content, ok := m.Files[link]
	err := m.DownloadErr
	m.mu.Unlock()

	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, shared.ErrNotFound
	}
	return io.Copy(w, strings.NewReader(content))
}

func (m *MockCatalog) Upload(ctx context.Context, sub models.UploadSubmission) (*models.UploadResult, error) {
	m.mu.Lock()
	m.Uploads = append(m.Uploads, sub)
	fn := m.UploadFn
	m.mu.Unlock()

	if fn != nil {
		return fn(sub)
	}
	return &models.UploadResult{ID: "mock-upload"}, nil
}

// ResolveCount returns the number of ResolveBooks calls.
func (m *MockCatalog) ResolveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ResolveCalls)
}

// NewTestDB opens an in-memory SQLite database with migrations applied and closes it on cleanup.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := shared.NewDatabase(shared.MemoryDatabase)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return db
}

// NewTestStores builds the store bundle over fresh memory storage.
func NewTestStores(t *testing.T) (*stores.Stores, *storage.MemoryStorage) {
	t.Helper()
	st := storage.NewMemoryStorage()
	return stores.Open(st, stores.Options{Logger: shared.NewLogger(io.Discard)}), st
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// JSONResponse builds a response with the given status and body.
func JSONResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": {"application/json"}},
		Body:       io.NopCloser(bytes.NewBufferString(body)),
	}
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
