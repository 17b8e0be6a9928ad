package services

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/bookrack/internal/models"
	"github.com/desertthunder/bookrack/internal/shared"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "http://localhost:8787"

	// resolveBatchSize caps the identifiers sent in one translate request.
	resolveBatchSize = 50
)

// CatalogService is the remote catalog collaborator.
type CatalogService interface {
	// ResolveBooks returns metadata for the known subset of ids, in no particular order.
	ResolveBooks(ctx context.Context, ids []models.BookID) ([]models.Book, error)

	// SearchBooks returns at most limit books matching query.
	SearchBooks(ctx context.Context, query string, limit int) ([]models.Book, error)

	// Download streams the file behind link to w and returns the number of bytes written.
	Download(ctx context.Context, link string, w io.Writer) (int64, error)

	// Upload submits a new book.
	Upload(ctx context.Context, sub models.UploadSubmission) (*models.UploadResult, error)
}

// HTTPError is a non-2xx answer from the catalog.
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s: status %d", e.Method, e.URL, e.StatusCode)
}

// Unwrap maps well-known statuses to shared sentinels.
func (e *HTTPError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return shared.ErrNotFound
	case http.StatusServiceUnavailable:
		return shared.ErrServiceUnavailable
	default:
		return nil
	}
}

// CatalogOptions configures a [CatalogClient].
type CatalogOptions struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
	RateLimit  float64 // requests per second; zero or less disables limiting
	MaxRetries int
	Logger     *log.Logger
}

// CatalogClient implements [CatalogService] over HTTP.
type CatalogClient struct {
	baseURL    *url.URL
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
	logger     *log.Logger

	// backoff returns the wait before retry number n (starting at 0).
	backoff func(n int) time.Duration
}

// NewCatalogClient creates a catalog client. An empty BaseURL points at a local backend.
func NewCatalogClient(opts CatalogOptions) (*CatalogClient, error) {
	raw := opts.BaseURL
	if raw == "" {
		raw = defaultBaseURL
	}
	base, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: catalog base_url %q", shared.ErrInvalidConfig, raw)
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), max(1, int(math.Ceil(opts.RateLimit))))
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &CatalogClient{
		baseURL:    base,
		httpClient: client,
		limiter:    limiter,
		maxRetries: max(0, opts.MaxRetries),
		logger:     logger,
		backoff:    exponentialBackoff,
	}, nil
}

// exponentialBackoff doubles from one second and caps at thirty.
func exponentialBackoff(n int) time.Duration {
	return min(time.Second<<min(n, 5), 30*time.Second)
}

// ResolveLink turns a catalog link into an absolute URL. Absolute links are returned unchanged.
func (c *CatalogClient) ResolveLink(link string) (string, error) {
	link = strings.TrimSpace(link)
	if link == "" {
		return "", shared.ErrNoDownloadLink
	}
	ref, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("%w: %q", shared.ErrInvalidArgument, link)
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}
	return c.baseURL.ResolveReference(ref).String(), nil
}

func (c *CatalogClient) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawQuery = query.Encode()
	return u.String()
}

// shouldRetry applies the catalog retry policy: never on not-found or cancellation,
// otherwise while failures stay below the configured limit.
func (c *CatalogClient) shouldRetry(ctx context.Context, failures int, err error) bool {
	if ctx.Err() != nil || errors.Is(err, shared.ErrNotFound) {
		return false
	}
	return failures < c.maxRetries
}

// send performs a request built by build and returns the response when the status is 2xx.
// The caller closes the body.
func (c *CatalogClient) send(ctx context.Context, retry bool, build func(context.Context) (*http.Request, error)) (*http.Response, error) {
	for failures := 0; ; failures++ {
		resp, err := c.attempt(ctx, build)
		if err == nil {
			return resp, nil
		}
		if !retry || !c.shouldRetry(ctx, failures, err) {
			return nil, err
		}

		wait := c.backoff(failures)
		c.logger.Warn("retrying catalog request", "attempt", failures+2, "wait", wait, "error", err)
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", shared.ErrTimeout, ctx.Err())
		case <-time.After(wait):
		}
	}
}

func (c *CatalogClient) attempt(ctx context.Context, build func(context.Context) (*http.Request, error)) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrTimeout, err)
	}

	req, err := build(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	requestID := shared.GenerateID()
	req.Header.Set("X-Request-ID", requestID)
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
	}
	c.logger.Debug("catalog request", "method", req.Method, "url", req.URL.Redacted(), "status", resp.StatusCode,
		"request_id", requestID, "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, fmt.Errorf("%w: %w", shared.ErrAPIRequest, readHTTPError(req, resp))
	}
	return resp, nil
}

// readHTTPError builds an [HTTPError] from a failed response, using {"error"} or {"detail"} when present.
func readHTTPError(req *http.Request, resp *http.Response) *HTTPError {
	httpErr := &HTTPError{Method: req.Method, URL: req.URL.Redacted(), StatusCode: resp.StatusCode}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var payload struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		httpErr.Message = cmp.Or(payload.Error, payload.Detail)
	} else {
		httpErr.Message = strings.TrimSpace(string(body))
	}
	return httpErr
}

func (c *CatalogClient) getJSON(ctx context.Context, path string, query url.Values, result any) error {
	target := c.endpoint(path, query)
	resp, err := c.send(ctx, true, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

type resultsEnvelope struct {
	Results []models.Book `json:"results"`
}

// ResolveBooks implements [CatalogService].
//
// Empty input makes no request. Duplicate ids are sent once.
func (c *CatalogClient) ResolveBooks(ctx context.Context, ids []models.BookID) ([]models.Book, error) {
	wanted := make(map[models.BookID]bool, len(ids))
	var unique []string
	for _, id := range ids {
		if id == "" || wanted[id] {
			continue
		}
		wanted[id] = true
		unique = append(unique, id.String())
	}
	if len(unique) == 0 {
		return nil, nil
	}

	var books []models.Book
	seen := make(map[models.BookID]bool, len(unique))
	for batch := range slices.Chunk(unique, resolveBatchSize) {
		var env resultsEnvelope
		err := c.getJSON(ctx, "/_secure/translate", url.Values{"md5": {strings.Join(batch, ",")}}, &env)
		if errors.Is(err, shared.ErrNotFound) {
			continue
		}
		if err != nil {
			return books, fmt.Errorf("failed to resolve books: %w", err)
		}

		for _, b := range env.Results {
			if !wanted[b.MD5] || seen[b.MD5] {
				continue
			}
			seen[b.MD5] = true
			books = append(books, b)
		}
	}
	return books, nil
}

// SearchBooks implements [CatalogService]. limit is raised to 1 when smaller.
func (c *CatalogClient) SearchBooks(ctx context.Context, query string, limit int) ([]models.Book, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty search query", shared.ErrInvalidInput)
	}
	limit = max(1, limit)

	var env resultsEnvelope
	err := c.getJSON(ctx, "/search", url.Values{"q": {query}, "limit": {strconv.Itoa(limit)}}, &env)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to search books: %w", err)
	}

	if len(env.Results) > limit {
		env.Results = env.Results[:limit]
	}
	return env.Results, nil
}

// Download implements [CatalogService]. Relative links are resolved against the base URL.
func (c *CatalogClient) Download(ctx context.Context, link string, w io.Writer) (int64, error) {
	target, err := c.ResolveLink(link)
	if err != nil {
		return 0, err
	}

	resp, err := c.send(ctx, true, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err == nil {
			req.Header.Set("Accept", "*/*")
		}
		return req, err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to download %s: %w", target, err)
	}
	defer resp.Body.Close()

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("failed to write download: %w", err)
	}
	return n, nil
}
