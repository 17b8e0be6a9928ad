package tasks

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/desertthunder/bookrack/internal/formatter"
	"github.com/desertthunder/bookrack/internal/models"
	"github.com/desertthunder/bookrack/internal/shared"
	"golang.org/x/time/rate"
)

// DownloadOpts contains configuration for bulk downloads.
type DownloadOpts struct {
	OutputDir  string  // Base output directory (default: downloads_{epoch})
	NumWorkers int     // Concurrent workers (default: 3)
	RateLimit  float64 // Downloads started per second (default: 2)
}

// downloadJob is one book with the file name reserved for it.
type downloadJob struct {
	step  int
	book  models.Book
	name  string
	names map[string]string // gateway link -> reserved file name
}

// BulkDownload downloads books concurrently with rate limiting and progress tracking.
//
// Each book is fetched from its primary link and then from each external mirror until one succeeds.
// Partial failures are recorded in the report. A manifest is written next to the files.
func (e *LibraryEngine) BulkDownload(
	ctx context.Context,
	prog chan<- ProgressUpdate,
	books []models.Book,
	opts DownloadOpts,
) (*models.DownloadReport, error) {
	if err := e.requireCatalog(); err != nil {
		return nil, err
	}

	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("downloads_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 3
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 2.0
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	report := &models.DownloadReport{
		Total:           len(books),
		OutputDirectory: opts.OutputDir,
		Results:         make([]models.DownloadResult, 0, len(books)),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	jobs := make(chan downloadJob, len(books))
	results := make(chan models.DownloadResult, len(books))

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go e.downloadWorker(ctx, &wg, jobs, results, opts.OutputDir)
	}

	go func() {
		defer close(jobs)
		used := map[string]bool{}
		for i, book := range books {
			if err := limiter.Wait(ctx); err != nil {
				for _, skipped := range books[i:] {
					results <- models.DownloadResult{MD5: skipped.MD5, Title: skipped.Title, Error: err.Error()}
				}
				return
			}
			job := reserveNames(used, i+1, book)
			e.sendProgress(prog, downloadStartedUpdate(i+1, len(books), book.Title))
			jobs <- job
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		report.Results = append(report.Results, res)
		if res.Success {
			report.Succeeded++
			e.sendProgress(prog, downloadCompletedUpdate(completed, len(books), res))
		} else {
			report.Failed++
			e.sendProgress(prog, downloadFailedUpdate(completed, len(books), res))
		}
	}

	manifestPath := filepath.Join(opts.OutputDir, "download_manifest.json")
	if err := formatter.WriteDownloadManifest(report, manifestPath); err != nil {
		return report, fmt.Errorf("download completed but failed to write manifest: %w", err)
	}
	report.ManifestPath = manifestPath
	return report, nil
}

// downloadWorker is a worker goroutine that downloads books from the jobs channel.
func (e *LibraryEngine) downloadWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	jobs <-chan downloadJob,
	results chan<- models.DownloadResult,
	outputDir string,
) {
	defer wg.Done()
	for job := range jobs {
		if ctx.Err() != nil {
			results <- models.DownloadResult{MD5: job.book.MD5, Title: job.book.Title, Error: ctx.Err().Error()}
			continue
		}
		results <- e.downloadBook(ctx, job, outputDir)
	}
}

// downloadBook tries each link of the book in order and keeps the first complete file.
func (e *LibraryEngine) downloadBook(ctx context.Context, job downloadJob, outputDir string) models.DownloadResult {
	result := models.DownloadResult{MD5: job.book.MD5, Title: job.book.Title}

	links := job.book.DownloadLinks()
	if len(links) == 0 {
		result.Error = shared.ErrNoDownloadLink.Error()
		return result
	}

	var errs []error
	for _, link := range links {
		name := job.name
		if gateway, ok := job.names[link]; ok {
			name = gateway
		}
		target := filepath.Join(outputDir, name)

		n, err := e.downloadTo(ctx, link, target)
		if err != nil {
			e.logger.Warn("download attempt failed", "md5", job.book.MD5, "link", link, "error", err)
			errs = append(errs, err)
			continue
		}

		result.Link = link
		result.File = target
		result.Bytes = n
		result.Success = true
		return result
	}

	result.Error = errors.Join(errs...).Error()
	return result
}

// downloadTo streams link into a temporary file and renames it to target once complete.
func (e *LibraryEngine) downloadTo(ctx context.Context, link, target string) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(target), ".partial-*")
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := e.catalog.Download(ctx, link, tmp)
	if cerr := tmp.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("failed to close file: %w", cerr)
	}
	if err != nil {
		return 0, err
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return 0, fmt.Errorf("failed to save %s: %w", target, err)
	}
	return n, nil
}

// FileName returns the download file name for a book: "<slug(title)>.<ext>".
func FileName(book models.Book) string {
	return shared.TitleToSlug(book.Title) + "." + book.Extension()
}

// reserveNames builds the job for book, claiming its title file name and the name of every gateway link in used.
func reserveNames(used map[string]bool, step int, book models.Book) downloadJob {
	job := downloadJob{step: step, book: book, names: map[string]string{}}
	job.name = reserveName(used, shared.TitleToSlug(book.Title), "."+book.Extension(), book.MD5)
	for _, link := range book.DownloadLinks() {
		if gateway := gatewayFileName(link); gateway != "" {
			ext := path.Ext(gateway)
			job.names[link] = reserveName(used, strings.TrimSuffix(gateway, ext), ext, book.MD5)
		}
	}
	return job
}

// reserveName claims base+ext in used. Taken names get the short content hash, then a counter.
func reserveName(used map[string]bool, base, ext string, id models.BookID) string {
	name := base + ext
	if used[name] {
		short := id.String()
		if len(short) > 8 {
			short = short[:8]
		}
		base += "-" + short
		name = base + ext
		for n := 2; used[name]; n++ {
			name = fmt.Sprintf("%s-%d%s", base, n, ext)
		}
	}
	used[name] = true
	return name
}

// gatewayFileName returns the file name served by an IPFS gateway link, or "" for other links.
//
// IPFS links already name the file, so it is kept instead of a title slug.
func gatewayFileName(link string) string {
	if !strings.Contains(link, "ipfs") {
		return ""
	}
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	name := path.Base(u.Path)
	if q := u.Query().Get("filename"); q != "" {
		name = filepath.Base(q)
	}
	if strings.Trim(name, ".") == "" || path.Ext(name) == "" || strings.ContainsAny(name, `/\`) {
		return ""
	}
	return name
}
