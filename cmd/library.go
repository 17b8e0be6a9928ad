package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/desertthunder/bookrack/internal/formatter"
	"github.com/desertthunder/bookrack/internal/models"
	"github.com/desertthunder/bookrack/internal/services"
	"github.com/desertthunder/bookrack/internal/shared"
	"github.com/desertthunder/bookrack/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Search queries the catalog with the stored page size and marks bookmarked results.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	if err := r.ready(cmd); err != nil {
		return err
	}
	query := strings.TrimSpace(cmd.StringArg("query"))
	if query == "" {
		return fmt.Errorf("%w: query", shared.ErrMissingArgument)
	}

	r.logger.Info("searching catalog", "query", query, "limit", r.stores.Settings.Get().BooksPerSearch)
	books, err := r.engine.Search(ctx, query)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		if books == nil {
			books = []models.Book{}
		}
		return r.writeJSON(books, cmd.Bool("pretty"))
	}
	if len(books) == 0 {
		return r.writePlain("No results for %q\n", query)
	}
	for _, b := range books {
		mark := " "
		if r.stores.Bookmarks.Has(b.MD5) {
			mark = "★"
		}
		r.writePlain("%s %s  %s by %s [%s]\n", mark, b.MD5, b.Title, b.Author, strings.ToUpper(b.FileType))
	}
	return nil
}

// library resolves the library view, printing progress updates as they arrive.
func (r *Runner) library(ctx context.Context) (*models.LibraryView, error) {
	progressCh := make(chan tasks.ProgressUpdate, 10)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			r.logger.Debug(update.Message, "phase", update.Phase)
		}
	}()

	view, err := r.engine.Library(ctx, progressCh)
	close(progressCh)
	<-done

	if err != nil {
		return nil, err
	}
	if len(view.Unresolved) > 0 {
		r.logger.Warn("some books are not in the catalog", "count", len(view.Unresolved), "md5", view.Unresolved)
	}
	return view, nil
}

// openBrowser is replaced in tests.
var openBrowser = shared.OpenBrowser

// LibraryOpen opens the first download link of a book, resolved against the catalog base URL.
func (r *Runner) LibraryOpen(ctx context.Context, cmd *cli.Command) error {
	id, err := r.bookIDArg(cmd)
	if err != nil {
		return err
	}
	if err := r.ready(cmd); err != nil {
		return err
	}

	books, err := r.catalog.ResolveBooks(ctx, []models.BookID{id})
	if err != nil {
		return err
	}
	if len(books) == 0 {
		return fmt.Errorf("%w: %s", shared.ErrNotFound, id)
	}
	links := books[0].DownloadLinks()
	if len(links) == 0 {
		return fmt.Errorf("%w: %s", shared.ErrNoDownloadLink, id)
	}

	base, err := url.Parse(r.config.Catalog.BaseURL)
	if err != nil {
		return fmt.Errorf("%w: catalog.base_url", shared.ErrInvalidArgument)
	}
	ref, err := url.Parse(links[0])
	if err != nil {
		return fmt.Errorf("%w: %q", shared.ErrInvalidArgument, links[0])
	}
	link := base.ResolveReference(ref).String()

	if cmd.Bool("print") {
		return r.writePlain("%s\n", link)
	}
	r.logger.Info("opening browser", "md5", id, "link", link)
	return openBrowser(link)
}

// LibraryShow prints both shelves with catalog metadata.
func (r *Runner) LibraryShow(ctx context.Context, cmd *cli.Command) error {
	if err := r.ready(cmd); err != nil {
		return err
	}
	view, err := r.library(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(view, cmd.Bool("pretty"))
	}
	return formatter.Fprint(r.output, view, formatter.FormatText)
}

// LibraryExport writes the library in the requested format.
func (r *Runner) LibraryExport(ctx context.Context, cmd *cli.Command) error {
	if err := r.ready(cmd); err != nil {
		return err
	}
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	if cmd.Bool("covers") && format != formatter.FormatMarkdown {
		return fmt.Errorf("%w: --covers requires --format markdown", shared.ErrInvalidFlag)
	}

	view, err := r.library(ctx)
	if err != nil {
		return err
	}

	if format == formatter.FormatMarkdown {
		result, err := formatter.WriteMarkdownExport(ctx, view, cmd.String("output"), formatter.MarkdownExportOpts{
			Covers: cmd.Bool("covers"),
			Client: r.httpClient,
			Logger: r.logger,
		})
		if err != nil {
			return err
		}
		r.writePlain("✓ Exported %d books to %s\n", len(view.Entries()), result.Directory)
		for _, f := range result.Files {
			r.writePlain("  %s\n", f)
		}
		return nil
	}

	path, err := formatter.WriteExport(view, format, cmd.String("output"))
	if err != nil {
		return err
	}
	r.logger.Info("library exported", "format", format, "path", path)
	return r.writePlain("✓ Exported %d books to %s\n", len(view.Entries()), path)
}

// LibraryDownload downloads the book files of one shelf.
func (r *Runner) LibraryDownload(ctx context.Context, cmd *cli.Command) error {
	if err := r.ready(cmd); err != nil {
		return err
	}

	view, err := r.library(ctx)
	if err != nil {
		return err
	}

	var entries []models.LibraryEntry
	switch shelf := cmd.String("shelf"); shelf {
	case "reading":
		entries = view.Reading
	case "bookmarks":
		entries = view.Bookmarks
	case "all", "":
		entries = view.Entries()
	default:
		return fmt.Errorf("%w: unknown shelf %q", shared.ErrInvalidFlag, shelf)
	}
	if len(entries) == 0 {
		return r.writePlain("Nothing to download\n")
	}
	books := make([]models.Book, len(entries))
	for i, e := range entries {
		books[i] = e.Book
	}

	opts := tasks.DownloadOpts{
		OutputDir:  r.config.Downloads.Dir,
		NumWorkers: r.config.Downloads.Workers,
		RateLimit:  r.config.Downloads.RateLimit,
	}
	if cmd.IsSet("dir") {
		opts.OutputDir = cmd.String("dir")
	}
	if cmd.IsSet("workers") {
		opts.NumWorkers = int(cmd.Int("workers"))
	}
	if cmd.IsSet("rate") {
		opts.RateLimit = cmd.Float("rate")
	}

	progressCh := make(chan tasks.ProgressUpdate, len(books)*2)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			r.writePlain("%s\n", update.Message)
		}
	}()

	report, err := r.engine.BulkDownload(ctx, progressCh, books, opts)
	close(progressCh)
	<-done
	if err != nil {
		return err
	}

	r.writePlain("\n")
	r.writePlainHeader("Download Complete")
	r.writePlain("Succeeded: %d/%d\n", report.Succeeded, report.Total)
	r.writePlain("Directory: %s\n", report.OutputDirectory)
	r.writePlain("Manifest:  %s\n", report.ManifestPath)
	if report.Failed > 0 {
		return fmt.Errorf("%d of %d downloads failed", report.Failed, report.Total)
	}
	return nil
}

// Upload validates the submission locally and sends it to the catalog.
func (r *Runner) Upload(ctx context.Context, cmd *cli.Command) error {
	if err := r.ready(cmd); err != nil {
		return err
	}

	file := cmd.String("file")
	format := strings.ToLower(cmd.String("format"))
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(file)), ".")
	}
	sub := models.UploadSubmission{
		Title:       cmd.String("title"),
		Author:      cmd.String("author"),
		Publisher:   cmd.String("publisher"),
		Year:        cmd.String("year"),
		Format:      format,
		Series:      cmd.String("series"),
		ISBN:        cmd.String("isbn"),
		CID:         cmd.String("cid"),
		OtherTitles: cmd.StringSlice("other-title"),
		Description: cmd.String("description"),
		BookFile:    file,
		CoverFile:   cmd.String("cover"),
	}

	if err := services.NewUploadValidator().Validate(sub); err != nil {
		var verr *services.ValidationError
		if errors.As(err, &verr) {
			for _, fe := range verr.Fields {
				r.writePlain("✗ %s: %s\n", fe.Field, fe.Message)
			}
		}
		return err
	}

	r.logger.Info("uploading book", "title", sub.Title, "file", sub.BookFile)
	result, err := r.catalog.Upload(ctx, sub)
	if err != nil {
		if result != nil && result.Error != "" {
			r.writePlain("✗ Upload rejected: %s\n", result.Error)
		}
		return err
	}
	return r.writePlain("✓ Uploaded %q (id %s)\n", sub.Title, result.ID)
}
