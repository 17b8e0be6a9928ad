package tasks

import (
	"fmt"
	"os"

	"github.com/desertthunder/bookrack/internal/models"
	"github.com/desertthunder/bookrack/internal/shared"
	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
)

// ImportOpts configures [LibraryEngine.ImportLocal].
type ImportOpts struct {
	TotalPages int  // overrides the detected page count when > 0
	Bookmark   bool // also bookmark the book
}

// ImportResult describes a registered local file.
type ImportResult struct {
	ID         models.BookID
	MIME       string
	Pages      int
	Progress   models.ReadingProgress
	Created    bool // false when a progress record already existed and was kept
	Bookmarked bool
}

// ImportLocal hashes the file at path and starts reading progress for it at page 0.
//
// PDF page counts are read from the file. Other formats use opts.TotalPages, or 0 when unknown.
// An existing progress record is never overwritten.
func (e *LibraryEngine) ImportLocal(path string, opts ImportOpts, prog chan<- ProgressUpdate) (*ImportResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", shared.ErrInvalidArgument, path)
	}

	e.sendProgress(prog, importUpdate(1, 3, "Hashing "+path+"..."))
	id, err := models.ContentKeyFile(path)
	if err != nil {
		return nil, err
	}

	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to detect file type: %w", err)
	}
	result := &ImportResult{ID: id, MIME: mtype.String()}

	e.sendProgress(prog, importUpdate(2, 3, "Counting pages..."))
	switch {
	case opts.TotalPages > 0:
		result.Pages = opts.TotalPages
	case mtype.Is("application/pdf"):
		pages, err := PDFPageCount(path)
		if err != nil {
			return nil, err
		}
		result.Pages = pages
	}

	if existing, ok := e.stores.Progress.Find(id); ok {
		result.Progress = existing
	} else {
		result.Progress = e.stores.Progress.Upsert(id, 0, result.Pages, nil)
		result.Created = true
	}

	if opts.Bookmark && !e.stores.Bookmarks.Has(id) {
		e.stores.Bookmarks.Toggle(id)
	}
	result.Bookmarked = e.stores.Bookmarks.Has(id)

	e.sendProgress(prog, importUpdate(3, 3, fmt.Sprintf("Imported %s (%d pages)", id, result.Pages)))
	e.logger.Info("imported local file", "md5", id, "mime", result.MIME, "pages", result.Pages, "created", result.Created)
	return result, nil
}

// PDFPageCount returns the number of pages in the PDF at path.
//
// The pdf reader panics on some malformed object streams; that is reported as an unsupported file.
func PDFPageCount(path string) (pages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages, err = 0, fmt.Errorf("%w: malformed pdf: %v", shared.ErrUnsupportedFile, r)
		}
	}()

	file, reader, err := pdf.Open(path)
	if err != nil {
		return 0, fmt.Errorf("%w: open pdf: %w", shared.ErrUnsupportedFile, err)
	}
	defer file.Close()
	return reader.NumPage(), nil
}
