package tasks

import (
	"fmt"

	"github.com/desertthunder/bookrack/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	ResolveBookmarks Phase = iota
	ResolveReading
	MergeLibrary
	DownloadBooks
	ImportFile
	SearchCatalog
)

func (p Phase) String() string {
	switch p {
	case ResolveBookmarks:
		return "resolve_bookmarks"
	case ResolveReading:
		return "resolve_reading"
	case MergeLibrary:
		return "merge_library"
	case DownloadBooks:
		return "download_books"
	case ImportFile:
		return "import_file"
	case SearchCatalog:
		return "search_catalog"
	default:
		return ""
	}
}

func resolveUpdate(phase Phase, count int) ProgressUpdate {
	what := "bookmarks"
	if phase == ResolveReading {
		what = "books in progress"
	}
	return ProgressUpdate{
		Phase:   phase,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Resolving %d %s...", count, what),
	}
}

func mergeUpdate(view *models.LibraryView) ProgressUpdate {
	return ProgressUpdate{
		Phase:   MergeLibrary,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Library: %d reading, %d bookmarked, %d unresolved", len(view.Reading), len(view.Bookmarks), len(view.Unresolved)),
		Data:    view,
	}
}

func downloadStartedUpdate(step, total int, title string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   DownloadBooks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Downloading: %s...", step, total, title),
	}
}

func downloadCompletedUpdate(step, total int, res models.DownloadResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   DownloadBooks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d bytes)", step, total, res.Title, res.Bytes),
		Data:    res,
	}
}

func downloadFailedUpdate(step, total int, res models.DownloadResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   DownloadBooks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %s", step, total, res.Title, res.Error),
		Data:    res,
	}
}

func importUpdate(step, total int, message string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ImportFile,
		Step:    step,
		Total:   total,
		Message: message,
	}
}
