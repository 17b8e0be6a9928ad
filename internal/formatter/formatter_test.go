package formatter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/bookrack/internal/models"
	"github.com/desertthunder/bookrack/internal/shared"
	th "github.com/desertthunder/bookrack/internal/testing"
	"gopkg.in/yaml.v3"
)

func sampleView() *models.LibraryView {
	lastRead := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	return &models.LibraryView{
		Reading: []models.LibraryEntry{
			{
				Book: models.Book{
					MD5:         "11111111111111111111111111111111",
					Title:       "Dune",
					Author:      "Frank Herbert",
					Description: "<p>A <strong>desert</strong> planet.</p>",
					Size:        "1.2 MB",
					FileType:    "epub",
					Link:        "/download/dune",
				},
				Progress:   &models.ReadingProgress{MD5: "11111111111111111111111111111111", CurrentPage: 50, TotalPages: 200, LastRead: &lastRead},
				Bookmarked: true,
			},
		},
		Bookmarks: []models.LibraryEntry{
			{Book: models.Book{MD5: "11111111111111111111111111111111", Title: "Dune", Author: "Frank Herbert", FileType: "epub"}, Bookmarked: true},
			{Book: models.Book{MD5: "22222222222222222222222222222222", Title: "Solaris", Author: "Stanisław Lem", Description: "Plain text, with commas", FileType: "pdf"}, Bookmarked: true},
		},
		Unresolved:  []models.BookID{"ffffffffffffffffffffffffffffffff"},
		GeneratedAt: lastRead,
	}
}

func TestParseFormat(t *testing.T) {
	tests := map[string]Format{"": FormatJSON, "JSON": FormatJSON, "md": FormatMarkdown, "yml": FormatYAML, "text": FormatText, "csv": FormatCSV}
	for in, want := range tests {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q", in, got, err, want)
		}
	}

	if _, err := ParseFormat("docx"); !errors.Is(err, shared.ErrInvalidFlag) {
		t.Errorf("expected ErrInvalidFlag, got %v", err)
	}
	if FormatMarkdown.Extension() != "md" || FormatYAML.Extension() != "yaml" {
		t.Error("unexpected extensions")
	}
}

func TestDescriptionMarkdown(t *testing.T) {
	t.Run("converts html", func(t *testing.T) {
		got := DescriptionMarkdown("<p>A <strong>desert</strong> planet.</p>")
		if got != "A **desert** planet." {
			t.Errorf("unexpected markdown %q", got)
		}
	})

	t.Run("keeps plain text", func(t *testing.T) {
		in := "Three moons < four suns"
		if got := DescriptionMarkdown(in); got != in {
			t.Errorf("expected unchanged, got %q", got)
		}
	})
}

func TestExporters(t *testing.T) {
	t.Run("ExportToJSON", func(t *testing.T) {
		data, err := ExportToJSON(sampleView())
		if err != nil {
			t.Fatalf("ExportToJSON failed: %v", err)
		}
		var decoded models.LibraryView
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(decoded.Reading) != 1 || decoded.Reading[0].Progress.CurrentPage != 50 {
			t.Errorf("unexpected decoded view %+v", decoded)
		}
		if !strings.Contains(string(data), `"book_filetype": "epub"`) {
			t.Error("expected catalog field names")
		}
	})

	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(sampleView())
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}
		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		if len(lines) != 4 {
			t.Fatalf("expected header and 3 rows, got %d", len(lines))
		}
		if !strings.HasPrefix(lines[0], "Shelf,MD5,Title,Author") {
			t.Errorf("CSV missing headers, got: %s", lines[0])
		}
		if !strings.Contains(lines[1], "reading,11111111111111111111111111111111,Dune,Frank Herbert,epub,1.2 MB,50,200,2026-02-03T04:05:06Z,true") {
			t.Errorf("unexpected reading row: %s", lines[1])
		}
		if !strings.HasPrefix(lines[3], "bookmarks,2222") {
			t.Errorf("unexpected bookmark row: %s", lines[3])
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		data, err := ExportToMarkdown(sampleView(), map[models.BookID]string{"11111111111111111111111111111111": "covers/dune.jpg"})
		if err != nil {
			t.Fatalf("ExportToMarkdown failed: %v", err)
		}
		output := string(data)
		for _, want := range []string{
			"# Library",
			"## Reading Progress",
			"### Dune",
			"![Cover](covers/dune.jpg)",
			"**Progress**: 50/200 (25%)",
			"A **desert** planet.",
			"## Unresolved",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("Markdown missing %q", want)
			}
		}
	})

	t.Run("ExportToMarkdown empty", func(t *testing.T) {
		data, _ := ExportToMarkdown(&models.LibraryView{}, nil)
		if !strings.Contains(string(data), "No reading progress.") || !strings.Contains(string(data), "No bookmarks.") {
			t.Errorf("expected empty shelves, got %s", data)
		}
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText(sampleView())
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}
		output := string(data)
		if !strings.Contains(output, "1. Frank Herbert - Dune [50/200]") {
			t.Errorf("unexpected text output: %s", output)
		}
		if !strings.Contains(output, "Bookmarks: 2") || !strings.Contains(output, "Unresolved: 1") {
			t.Errorf("missing sections: %s", output)
		}
	})

	t.Run("ExportToYAML", func(t *testing.T) {
		data, err := ExportToYAML(sampleView())
		if err != nil {
			t.Fatalf("ExportToYAML failed: %v", err)
		}
		var decoded map[string]any
		if err := yaml.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("invalid YAML: %v", err)
		}
		if !strings.Contains(string(data), "A **desert** planet.") {
			t.Errorf("expected markdown description, got %s", data)
		}
		if !strings.Contains(string(data), "current_page: 50") {
			t.Errorf("expected yaml field names, got %s", data)
		}
	})

	t.Run("ExportToYAML leaves the view untouched", func(t *testing.T) {
		view := sampleView()
		ExportToYAML(view)
		if !strings.HasPrefix(view.Reading[0].Book.Description, "<p>") {
			t.Error("expected original description to be kept")
		}
	})
}

func TestFprint(t *testing.T) {
	t.Run("writes every format", func(t *testing.T) {
		for _, f := range Formats {
			var buf bytes.Buffer
			if err := Fprint(&buf, sampleView(), f); err != nil {
				t.Errorf("%s: %v", f, err)
			}
			if buf.Len() == 0 {
				t.Errorf("%s: empty output", f)
			}
		}
	})

	t.Run("write failure", func(t *testing.T) {
		if err := Fprint(&th.FWriter{}, sampleView(), FormatText); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		if err := Fprint(&bytes.Buffer{}, sampleView(), Format("pdf")); !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}
	})
}

func TestWriteExport(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteExport(sampleView(), FormatCSV, filepath.Join(dir, "nested", "library.csv"))
	if err != nil {
		t.Fatalf("WriteExport failed: %v", err)
	}
	th.AssertFileExists(t, path)
	if content := th.MustReadFile(t, path); !strings.Contains(content, "Solaris") {
		t.Errorf("unexpected content: %s", content)
	}
}

func TestWriteMarkdownExport(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.png" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("\x89PNG fake"))
	}))
	defer server.Close()

	view := sampleView()
	view.Reading[0].Book.Image = server.URL + "/dune.png?size=large"
	view.Bookmarks[1].Book.Image = server.URL + "/missing.png"

	dir := filepath.Join(t.TempDir(), "export")
	result, err := WriteMarkdownExport(context.Background(), view, dir, MarkdownExportOpts{
		Covers: true,
		Client: server.Client(),
		Logger: log.New(&bytes.Buffer{}),
	})
	if err != nil {
		t.Fatalf("WriteMarkdownExport failed: %v", err)
	}
	if len(result.Covers) != 1 {
		t.Fatalf("expected 1 cover, got %v", result.Covers)
	}
	th.AssertFileExists(t, filepath.Join(dir, "covers", "11111111111111111111111111111111.png"))

	readme := th.MustReadFile(t, filepath.Join(dir, "README.md"))
	if !strings.Contains(readme, "![Cover](covers/11111111111111111111111111111111.png)") {
		t.Errorf("expected cover reference, got %s", readme)
	}
	if len(result.Files) != 2 {
		t.Errorf("expected cover and README, got %v", result.Files)
	}
}

func TestWriteDownloadManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.json")
	report := &models.DownloadReport{
		Total:     2,
		Succeeded: 1,
		Failed:    1,
		Results: []models.DownloadResult{
			{MD5: "a", Title: "Dune", File: "dune.epub", Bytes: 10, Success: true},
			{MD5: "b", Title: "Solaris", Error: "no download link"},
		},
	}
	if err := WriteDownloadManifest(report, path); err != nil {
		t.Fatalf("WriteDownloadManifest failed: %v", err)
	}

	var decoded models.DownloadReport
	data, _ := os.ReadFile(path)
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("invalid manifest: %v", err)
	}
	if decoded.Failed != 1 || decoded.Results[1].Error != "no download link" {
		t.Errorf("unexpected manifest %+v", decoded)
	}
}

func TestDownloadImage(t *testing.T) {
	if _, err := DownloadImage(context.Background(), nil, ""); !errors.Is(err, shared.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}
