package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/desertthunder/bookrack/internal/models"
	"github.com/desertthunder/bookrack/internal/shared"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func validSubmission(t *testing.T) models.UploadSubmission {
	return models.UploadSubmission{
		Title:       "The Left Hand of Darkness",
		Author:      "Ursula K. Le Guin",
		Publisher:   "Ace",
		Year:        "1969",
		Format:      "pdf",
		OtherTitles: []string{"La mano izquierda de la oscuridad"},
		BookFile:    writeFile(t, "book.pdf", []byte("%PDF-1.4\n%fake\n")),
	}
}

func TestUploadValidator(t *testing.T) {
	v := NewUploadValidator()

	t.Run("accepts valid submission", func(t *testing.T) {
		sub := validSubmission(t)
		sub.CoverFile = writeFile(t, "cover.png", pngHeader)
		if err := v.Validate(sub); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("reports fields by form name", func(t *testing.T) {
		sub := validSubmission(t)
		sub.Title = ""
		sub.Year = "69"
		sub.Format = "docx"

		err := v.Validate(sub)
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Error("expected ErrInvalidInput")
		}
		fields := map[string]bool{}
		for _, f := range verr.Fields {
			fields[f.Field] = true
		}
		for _, want := range []string{"title", "year", "format"} {
			if !fields[want] {
				t.Errorf("expected %s to be rejected, got %v", want, verr.Fields)
			}
		}
	})

	t.Run("missing book file", func(t *testing.T) {
		sub := validSubmission(t)
		sub.BookFile = filepath.Join(t.TempDir(), "missing.pdf")
		var verr *ValidationError
		if err := v.Validate(sub); !errors.As(err, &verr) {
			t.Errorf("expected ValidationError, got %v", err)
		}
	})

	t.Run("content must match format", func(t *testing.T) {
		sub := validSubmission(t)
		sub.BookFile = writeFile(t, "book.pdf", []byte("just some text"))
		if err := v.Validate(sub); !errors.Is(err, shared.ErrUnsupportedFile) {
			t.Errorf("expected ErrUnsupportedFile, got %v", err)
		}
	})

	t.Run("cover must be an image", func(t *testing.T) {
		sub := validSubmission(t)
		sub.CoverFile = writeFile(t, "cover.png", []byte("%PDF-1.4\n"))
		if err := v.Validate(sub); !errors.Is(err, shared.ErrUnsupportedFile) {
			t.Errorf("expected ErrUnsupportedFile, got %v", err)
		}
	})
}

func TestCheckFileType(t *testing.T) {
	t.Run("matches any allowed type", func(t *testing.T) {
		if err := checkFileType(writeFile(t, "cover.png", pngHeader), coverMIMEs...); err != nil {
			t.Errorf("expected png to be accepted, got %v", err)
		}
	})

	t.Run("matches a parent type", func(t *testing.T) {
		if err := checkFileType(writeFile(t, "notes.json", []byte(`{"title":"Dune"}`)), "image/png", "text/plain"); err != nil {
			t.Errorf("expected json to match text/plain, got %v", err)
		}
	})

	t.Run("rejects other types", func(t *testing.T) {
		err := checkFileType(writeFile(t, "book.pdf", []byte("%PDF-1.4\n")), coverMIMEs...)
		if !errors.Is(err, shared.ErrUnsupportedFile) {
			t.Errorf("expected ErrUnsupportedFile, got %v", err)
		}
	})
}

func TestUpload(t *testing.T) {
	t.Run("sends multipart form", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || r.URL.Path != "/upload" {
				t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
			}
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Errorf("failed to parse form: %v", err)
				return
			}
			if got := r.FormValue("title"); got != "The Left Hand of Darkness" {
				t.Errorf("unexpected title %q", got)
			}
			if got := r.MultipartForm.Value["other_titles"]; len(got) != 1 {
				t.Errorf("expected 1 other title, got %v", got)
			}
			if _, ok := r.MultipartForm.Value["series"]; ok {
				t.Error("expected empty fields to be omitted")
			}

			file, header, err := r.FormFile("book")
			if err != nil {
				t.Errorf("expected book part: %v", err)
				return
			}
			defer file.Close()
			data, _ := io.ReadAll(file)
			if header.Filename != "book.pdf" || string(data[:5]) != "%PDF-" {
				t.Errorf("unexpected book part %s", header.Filename)
			}
			if _, _, err := r.FormFile("cover"); err == nil {
				t.Error("expected no cover part")
			}

			json.NewEncoder(w).Encode(models.UploadResult{ID: "new-id"})
		}))
		defer server.Close()

		result, err := newTestClient(t, server, 2).Upload(context.Background(), validSubmission(t))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.ID != "new-id" {
			t.Errorf("expected new-id, got %q", result.ID)
		}
	})

	t.Run("structured error in body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"error":"duplicate md5"}`))
		}))
		defer server.Close()

		result, err := newTestClient(t, server, 0).Upload(context.Background(), validSubmission(t))
		if !errors.Is(err, shared.ErrUploadRejected) {
			t.Fatalf("expected ErrUploadRejected, got %v", err)
		}
		if result == nil || result.Error != "duplicate md5" {
			t.Errorf("expected structured error, got %+v", result)
		}
	})

	t.Run("client error status is a rejection and not retried", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"year out of range"}`))
		}))
		defer server.Close()

		result, err := newTestClient(t, server, 2).Upload(context.Background(), validSubmission(t))
		if !errors.Is(err, shared.ErrUploadRejected) {
			t.Fatalf("expected ErrUploadRejected, got %v", err)
		}
		if result.Error != "year out of range" {
			t.Errorf("unexpected result %+v", result)
		}
		if calls.Load() != 1 {
			t.Errorf("expected 1 attempt, got %d", calls.Load())
		}
	})

	t.Run("server failure is not retried", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		_, err := newTestClient(t, server, 2).Upload(context.Background(), validSubmission(t))
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Fatalf("expected ErrAPIRequest, got %v", err)
		}
		if calls.Load() != 1 {
			t.Errorf("expected 1 attempt, got %d", calls.Load())
		}
	})

	t.Run("invalid submission makes no request", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
		}))
		defer server.Close()

		sub := validSubmission(t)
		sub.Author = ""
		if _, err := newTestClient(t, server, 0).Upload(context.Background(), sub); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
		if calls.Load() != 0 {
			t.Errorf("expected no requests, got %d", calls.Load())
		}
	})
}
