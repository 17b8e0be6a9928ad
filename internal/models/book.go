package models

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
)

// BookID is the md5 content hash that identifies a book revision across the system.
//
// Stores treat it as an opaque key and never validate it.
type BookID string

// String implements [fmt.Stringer].
func (id BookID) String() string { return string(id) }

// Valid reports whether id looks like an md5 hex digest (32 lowercase hex characters).
func (id BookID) Valid() bool {
	if len(id) != md5.Size*2 {
		return false
	}
	for _, c := range id {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// ParseBookID trims and lowercases s. Malformed ids are returned as-is.
func ParseBookID(s string) BookID {
	return BookID(strings.ToLower(strings.TrimSpace(s)))
}

// ContentKey derives the [BookID] of the content read from r.
func ContentKey(r io.Reader) (BookID, error) {
	h := md5.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("failed to hash content: %w", err)
	}
	return BookID(hex.EncodeToString(h.Sum(nil))), nil
}

// ContentKeyFile derives the [BookID] of the file at path.
func ContentKeyFile(path string) (BookID, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return ContentKey(f)
}

// ExternalDownload is an alternate download mirror for a book.
type ExternalDownload struct {
	Name string `json:"name" yaml:"name"`
	Link string `json:"link" yaml:"link"`
}

// Book is catalog metadata for one book revision.
type Book struct {
	MD5               BookID             `json:"md5" yaml:"md5"`
	Title             string             `json:"title" yaml:"title"`
	Author            string             `json:"author" yaml:"author"`
	Description       string             `json:"description" yaml:"description,omitempty"`
	Publisher         string             `json:"publisher,omitempty" yaml:"publisher,omitempty"`
	Year              string             `json:"year,omitempty" yaml:"year,omitempty"`
	Language          string             `json:"language,omitempty" yaml:"language,omitempty"`
	Image             string             `json:"book_image,omitempty" yaml:"book_image,omitempty"`
	Size              string             `json:"book_size" yaml:"book_size"`
	FileType          string             `json:"book_filetype" yaml:"book_filetype"`
	Link              string             `json:"link" yaml:"link"`
	ExternalDownloads []ExternalDownload `json:"external_downloads,omitempty" yaml:"external_downloads,omitempty"`
}

// DownloadLinks returns the primary link followed by the external mirrors, skipping blanks.
func (b Book) DownloadLinks() []string {
	links := make([]string, 0, len(b.ExternalDownloads)+1)
	if b.Link != "" {
		links = append(links, b.Link)
	}
	for _, d := range b.ExternalDownloads {
		if d.Link != "" {
			links = append(links, d.Link)
		}
	}
	return links
}

// Extension returns the lowercase file extension for the book without a leading dot.
func (b Book) Extension() string {
	ext := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(b.FileType), "."))
	if ext == "" {
		return "bin"
	}
	return ext
}
