// package formatter renders the reader's library to export formats (JSON, CSV, Markdown, plain text, YAML)
package formatter

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/bookrack/internal/models"
	"github.com/desertthunder/bookrack/internal/shared"
	"gopkg.in/yaml.v3"
)

// Format names an export format.
type Format string

const (
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "txt"
	FormatYAML     Format = "yaml"
)

// Formats lists every supported export format.
var Formats = []Format{FormatJSON, FormatCSV, FormatMarkdown, FormatText, FormatYAML}

// ParseFormat accepts a format name or a common alias such as "md" or "yml".
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "txt", "text":
		return FormatText, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, name)
	}
}

// Extension returns the file extension for f.
func (f Format) Extension() string {
	if f == FormatMarkdown {
		return "md"
	}
	return string(f)
}

// htmlTagPattern matches common HTML tags to detect if a string contains HTML.
var htmlTagPattern = regexp.MustCompile(`<(p|br|div|span|b|i|strong|em|a|ul|ol|li|h[1-6]|blockquote)[\s>/]`)

func containsHTML(s string) bool {
	return htmlTagPattern.MatchString(strings.ToLower(s))
}

// DescriptionMarkdown converts an HTML book description to Markdown. Plain text is returned unchanged.
func DescriptionMarkdown(s string) string {
	if s == "" || !containsHTML(s) {
		return s
	}
	markdown, err := htmltomarkdown.ConvertString(s)
	if err != nil {
		return s
	}
	return strings.TrimSpace(markdown)
}

// Render encodes view in format f.
func Render(view *models.LibraryView, f Format) ([]byte, error) {
	switch f {
	case FormatJSON:
		return ExportToJSON(view)
	case FormatCSV:
		return ExportToCSV(view)
	case FormatMarkdown:
		return ExportToMarkdown(view, nil)
	case FormatText:
		return ExportToText(view)
	case FormatYAML:
		return ExportToYAML(view)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, f)
	}
}

// Fprint renders view in format f to w.
func Fprint(w io.Writer, view *models.LibraryView, f Format) error {
	data, err := Render(view, f)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// ExportToJSON converts a LibraryView to indented JSON.
func ExportToJSON(view *models.LibraryView) ([]byte, error) {
	return shared.MarshalJSON(view, true)
}

// ExportToYAML converts a LibraryView to YAML with Markdown descriptions.
func ExportToYAML(view *models.LibraryView) ([]byte, error) {
	out := *view
	out.Reading = markdownDescriptions(view.Reading)
	out.Bookmarks = markdownDescriptions(view.Bookmarks)

	data, err := yaml.Marshal(&out)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return data, nil
}

func markdownDescriptions(entries []models.LibraryEntry) []models.LibraryEntry {
	out := make([]models.LibraryEntry, len(entries))
	for i, e := range entries {
		e.Book.Description = DescriptionMarkdown(e.Book.Description)
		out[i] = e
	}
	return out
}

// ExportToCSV converts a LibraryView to CSV with columns:
// Shelf, MD5, Title, Author, Format, Size, Current Page, Total Pages, Last Read, Bookmarked, Link
func ExportToCSV(view *models.LibraryView) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Shelf", "MD5", "Title", "Author", "Format", "Size", "Current Page", "Total Pages", "Last Read", "Bookmarked", "Link"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	shelves := []struct {
		name    string
		entries []models.LibraryEntry
	}{{"reading", view.Reading}, {"bookmarks", view.Bookmarks}}
	for _, shelf := range shelves {
		for _, e := range shelf.entries {
			current, total, lastRead := "", "", ""
			if p := e.Progress; p != nil {
				current, total = strconv.Itoa(p.CurrentPage), strconv.Itoa(p.TotalPages)
				if p.LastRead != nil {
					lastRead = p.LastRead.UTC().Format(time.RFC3339)
				}
			}
			record := []string{
				shelf.name,
				e.Book.MD5.String(),
				e.Book.Title,
				e.Book.Author,
				e.Book.Extension(),
				e.Book.Size,
				current,
				total,
				lastRead,
				strconv.FormatBool(e.Bookmarked),
				e.Book.Link,
			}
			if err := writer.Write(record); err != nil {
				return nil, fmt.Errorf("failed to write CSV record: %w", err)
			}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportToMarkdown converts a LibraryView to Markdown. covers maps book ids to local cover image paths.
func ExportToMarkdown(view *models.LibraryView, covers map[models.BookID]string) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Library\n\n")
	fmt.Fprintf(&buf, "**Reading**: %d\n", len(view.Reading))
	fmt.Fprintf(&buf, "**Bookmarks**: %d\n\n", len(view.Bookmarks))

	buf.WriteString("## Reading Progress\n\n")
	if len(view.Reading) == 0 {
		buf.WriteString("No reading progress.\n\n")
	}
	for _, e := range view.Reading {
		writeMarkdownEntry(&buf, e, covers[e.Book.MD5])
	}

	buf.WriteString("## Bookmarks\n\n")
	if len(view.Bookmarks) == 0 {
		buf.WriteString("No bookmarks.\n\n")
	}
	for _, e := range view.Bookmarks {
		writeMarkdownEntry(&buf, e, covers[e.Book.MD5])
	}

	if len(view.Unresolved) > 0 {
		buf.WriteString("## Unresolved\n\n")
		for _, id := range view.Unresolved {
			fmt.Fprintf(&buf, "- `%s`\n", id)
		}
		buf.WriteString("\n")
	}
	return buf.Bytes(), nil
}

func writeMarkdownEntry(buf *bytes.Buffer, e models.LibraryEntry, cover string) {
	fmt.Fprintf(buf, "### %s\n\n", e.Book.Title)
	if cover != "" {
		fmt.Fprintf(buf, "![Cover](%s)\n\n", cover)
	}
	if e.Book.Author != "" {
		fmt.Fprintf(buf, "**Author**: %s\n", e.Book.Author)
	}
	fmt.Fprintf(buf, "**Format**: %s", e.Book.Extension())
	if e.Book.Size != "" {
		fmt.Fprintf(buf, " (%s)", e.Book.Size)
	}
	buf.WriteString("\n")
	if p := e.Progress; p != nil {
		fmt.Fprintf(buf, "**Progress**: %d/%d (%.0f%%)\n", p.CurrentPage, p.TotalPages, p.Percent())
	}
	fmt.Fprintf(buf, "**MD5**: `%s`\n\n", e.Book.MD5)
	if desc := DescriptionMarkdown(e.Book.Description); desc != "" {
		buf.WriteString(desc + "\n\n")
	}
}

// ExportToText converts a LibraryView to plain text
func ExportToText(view *models.LibraryView) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Reading: %d\n", len(view.Reading))
	for i, e := range view.Reading {
		fmt.Fprintf(&buf, "%d. %s - %s", i+1, e.Book.Author, e.Book.Title)
		if p := e.Progress; p != nil {
			fmt.Fprintf(&buf, " [%d/%d]", p.CurrentPage, p.TotalPages)
		}
		buf.WriteString("\n")
	}

	fmt.Fprintf(&buf, "\nBookmarks: %d\n", len(view.Bookmarks))
	for i, e := range view.Bookmarks {
		fmt.Fprintf(&buf, "%d. %s - %s\n", i+1, e.Book.Author, e.Book.Title)
	}

	if len(view.Unresolved) > 0 {
		fmt.Fprintf(&buf, "\nUnresolved: %d\n", len(view.Unresolved))
		for _, id := range view.Unresolved {
			fmt.Fprintf(&buf, "- %s\n", id)
		}
	}
	return buf.Bytes(), nil
}

// WriteExport renders view and writes it to path. An empty path becomes library.<ext>.
func WriteExport(view *models.LibraryView, f Format, path string) (string, error) {
	if path == "" {
		path = "library." + f.Extension()
	}

	data, err := Render(view, f)
	if err != nil {
		return "", err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export: %w", err)
	}
	return path, nil
}

// MarkdownExportOpts configures [WriteMarkdownExport].
type MarkdownExportOpts struct {
	Covers bool         // download cover images next to the README
	Client *http.Client // used for cover downloads
	Logger *log.Logger
}

// MarkdownExportResult contains information about files created by WriteMarkdownExport
type MarkdownExportResult struct {
	Directory string
	Files     []string
	Covers    []string
}

// WriteMarkdownExport writes {dir}/README.md and, when requested, {dir}/covers/{md5}{ext}.
//
// Cover download failures are logged and the entry is rendered without an image.
func WriteMarkdownExport(ctx context.Context, view *models.LibraryView, outputDir string, opts MarkdownExportOpts) (*MarkdownExportResult, error) {
	if outputDir == "" {
		outputDir = "library"
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{Directory: outputDir}
	covers := map[models.BookID]string{}
	if opts.Covers {
		coverDir := filepath.Join(outputDir, "covers")
		for _, e := range view.Entries() {
			if e.Book.Image == "" {
				continue
			}
			data, err := DownloadImage(ctx, opts.Client, e.Book.Image)
			if err != nil {
				opts.Logger.Warn("failed to download cover", "md5", e.Book.MD5, "error", err)
				continue
			}
			if err := os.MkdirAll(coverDir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create directory: %w", err)
			}
			name := e.Book.MD5.String() + imageExtension(e.Book.Image)
			if err := os.WriteFile(filepath.Join(coverDir, name), data, 0644); err != nil {
				opts.Logger.Warn("failed to save cover", "md5", e.Book.MD5, "error", err)
				continue
			}
			covers[e.Book.MD5] = "covers/" + name
			result.Covers = append(result.Covers, filepath.Join(coverDir, name))
		}
	}

	mdData, err := ExportToMarkdown(view, covers)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}
	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}

	result.Files = append(append(result.Files, result.Covers...), mdFile)
	return result, nil
}

func imageExtension(link string) string {
	ext := strings.ToLower(filepath.Ext(strings.SplitN(link, "?", 2)[0]))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".webp", ".gif":
		return ext
	default:
		return ".jpg"
	}
}

// DownloadImage downloads an image from the given URL and returns the raw bytes
func DownloadImage(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("%w: empty URL provided", shared.ErrInvalidArgument)
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	return imageData, nil
}

// WriteDownloadManifest writes report as indented JSON to path.
func WriteDownloadManifest(report *models.DownloadReport, path string) error {
	data, err := shared.MarshalJSON(report, true)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}
