package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/desertthunder/bookrack/internal/models"
	"github.com/desertthunder/bookrack/internal/shared"
	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
)

// bookMIMEs maps upload formats to the content types accepted for them.
var bookMIMEs = map[string]string{
	"epub": "application/epub+zip",
	"mobi": "application/x-mobipocket-ebook",
	"pdf":  "application/pdf",
}

var coverMIMEs = []string{"image/png", "image/jpeg", "image/webp"}

// FieldError describes one rejected field of an upload submission.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError lists every rejected field of an upload submission.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + " " + f.Message
	}
	return "invalid upload: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return shared.ErrInvalidInput }

// UploadValidator checks submissions before they are sent.
type UploadValidator struct {
	v *validator.Validate
}

// NewUploadValidator creates a validator that reports fields by their form names.
func NewUploadValidator() *UploadValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		switch name {
		case "", "-":
			return fld.Name
		default:
			return name
		}
	})
	return &UploadValidator{v: v}
}

// Validate checks field rules, then sniffs the book and cover files.
func (u *UploadValidator) Validate(sub models.UploadSubmission) error {
	if err := u.v.Struct(sub); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		out := &ValidationError{}
		for _, fe := range verrs {
			out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Message: friendlyMessage(fe)})
		}
		return out
	}

	if err := checkFileType(sub.BookFile, bookMIMEs[sub.Format]); err != nil {
		return err
	}
	if sub.CoverFile != "" {
		if err := checkFileType(sub.CoverFile, coverMIMEs...); err != nil {
			return err
		}
	}
	return nil
}

func friendlyMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must not exceed %s characters", fe.Param())
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	case "numeric":
		return "must be numeric"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "isbn":
		return "must be a valid ISBN"
	case "file":
		return "must be an existing file"
	default:
		return "failed " + fe.Tag() + " validation"
	}
}

// checkFileType sniffs path and accepts it when it, or one of its parent types, matches allowed.
func checkFileType(path string, allowed ...string) error {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	for m := mtype; m != nil; m = m.Parent() {
		if mimetype.EqualsAny(m.String(), allowed...) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s is %s, want %s", shared.ErrUnsupportedFile, filepath.Base(path), mtype.String(),
		strings.Join(allowed, " or "))
}

// Upload implements [CatalogService].
//
// The submission is validated locally first. Uploads are not retried. A response carrying an error message
// is returned together with an error wrapping [shared.ErrUploadRejected].
func (c *CatalogClient) Upload(ctx context.Context, sub models.UploadSubmission) (*models.UploadResult, error) {
	if err := NewUploadValidator().Validate(sub); err != nil {
		return nil, err
	}

	body, contentType, err := encodeUpload(sub)
	if err != nil {
		return nil, err
	}

	target := c.endpoint("/upload", nil)
	resp, err := c.send(ctx, false, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
		if err == nil {
			req.Header.Set("Content-Type", contentType)
		}
		return req, err
	})

	var httpErr *HTTPError
	if errors.As(err, &httpErr) && httpErr.StatusCode < 500 && httpErr.Message != "" {
		result := &models.UploadResult{Error: httpErr.Message}
		return result, fmt.Errorf("%w: %s", shared.ErrUploadRejected, httpErr.Message)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to upload book: %w", err)
	}
	defer resp.Body.Close()

	var result models.UploadResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if result.Error != "" {
		return &result, fmt.Errorf("%w: %s", shared.ErrUploadRejected, result.Error)
	}
	return &result, nil
}

// encodeUpload writes the submission as multipart form data with "book" and optional "cover" file parts.
func encodeUpload(sub models.UploadSubmission) ([]byte, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fields := []struct{ name, value string }{
		{"title", sub.Title},
		{"author", sub.Author},
		{"publisher", sub.Publisher},
		{"year", sub.Year},
		{"format", sub.Format},
		{"series", sub.Series},
		{"isbn", sub.ISBN},
		{"cid", sub.CID},
		{"description", sub.Description},
	}
	for _, t := range sub.OtherTitles {
		fields = append(fields, struct{ name, value string }{"other_titles", t})
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		if err := mw.WriteField(f.name, f.value); err != nil {
			return nil, "", fmt.Errorf("failed to write field %s: %w", f.name, err)
		}
	}

	if err := attachFile(mw, "book", sub.BookFile); err != nil {
		return nil, "", err
	}
	if sub.CoverFile != "" {
		if err := attachFile(mw, "cover", sub.CoverFile); err != nil {
			return nil, "", err
		}
	}

	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finish form: %w", err)
	}
	return buf.Bytes(), mw.FormDataContentType(), nil
}

func attachFile(mw *multipart.Writer, field, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	part, err := mw.CreateFormFile(field, filepath.Base(path))
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("failed to copy %s: %w", path, err)
	}
	return nil
}
