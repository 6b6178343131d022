// Package upload validates proof-of-payment images before they reach the
// object store.
package upload

import (
	"fmt"
	"io"
	"net/http"

	"github.com/lavaderos/turnos-backend/internal/models"
)

// MaxSize is the upper bound for a proof image.
const MaxSize = 5 << 20 // 5 MiB

var allowedTypes = map[string]string{
	"image/jpeg": "jpg",
	"image/jpg":  "jpg",
	"image/png":  "png",
	"image/gif":  "gif",
	"image/webp": "webp",
}

// Validate checks content type and size of an upload. Violations are
// reported as models.ErrInvalidUpload with a field-level reason.
func Validate(u models.Upload) error {
	const op = "upload.Validate"
	if _, ok := allowedTypes[u.ContentType]; !ok {
		return fmt.Errorf("%s: %w: content type %q not allowed (jpeg, png, gif, webp)", op, models.ErrInvalidUpload, u.ContentType)
	}
	if len(u.Data) == 0 {
		return fmt.Errorf("%s: %w: empty file", op, models.ErrInvalidUpload)
	}
	if len(u.Data) > MaxSize {
		return fmt.Errorf("%s: %w: file exceeds 5MB", op, models.ErrInvalidUpload)
	}
	return nil
}

// FromRequest extracts the multipart file under field into an Upload.
// The body is capped one byte above MaxSize so oversized files fail in
// Validate with the proper error instead of an opaque read failure.
func FromRequest(r *http.Request, field string) (models.Upload, error) {
	const op = "upload.FromRequest"

	if err := r.ParseMultipartForm(MaxSize + 1); err != nil {
		return models.Upload{}, fmt.Errorf("%s: %w: not a multipart form", op, models.ErrInvalidUpload)
	}

	file, header, err := r.FormFile(field)
	if err != nil {
		return models.Upload{}, fmt.Errorf("%s: %w: missing file field %q", op, models.ErrInvalidUpload, field)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, MaxSize+1))
	if err != nil {
		return models.Upload{}, fmt.Errorf("%s: failed to read file: %w", op, err)
	}

	return models.Upload{
		Data:        data,
		ContentType: header.Header.Get("Content-Type"),
		Filename:    header.Filename,
	}, nil
}

// Extension returns the canonical file extension for an allowed content
// type. Validate must have passed first.
func Extension(contentType string) string {
	if ext, ok := allowedTypes[contentType]; ok {
		return ext
	}
	return "bin"
}
