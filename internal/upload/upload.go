// Package upload accepts the optional book cover sent with a multipart form,
// checks that it is an image and hands it to a storage backend.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/patric-chuzhbe/bookshelf/internal/models"
)

// FieldName is the multipart field carrying the cover file.
const FieldName = "coverPage"

// Backend stores cover files and returns the path under which they are served.
type Backend interface {
	Put(ctx context.Context, name string, contentType string, body io.Reader, size int64) (string, error)
	Remove(ctx context.Context, coverPath string) error
}

// Handler extracts covers from requests.
type Handler struct {
	backend Backend
	maxSize int64
	now     func() time.Time
}

func New(backend Backend, maxSize int64) *Handler {
	return &Handler{
		backend: backend,
		maxSize: maxSize,
		now:     time.Now,
	}
}

// MaxSize returns the largest accepted cover in bytes.
func (h *Handler) MaxSize() int64 {
	return h.maxSize
}

// FromRequest stores the cover carried by the request, if any, and returns
// its path. A request without a file yields an empty path and no error.
// The request's multipart form must already be parsed.
func (h *Handler) FromRequest(request *http.Request) (string, error) {
	if request.MultipartForm == nil {
		return "", nil
	}

	file, header, err := request.FormFile(FieldName)
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("in internal/upload/upload.go/FromRequest(): error while `request.FormFile()` calling: %w", err)
	}
	defer file.Close()

	if header.Size == 0 {
		return "", nil
	}

	return h.Save(request.Context(), file, header)
}

// Save validates and stores one uploaded file.
func (h *Handler) Save(ctx context.Context, file multipart.File, header *multipart.FileHeader) (string, error) {
	if header.Size > h.maxSize {
		return "", &models.ValidationError{Field: FieldName, Reason: "is too large"}
	}

	mtype, err := mimetype.DetectReader(file)
	if err != nil {
		return "", fmt.Errorf("in internal/upload/upload.go/Save(): error while `mimetype.DetectReader()` calling: %w", err)
	}
	if !isAllowedImage(mtype) {
		return "", &models.ValidationError{Field: FieldName, Reason: "must be an image"}
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("in internal/upload/upload.go/Save(): error while `file.Seek()` calling: %w", err)
	}

	coverPath, err := h.backend.Put(ctx, h.fileName(header.Filename, mtype), mtype.String(), file, header.Size)
	if err != nil {
		return "", fmt.Errorf("in internal/upload/upload.go/Save(): error while `h.backend.Put()` calling: %w", err)
	}

	return coverPath, nil
}

// Remove deletes a stored cover. The default placeholder is never removed.
func (h *Handler) Remove(ctx context.Context, coverPath string) error {
	if coverPath == "" || coverPath == models.DefaultCoverPath {
		return nil
	}

	return h.backend.Remove(ctx, coverPath)
}

// fileName builds "<unix nanos>-<random>.<ext>". The extension of the client
// file name wins, the sniffed one is used when it has none.
func (h *Handler) fileName(original string, mtype *mimetype.MIME) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(original)))
	if ext == "" || len(ext) > 8 {
		ext = mtype.Extension()
	}

	return fmt.Sprintf("%d-%s%s", h.now().UnixNano(), uuid.NewString()[:8], ext)
}

func isAllowedImage(mtype *mimetype.MIME) bool {
	for m := mtype; m != nil; m = m.Parent() {
		if m.Is("image/svg+xml") {
			return false
		}
		if strings.HasPrefix(m.String(), "image/") {
			return true
		}
	}

	return false
}
