package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// DiskStorage keeps covers in a local directory served under a URL prefix.
type DiskStorage struct {
	dir       string
	urlPrefix string
}

// NewDiskStorage creates the directory if needed.
func NewDiskStorage(dir, urlPrefix string) (*DiskStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("in internal/upload/disk.go/NewDiskStorage(): error while `os.MkdirAll()` calling: %w", err)
	}

	return &DiskStorage{
		dir:       dir,
		urlPrefix: "/" + strings.Trim(urlPrefix, "/"),
	}, nil
}

// URLPrefix returns the path prefix the covers are served under.
func (d *DiskStorage) URLPrefix() string {
	return d.urlPrefix
}

// Put writes the file and returns "<prefix>/<name>".
func (d *DiskStorage) Put(ctx context.Context, name string, contentType string, body io.Reader, size int64) (string, error) {
	target, err := os.OpenFile(filepath.Join(d.dir, filepath.Base(name)), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", err
	}

	if _, err := io.Copy(target, body); err != nil {
		target.Close()
		os.Remove(target.Name())
		return "", err
	}

	if err := target.Close(); err != nil {
		return "", err
	}

	return path.Join(d.urlPrefix, filepath.Base(name)), nil
}

// Remove deletes a cover previously returned by Put. Paths outside the prefix are ignored.
func (d *DiskStorage) Remove(ctx context.Context, coverPath string) error {
	if !strings.HasPrefix(coverPath, d.urlPrefix+"/") {
		return nil
	}

	err := os.Remove(filepath.Join(d.dir, path.Base(coverPath)))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	return nil
}

// Handler serves the stored covers; mount it under URLPrefix().
func (d *DiskStorage) Handler() http.Handler {
	return http.StripPrefix(d.urlPrefix, http.FileServer(neuteredFS{http.Dir(d.dir)}))
}

// neuteredFS hides directory listings.
type neuteredFS struct {
	fs http.FileSystem
}

func (n neuteredFS) Open(name string) (http.File, error) {
	f, err := n.fs.Open(name)
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, fs.ErrNotExist
	}

	return f, nil
}
