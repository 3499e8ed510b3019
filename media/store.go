// Package media persists uploaded images and removes them again when the
// records referencing them go away.
package media

import (
	"context"
	"errors"
	"io"
	"log"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// URLPrefix is the web-relative prefix of every stored file path.
const URLPrefix = "/uploads/"

var ErrInvalidPath = errors.New("media: path is not an upload path")

// StoredFile describes a file written by a Store.
type StoredFile struct {
	Path     string // web-relative, e.g. /uploads/2024-05/<uuid>.jpg
	Filename string
	Size     int64
}

// Store is the file backend for recipe and step images. Delete must return nil
// when the file is already gone.
type Store interface {
	Store(ctx context.Context, data []byte, originalName, mimeType string) (StoredFile, error)
	Delete(ctx context.Context, path string) error
	Exists(ctx context.Context, path string) (bool, error)
	Open(ctx context.Context, path string) (io.ReadCloser, error)
}

// newKey builds "<YYYY-MM>/<uuid><ext>" keeping the extension of the
// uploaded name.
func newKey(now time.Time, originalName string) (key, filename string) {
	filename = uuid.NewString() + filepath.Ext(originalName)
	return now.Format("2006-01") + "/" + filename, filename
}

// keyFromPath turns "/uploads/2024-05/x.jpg" into "2024-05/x.jpg".
func keyFromPath(p string) (string, error) {
	if !strings.HasPrefix(p, URLPrefix) {
		return "", ErrInvalidPath
	}
	key := path.Clean(strings.TrimPrefix(p, URLPrefix))
	if key == "." || key == ".." || strings.HasPrefix(key, "../") || strings.HasPrefix(key, "/") {
		return "", ErrInvalidPath
	}
	return key, nil
}

// Cleanup deletes every path and returns the ones that could not be removed.
// Failures are logged and never escalated.
func Cleanup(ctx context.Context, store Store, paths ...string) []string {
	var failed []string
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := store.Delete(ctx, p); err != nil {
			log.Printf("media: cleanup %s: %v", p, err)
			failed = append(failed, p)
		}
	}
	return failed
}
