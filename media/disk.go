package media

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// DiskStore keeps files under Root/<YYYY-MM>/.
type DiskStore struct {
	Root string
	now  func() time.Time
}

func NewDiskStore(root string) (*DiskStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("media: creating upload root: %w", err)
	}
	return &DiskStore{Root: root, now: time.Now}, nil
}

func (s *DiskStore) Store(ctx context.Context, data []byte, originalName, mimeType string) (StoredFile, error) {
	key, filename := newKey(s.now(), originalName)
	full := filepath.Join(s.Root, filepath.FromSlash(key))

	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return StoredFile{}, fmt.Errorf("media: creating month directory: %w", err)
	}
	if err := os.WriteFile(full, data, 0644); err != nil {
		return StoredFile{}, fmt.Errorf("media: writing %s: %w", filename, err)
	}

	return StoredFile{
		Path:     URLPrefix + key,
		Filename: filename,
		Size:     int64(len(data)),
	}, nil
}

func (s *DiskStore) Delete(ctx context.Context, path string) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("media: removing %s: %w", path, err)
	}
	return nil
}

func (s *DiskStore) Exists(ctx context.Context, path string) (bool, error) {
	full, err := s.resolve(path)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(full)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return !info.IsDir(), nil
}

func (s *DiskStore) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	full, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(full)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("media: %s is a directory: %w", path, fs.ErrNotExist)
	}
	return os.Open(full)
}

func (s *DiskStore) resolve(path string) (string, error) {
	key, err := keyFromPath(path)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.Root, filepath.FromSlash(key)), nil
}
