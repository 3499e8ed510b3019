package media

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
)

// MaxFileSize is the per-file upload limit (5 MiB).
const MaxFileSize = 5 << 20

var (
	ErrUnsupportedType = errors.New("only image files are allowed (jpg, jpeg, png, gif)")
	ErrFileTooLarge    = fmt.Errorf("file exceeds the %d MiB limit", MaxFileSize>>20)
)

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
}

// Upload is an uploaded file that has not been stored yet.
type Upload struct {
	Filename string
	MIMEType string
	Size     int64
	Open     func() (io.ReadCloser, error)
}

func FromFileHeader(fh *multipart.FileHeader) Upload {
	return Upload{
		Filename: fh.Filename,
		MIMEType: fh.Header.Get("Content-Type"),
		Size:     fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

// Validate checks the extension and declared size before anything is written.
func (u Upload) Validate() error {
	if !allowedExtensions[strings.ToLower(filepath.Ext(u.Filename))] {
		return fmt.Errorf("%s: %w", u.Filename, ErrUnsupportedType)
	}
	if u.Size > MaxFileSize {
		return fmt.Errorf("%s: %w", u.Filename, ErrFileTooLarge)
	}
	return nil
}

// ReadAll reads the upload, enforcing MaxFileSize on the actual bytes.
func (u Upload) ReadAll() ([]byte, error) {
	rc, err := u.Open()
	if err != nil {
		return nil, fmt.Errorf("media: opening %s: %w", u.Filename, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("media: reading %s: %w", u.Filename, err)
	}
	if len(data) > MaxFileSize {
		return nil, fmt.Errorf("%s: %w", u.Filename, ErrFileTooLarge)
	}
	return data, nil
}
