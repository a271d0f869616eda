package upload

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// MaxFileSize is the upload size ceiling (5MB).
const MaxFileSize = 5 << 20

// publicPrefix is the URL prefix under which stored files are served.
const publicPrefix = "/uploads"

// sanitizeFilename removes path separators and dangerous characters so a
// client-supplied name cannot escape the upload directory.
func sanitizeFilename(filename string) string {
	clean := filepath.Base(filepath.Clean(filename))
	clean = strings.ReplaceAll(clean, "/", "_")
	clean = strings.ReplaceAll(clean, "\\", "_")
	if clean == "." || clean == ".." || clean == "" {
		return "unnamed"
	}
	return clean
}

// Service stores uploaded images on local disk under a publicly served
// directory and hands back the public path.
type Service struct {
	dir string
}

// NewService creates a new upload service writing into dir.
func NewService(dir string) *Service {
	return &Service{dir: dir}
}

// Store writes the uploaded file under a fresh name and returns its public
// path. size is the declared upload size; the write is capped at MaxFileSize
// regardless, since a multipart header can lie.
func (s *Service) Store(filename string, src io.Reader, size int64) (string, error) {
	if src == nil {
		return "", ErrNoFile
	}
	if size > MaxFileSize {
		return "", ErrFileTooLarge
	}

	safe := sanitizeFilename(filename)
	name := uuid.New().String() + strings.ToLower(filepath.Ext(safe))
	dst := filepath.Join(s.dir, name)

	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}

	written, err := io.Copy(out, io.LimitReader(src, MaxFileSize+1))
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(dst)
		return "", fmt.Errorf("failed to write upload file: %w", err)
	}
	if written > MaxFileSize {
		_ = os.Remove(dst)
		return "", ErrFileTooLarge
	}

	return publicPrefix + "/" + name, nil
}
