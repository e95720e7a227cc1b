// Package storage persists generated artifacts onto the local filesystem and
// derives their collision-resistant filenames.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileStore writes artifacts under a single output directory. The directory
// is created on construction; every write target is a freshly generated,
// timestamp-qualified filename, so concurrent invocations sharing a directory
// never collide.
type FileStore struct {
	basePath string
}

// NewFileStore initializes a FileStore rooted at basePath, creating the
// directory if missing.
func NewFileStore(basePath string) (*FileStore, error) {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" {
		return nil, errors.New("storage: base path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: ensure base path: %w", err)
	}
	return &FileStore{basePath: basePath}, nil
}

// BasePath returns the configured root directory.
func (s *FileStore) BasePath() string {
	if s == nil {
		return ""
	}
	return s.basePath
}

// Write persists the provided bytes under the given filename and returns the
// full path. The filename must be a bare name, not a path.
func (s *FileStore) Write(filename string, data []byte) (string, error) {
	if s == nil {
		return "", errors.New("storage: no store configured")
	}
	if filename == "" || filename != filepath.Base(filename) {
		return "", fmt.Errorf("storage: invalid filename %q", filename)
	}
	fullPath := filepath.Join(s.basePath, filename)
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return "", fmt.Errorf("storage: write file: %w", err)
	}
	return fullPath, nil
}
