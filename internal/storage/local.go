package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// LocalStore keeps attachment blobs on local disk. Files are keyed by
// generated unique names so concurrent uploads never contend on a path.
type LocalStore struct {
	dir string
}

// NewLocalStore creates the upload directory if needed and returns the store.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

// Save writes the reader's content to a new uniquely named file and returns
// the file's path. The original file name only contributes its extension.
func (s *LocalStore) Save(src io.Reader, originalName string) (string, error) {
	name := uuid.NewString() + filepath.Ext(originalName)
	path := filepath.Join(s.dir, name)

	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	return path, nil
}

// Open opens a stored blob for reading.
func (s *LocalStore) Open(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

// Remove deletes a stored blob.
func (s *LocalStore) Remove(path string) error {
	return os.Remove(path)
}
