// Package objectstore keeps uploaded proof images on local disk. Keys
// are opaque file names generated at Put time; callers persist the key
// next to the proof row and fetch the bytes back through Get.
package objectstore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/lavaderos/turnos-backend/internal/models"
)

// Store is a directory-backed blob store.
type Store struct {
	dir string
}

// New creates the uploads directory if needed and returns the store.
func New(dir string) (*Store, error) {
	const op = "objectstore.New"

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Store{dir: dir}, nil
}

// Put writes the blob under a fresh key and returns the key.
func (s *Store) Put(data []byte, extension string) (string, error) {
	const op = "objectstore.Put"

	key := uuid.NewString() + "." + extension
	if err := os.WriteFile(filepath.Join(s.dir, key), data, 0o644); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return key, nil
}

// Get returns the blob bytes for a key, or ErrNotFound.
func (s *Store) Get(key string) ([]byte, error) {
	const op = "objectstore.Get"

	path, err := s.resolve(key)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return data, nil
}

// Delete removes a blob. Used to clean up orphans when the database
// insert after an upload fails. Deleting a missing key is not an error.
func (s *Store) Delete(key string) error {
	const op = "objectstore.Delete"

	path, err := s.resolve(key)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// resolve rejects keys that escape the uploads directory.
func (s *Store) resolve(key string) (string, error) {
	if key == "" || filepath.Base(key) != key {
		return "", models.ErrNotFound
	}
	return filepath.Join(s.dir, key), nil
}
