package persist

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const (
	fileExt         = ".json"
	dirPermissions  = 0750
	filePermissions = 0600
)

// FileStore keeps each object in <dir>/<key>.json.
type FileStore struct {
	dir string
}

// NewFileStore returns a store rooted at dir. The directory is created on
// first write.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Path returns the file backing key.
func (s *FileStore) Path(key string) string {
	return filepath.Join(s.dir, key+fileExt)
}

// Read implements Store.
func (s *FileStore) Read(_ context.Context, key string) ([]byte, error) {
	body, err := os.ReadFile(s.Path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", s.Path(key), ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.Path(key), err)
	}
	return body, nil
}

// Write implements Store. The body goes to a temporary file first and is
// renamed over the old copy, so a crash never leaves a truncated file.
func (s *FileStore) Write(_ context.Context, key string, body []byte) error {
	if err := os.MkdirAll(s.dir, dirPermissions); err != nil {
		return fmt.Errorf("creating %s: %w", s.dir, err)
	}

	tmp, err := os.CreateTemp(s.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // gone after a successful rename

	if _, err := tmp.Write(body); err != nil {
		tmp.Close() //nolint:errcheck // write error takes precedence
		return fmt.Errorf("writing %s: %w", tmp.Name(), err)
	}
	if err := tmp.Chmod(filePermissions); err != nil {
		tmp.Close() //nolint:errcheck // chmod error takes precedence
		return fmt.Errorf("chmod %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), s.Path(key)); err != nil {
		return fmt.Errorf("replacing %s: %w", s.Path(key), err)
	}
	return nil
}
