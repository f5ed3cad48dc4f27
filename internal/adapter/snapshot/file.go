package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const (
	filePermissions os.FileMode = 0o644
	dirPermissions  os.FileMode = 0o755
)

// FileBackend stores each key as <dir>/<key>.json. Writes go to a temporary
// file that is renamed into place, so readers never see a partial document.
type FileBackend struct {
	dir string
}

// NewFileBackend creates a backend rooted at dir. The directory is created
// on first write.
func NewFileBackend(dir string) *FileBackend {
	return &FileBackend{dir: dir}
}

func (b *FileBackend) path(key string) string {
	return filepath.Join(b.dir, key+".json")
}

func (b *FileBackend) Read(_ context.Context, key string) ([]byte, error) {
	path := b.path(key)

	// Clean up any stale temp file from a previous crash.
	_ = os.Remove(path + ".tmp")

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot file: %w", err)
	}
	return data, nil
}

func (b *FileBackend) Write(_ context.Context, key string, data []byte) error {
	if err := os.MkdirAll(b.dir, dirPermissions); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	path := b.path(key)
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, filePermissions); err != nil {
		return fmt.Errorf("write snapshot file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("rename snapshot file: %w", err)
	}
	return nil
}

func (b *FileBackend) Close() error { return nil }
