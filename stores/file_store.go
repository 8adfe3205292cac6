// Package stores provides Store implementations for the action outbox:
// a JSON file for on-device use and SQL databases for gateway-hosted agents.
package stores

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fieldline/actionbox"
)

// FileStore persists the queue snapshot as a single JSON blob. Writes go to
// a temp file first and are renamed into place, so a crash mid-write leaves
// the previous snapshot intact.
type FileStore struct {
	path string
	mode fs.FileMode
}

// FileOption configures a FileStore.
type FileOption func(*FileStore)

// WithFileMode overrides the default file mode (0o644).
func WithFileMode(mode fs.FileMode) FileOption {
	return func(s *FileStore) {
		if mode != 0 {
			s.mode = mode
		}
	}
}

// NewFileStore creates a store writing to the given path.
func NewFileStore(path string, opts ...FileOption) *FileStore {
	store := &FileStore{
		path: path,
		mode: 0o644,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Load reads and decodes the snapshot. A missing file is an empty queue.
func (s *FileStore) Load(_ context.Context) ([]actionbox.Action, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return actionbox.DecodeSnapshot(data)
}

// Save writes the snapshot atomically via write-then-rename.
func (s *FileStore) Save(_ context.Context, actions []actionbox.Action) error {
	data, err := actionbox.EncodeSnapshot(actions)
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create snapshot dir: %w", err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, s.mode); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return os.Rename(tmp, s.path)
}
