package fixture

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Store is a plain filesystem-backed reader/writer for raw per-primitive
// fixtures rooted at a directory. Writes stage to a temp path and rename
// into place, so a reader never observes a partially written fixture.
type Store struct {
	Root string
}

// NewStore returns a Store rooted at root. Root may not exist yet; it is
// created lazily on first write.
func NewStore(root string) *Store {
	return &Store{Root: root}
}

// ErrNotFound is returned by ReadJSON when no fixture exists at the given
// relative path.
var ErrNotFound = errors.New("fixture: not found")

// WriteJSON marshals value as 2-space-indented JSON and writes it
// atomically at relPath under Root.
func (s *Store) WriteJSON(relPath string, value interface{}) error {
	if s == nil || s.Root == "" {
		return fmt.Errorf("fixture: store has no root configured")
	}
	full := filepath.Join(s.Root, relPath)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("fixture: mkdir: %w", err)
	}

	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("fixture: marshal: %w", err)
	}

	staging := full + fmt.Sprintf(".tmp-%d", os.Getpid())
	if err := os.WriteFile(staging, data, 0o644); err != nil {
		return fmt.Errorf("fixture: write staging file: %w", err)
	}
	if err := os.Rename(staging, full); err != nil {
		os.Remove(staging)
		return fmt.Errorf("fixture: rename into place: %w", err)
	}
	return nil
}

// ReadJSON reads and unmarshals the fixture at relPath into dest. It
// returns ErrNotFound (wrapped) if the file does not exist.
func (s *Store) ReadJSON(relPath string, dest interface{}) error {
	full := filepath.Join(s.Root, relPath)
	data, err := os.ReadFile(full)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, relPath)
		}
		return fmt.Errorf("fixture: read %s: %w", relPath, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("fixture: unmarshal %s: %w", relPath, err)
	}
	return nil
}

// Exists reports whether a fixture exists at relPath.
func (s *Store) Exists(relPath string) bool {
	full := filepath.Join(s.Root, relPath)
	_, err := os.Stat(full)
	return err == nil
}

// AbsPath returns the absolute path a relative fixture path resolves to,
// useful for diagnostics (e.g. StubMiss.ExpectedAt).
func (s *Store) AbsPath(relPath string) string {
	return filepath.Join(s.Root, relPath)
}
