package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// Record keys for the three persisted collections.
const (
	KeyCharacters = "characters"
	KeyStories    = "stories"
	KeyProfile    = "profile"
)

// Store persists records as JSON files under a data directory. Each record
// is read once at startup and written back on every mutation; there is a
// single logical writer, so no cross-process locking is attempted.
type Store struct {
	dir string
}

func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

// Load reads the record for key into v. It returns false with a nil error
// when the record does not exist yet.
func (s *Store) Load(key string, v any) (bool, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read %s record: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		// A corrupt record should not brick the app; treat it as absent.
		logrus.WithError(err).WithField("key", key).Warn("discarding unreadable record")
		return false, nil
	}
	return true, nil
}

// Save writes the record atomically via a temp file rename.
func (s *Store) Save(key string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s record: %w", key, err)
	}

	tmp := s.path(key) + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s record: %w", key, err)
	}
	if err := os.Rename(tmp, s.path(key)); err != nil {
		return fmt.Errorf("failed to replace %s record: %w", key, err)
	}
	return nil
}

// Clear removes the record for key. Missing records are not an error.
func (s *Store) Clear(key string) error {
	if err := os.Remove(s.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to clear %s record: %w", key, err)
	}
	return nil
}

// DefaultDir returns the data directory, preferring the user's home.
func DefaultDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".hearttales")
	}
	if cwd, err := os.Getwd(); err == nil {
		return filepath.Join(cwd, ".hearttales")
	}
	return ".hearttales"
}
