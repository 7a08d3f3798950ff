package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// Store is a file-based cache: entries live at
// <dir>/<provider>/<model>/<hash[:2]>/<hash>.json.
type Store struct {
	dir    string
	logger *logrus.Entry
}

// NewStore ensures dir exists and returns a Store rooted at it.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory %s: %w", dir, err)
	}
	return &Store{
		dir:    dir,
		logger: logrus.WithField("component", "cache"),
	}, nil
}

// Dir returns the root cache directory.
func (s *Store) Dir() string { return s.dir }

func (s *Store) pathFor(provider, model, hash string) string {
	prefix := hash
	if len(hash) >= 2 {
		prefix = hash[:2]
	}
	return filepath.Join(s.dir, provider, model, prefix, hash+".json")
}

// Exists reports whether an entry for the given key is already cached.
func (s *Store) Exists(provider, model, hash string) bool {
	_, err := os.Stat(s.pathFor(provider, model, hash))
	return err == nil
}

// Get loads an entry, recording an access (and persisting the bumped
// metadata) on a hit. It returns (nil, nil) on a clean miss.
func (s *Store) Get(provider, model, hash string) (*Entry, error) {
	path := s.pathFor(provider, model, hash)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read cache file %s: %w", path, err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("parse cache entry %s: %w", path, err)
	}

	entry.RecordAccess()
	updated, err := json.MarshalIndent(&entry, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, updated, 0o644); err != nil {
		return nil, fmt.Errorf("update cache metadata %s: %w", path, err)
	}
	return &entry, nil
}

// Set writes an entry, creating parent directories as needed.
func (s *Store) Set(entry *Entry) error {
	path := s.pathFor(entry.Agent, entry.Model, entry.PromptHash)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create cache subdirectory: %w", err)
	}
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("serialize cache entry: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write cache file %s: %w", path, err)
	}
	s.logger.WithField("path", path).Debug("cache entry saved")
	return nil
}

// Delete removes an entry if present; deleting a missing entry is a no-op.
func (s *Store) Delete(provider, model, hash string) error {
	path := s.pathFor(provider, model, hash)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete cache file %s: %w", path, err)
	}
	return nil
}

// TotalSize walks the cache directory and sums the size of every file.
func (s *Store) TotalSize() (int64, error) {
	var total int64
	if _, err := os.Stat(s.dir); os.IsNotExist(err) {
		return 0, nil
	}
	err := filepath.WalkDir(s.dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	return total, err
}

// ClearAll removes every cached entry and resets the cleanup state.
func (s *Store) ClearAll() error {
	if err := os.RemoveAll(s.dir); err != nil {
		return err
	}
	return os.MkdirAll(s.dir, 0o755)
}
