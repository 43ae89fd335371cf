// Package settings persists the small set of user preferences the skill
// reads at search time, such as the preferred default station.
package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/bytedance/sonic"
)

const KeyDefaultFeed = "default_feed"

// Store is a thread-safe string map backed by a JSON file.
type Store struct {
	path   string
	values map[string]string
	mu     sync.RWMutex
	// saveMu orders writers so a stale snapshot never replaces a newer one.
	saveMu sync.Mutex
}

// NewStore creates a Store for path. Nothing is read until Load.
func NewStore(path string) *Store {
	return &Store{
		path:   path,
		values: make(map[string]string),
	}
}

func (s *Store) Path() string { return s.path }

// Load replaces the in-memory values with the file's. A missing or empty file
// leaves the store empty.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.values = make(map[string]string)
			return nil
		}
		return fmt.Errorf("read settings file: %w", err)
	}
	values := make(map[string]string)
	if len(data) > 0 {
		if err := sonic.Unmarshal(data, &values); err != nil {
			return fmt.Errorf("unmarshal settings: %w", err)
		}
	}
	s.values = values
	return nil
}

// Save writes all values atomically (tmp + rename).
func (s *Store) Save() error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.RLock()
	data, err := sonic.MarshalIndent(s.values, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create settings directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp.*")
	if err != nil {
		return fmt.Errorf("create tmp settings: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write tmp settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close tmp settings: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("chmod tmp settings: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename settings: %w", err)
	}
	return nil
}

func (s *Store) Get(key string) (string, bool) {
	if s == nil {
		return "", false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *Store) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

func (s *Store) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
}

// DefaultFeed returns the station id the user picked for "play the news".
func (s *Store) DefaultFeed() string {
	v, _ := s.Get(KeyDefaultFeed)
	return v
}

// SetDefaultFeed stores id and persists the change.
func (s *Store) SetDefaultFeed(id string) error {
	s.Set(KeyDefaultFeed, id)
	return s.Save()
}

// ClearDefaultFeed removes the preference and persists the change.
func (s *Store) ClearDefaultFeed() error {
	s.Delete(KeyDefaultFeed)
	return s.Save()
}
