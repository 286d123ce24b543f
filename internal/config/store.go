package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
	"github.com/pelletier/go-toml/v2"

	"github.com/zkrising/tachi-import-scripts/internal/fileutil"
)

// Store holds the active configuration snapshot for a config file and applies
// partial updates to it. Snapshots are values; callers never share a pointer
// with the store.
type Store struct {
	path string

	mu       sync.RWMutex
	snapshot Config
	exists   bool
}

// Open loads the configuration at path (or the default location when empty)
// and returns a Store bound to the resolved file.
func Open(path string) (*Store, error) {
	cfg, resolved, exists, err := Load(path)
	if err != nil {
		return nil, err
	}
	return &Store{path: resolved, snapshot: *cfg, exists: exists}, nil
}

// NewStore wraps an already loaded configuration.
func NewStore(path string, cfg Config) *Store {
	_, err := os.Stat(path)
	return &Store{path: path, snapshot: cfg, exists: err == nil}
}

// Path returns the file backing the store.
func (s *Store) Path() string {
	return s.path
}

// Exists reports whether the backing file existed at the last load or update.
func (s *Store) Exists() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.exists
}

// Snapshot returns a copy of the current configuration.
func (s *Store) Snapshot() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// Reload re-reads the backing file and replaces the snapshot.
func (s *Store) Reload() (Config, error) {
	cfg, _, exists, err := Load(s.path)
	if err != nil {
		return Config{}, err
	}
	s.mu.Lock()
	s.snapshot = *cfg
	s.exists = exists
	s.mu.Unlock()
	return *cfg, nil
}

// Update applies mutate to the on-disk configuration, rewrites the file and
// returns the merged, normalized snapshot. The mutation sees the file's raw
// values so environment fallbacks are never persisted. Concurrent writers are
// serialized with an advisory lock next to the file; the last writer wins.
func (s *Store) Update(mutate func(*Config)) (Config, error) {
	if mutate == nil {
		return s.Snapshot(), nil
	}
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Config{}, fmt.Errorf("create config directory: %w", err)
		}
	}

	lock := flock.New(s.path + ".lock")
	if err := lock.Lock(); err != nil {
		return Config{}, fmt.Errorf("lock config: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	_, statErr := os.Stat(s.path)
	raw, err := decodeFile(s.path, statErr == nil)
	if err != nil {
		return Config{}, err
	}
	mutate(&raw)

	merged := raw
	if err := merged.normalize(); err != nil {
		return Config{}, err
	}
	if err := merged.Validate(); err != nil {
		return Config{}, err
	}

	if err := writeFile(s.path, raw); err != nil {
		return Config{}, err
	}

	s.mu.Lock()
	s.snapshot = merged
	s.exists = true
	s.mu.Unlock()
	return merged, nil
}

func writeFile(path string, cfg Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := fileutil.WriteAtomic(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
