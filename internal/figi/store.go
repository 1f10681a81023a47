package figi

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"fundcli/pkg/contracts/domain"
)

// ErrCacheCorrupt marks an unreadable cache file. The cache is safe to
// delete, so the remedy is always the same: remove the file and re-run.
var ErrCacheCorrupt = errors.New("figi cache file is corrupt")

// Store is the resolver's key-value cache of resolved ISINs. A stored nil
// entry is an explicit "no match" marker and is just as much a cache hit
// as a resolved ticker.
type Store interface {
	// Get returns the cached entry for isin. ok is false when the ISIN was
	// never resolved; a (nil, true) return means "resolved, no match".
	Get(isin string) (entry *domain.FigiEntry, ok bool)
	// Put records the resolution result for isin.
	Put(isin string, entry *domain.FigiEntry)
	// Flush persists the store. Called after every successful batch so a
	// crash keeps forward progress.
	Flush() error
}

// MemStore is an in-memory Store for tests and cacheless runs.
type MemStore struct {
	entries map[string]*domain.FigiEntry
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{entries: make(map[string]*domain.FigiEntry)}
}

func (s *MemStore) Get(isin string) (*domain.FigiEntry, bool) {
	e, ok := s.entries[isin]
	return e, ok
}

func (s *MemStore) Put(isin string, entry *domain.FigiEntry) {
	s.entries[isin] = entry
}

func (s *MemStore) Flush() error { return nil }

// Len returns the number of cached ISINs.
func (s *MemStore) Len() int { return len(s.entries) }

// FileStore persists resolved ISINs as a JSON object mapping ISIN to entry
// (null for "no match"). Flush writes the whole file through a rename so a
// crash mid-write never leaves a truncated cache behind.
type FileStore struct {
	path    string
	entries map[string]*domain.FigiEntry
	dirty   bool
}

// NewFileStore loads the cache at path, starting empty when the file does
// not exist yet. A file that exists but cannot be parsed returns
// ErrCacheCorrupt.
func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path, entries: make(map[string]*domain.FigiEntry)}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache file %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &s.entries); err != nil {
		return nil, fmt.Errorf("%w: %s: %v (delete the file and re-run to force full re-resolution)", ErrCacheCorrupt, path, err)
	}
	if s.entries == nil {
		s.entries = make(map[string]*domain.FigiEntry)
	}
	return s, nil
}

func (s *FileStore) Get(isin string) (*domain.FigiEntry, bool) {
	e, ok := s.entries[isin]
	return e, ok
}

func (s *FileStore) Put(isin string, entry *domain.FigiEntry) {
	s.entries[isin] = entry
	s.dirty = true
}

// Flush writes the cache atomically. A clean store is a no-op.
func (s *FileStore) Flush() error {
	if !s.dirty {
		return nil
	}

	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode cache: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write cache: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace cache file: %w", err)
	}
	s.dirty = false
	return nil
}

// Len returns the number of cached ISINs.
func (s *FileStore) Len() int { return len(s.entries) }
