package imagecache

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory cache store for tests and standalone runs.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewMemoryStore creates an empty in-memory cache store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]string)}
}

// Lookup returns the cached URL for a key
func (s *MemoryStore) Lookup(ctx context.Context, key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	url, ok := s.entries[key]
	return url, ok
}

// Insert records the URL for a key; the first writer wins, matching the
// Postgres store's conflict behavior.
func (s *MemoryStore) Insert(ctx context.Context, key, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[key]; !exists {
		s.entries[key] = url
	}
	return nil
}

// Len returns the number of cached entries
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.entries)
}
