package assets

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is an in-memory asset store for tests.
type MemoryStore struct {
	BaseURL string

	mu      sync.Mutex
	objects map[string][]byte
}

// NewMemoryStore creates an empty in-memory asset store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		BaseURL: "https://assets.example.com",
		objects: make(map[string][]byte),
	}
}

// Store keeps the payload in memory and returns a synthetic URL
func (s *MemoryStore) Store(ctx context.Context, key string, payload []byte, mimeType string) (string, error) {
	objectKey := ObjectKey(key, mimeType)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.objects[objectKey] = append([]byte(nil), payload...)
	return fmt.Sprintf("%s/%s", s.BaseURL, objectKey), nil
}

// Object returns a stored payload by object key
func (s *MemoryStore) Object(objectKey string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, ok := s.objects[objectKey]
	return payload, ok
}
