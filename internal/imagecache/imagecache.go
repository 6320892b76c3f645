// Package imagecache maps normalized meal titles to already generated
// illustration URLs so repeat titles never pay for a second generation.
//
// The cache is deliberately forgiving: a lookup failure reads as a miss
// and an insert failure only forfeits a future hit for that key. Neither
// aborts the pipeline run that encountered it. There is no TTL, size
// bound, or invalidation; write volume is low enough that unbounded
// growth is an accepted tradeoff.
package imagecache

import (
	"context"
	"errors"

	"github.com/burzuercher/group-meal-planner-sub000/internal/storage"
	"github.com/burzuercher/group-meal-planner-sub000/internal/utils"
)

// Store looks up and records generated illustration URLs by cache key.
type Store interface {
	// Lookup returns the cached URL for a key, or ok=false on a miss.
	// Backend errors are swallowed and reported as misses.
	Lookup(ctx context.Context, key string) (url string, ok bool)

	// Insert records the URL for a key. Failures are non-fatal to
	// callers; the pipeline logs and continues.
	Insert(ctx context.Context, key, url string) error
}

// PostgresStore backs the cache with the image_cache_entries table.
type PostgresStore struct {
	repo   *storage.ImageCacheRepository
	logger *utils.Logger
}

// NewPostgresStore creates a Postgres-backed cache store
func NewPostgresStore(repo *storage.ImageCacheRepository) *PostgresStore {
	return &PostgresStore{
		repo:   repo,
		logger: utils.NewLogger("image-cache"),
	}
}

// Lookup returns the cached URL for a key. Any repository error, not
// just a missing row, is treated as a miss.
func (s *PostgresStore) Lookup(ctx context.Context, key string) (string, bool) {
	entry, err := s.repo.GetByKey(ctx, key)
	if err != nil {
		if !errors.Is(err, storage.ErrCacheEntryNotFound) {
			s.logger.Warn("Cache lookup failed, treating as miss", "key", key, "error", err)
		}
		return "", false
	}
	return entry.ImageURL, true
}

// Insert records the URL for a key; the first writer wins.
func (s *PostgresStore) Insert(ctx context.Context, key, url string) error {
	return s.repo.Insert(ctx, key, url)
}
