package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/burzuercher/group-meal-planner-sub000/internal/models"
)

// ImageCacheRepository handles image cache entry database operations
type ImageCacheRepository struct {
	db *DB
}

// NewImageCacheRepository creates a new image cache repository
func NewImageCacheRepository(db *DB) *ImageCacheRepository {
	return &ImageCacheRepository{db: db}
}

// GetByKey retrieves a cache entry by normalized title key
func (r *ImageCacheRepository) GetByKey(ctx context.Context, key string) (*models.ImageCacheEntry, error) {
	var entry models.ImageCacheEntry
	query := `
		SELECT cache_key, image_url, created_at
		FROM image_cache_entries
		WHERE cache_key = $1
	`

	err := r.db.conn.GetContext(ctx, &entry, query, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCacheEntryNotFound
		}
		return nil, fmt.Errorf("failed to get cache entry: %w", err)
	}

	return &entry, nil
}

// Insert stores a cache entry for a key. The first successful writer for
// a key wins: concurrent generations for the same title may both attempt
// the insert, and later writes are dropped on conflict.
func (r *ImageCacheRepository) Insert(ctx context.Context, key, imageURL string) error {
	query := `
		INSERT INTO image_cache_entries (cache_key, image_url, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (cache_key) DO NOTHING
	`

	_, err := r.db.conn.ExecContext(ctx, query, key, imageURL)
	if err != nil {
		return fmt.Errorf("failed to insert cache entry: %w", err)
	}

	return nil
}
