package storage

import "errors"

var (
	// ErrMenuNotFound is returned when a menu is not found
	ErrMenuNotFound = errors.New("menu not found")

	// ErrCacheEntryNotFound is returned when no cache entry exists for a key
	ErrCacheEntryNotFound = errors.New("image cache entry not found")
)
