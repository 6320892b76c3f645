package imagecache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_LookupMiss(t *testing.T) {
	store := NewMemoryStore()

	url, ok := store.Lookup(context.Background(), "beef stew")
	assert.False(t, ok)
	assert.Empty(t, url)
}

func TestMemoryStore_InsertThenLookup(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, "beef stew", "https://assets.example.com/images/beef-stew.png"))

	url, ok := store.Lookup(ctx, "beef stew")
	require.True(t, ok)
	assert.Equal(t, "https://assets.example.com/images/beef-stew.png", url)
}

func TestMemoryStore_FirstWriterWins(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, "tacos", "https://assets.example.com/images/tacos.png"))
	require.NoError(t, store.Insert(ctx, "tacos", "https://assets.example.com/images/tacos-v2.png"))

	url, ok := store.Lookup(ctx, "tacos")
	require.True(t, ok)
	assert.Equal(t, "https://assets.example.com/images/tacos.png", url)
	assert.Equal(t, 1, store.Len())
}
