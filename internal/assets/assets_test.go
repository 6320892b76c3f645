package assets

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectKey(t *testing.T) {
	testCases := []struct {
		name     string
		key      string
		mimeType string
		want     string
	}{
		{name: "png", key: "thanksgiving-dinner", mimeType: "image/png", want: "images/thanksgiving-dinner.png"},
		{name: "jpeg", key: "beef-stew", mimeType: "image/jpeg", want: "images/beef-stew.jpg"},
		{name: "jpg variant", key: "beef-stew", mimeType: "image/jpg", want: "images/beef-stew.jpg"},
		{name: "unknown defaults to png", key: "tacos", mimeType: "application/octet-stream", want: "images/tacos.png"},
		{name: "empty mime defaults to png", key: "tacos", mimeType: "", want: "images/tacos.png"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ObjectKey(tc.key, tc.mimeType))
		})
	}
}

func TestMemoryStore_Store(t *testing.T) {
	store := NewMemoryStore()
	payload := []byte{0x89, 0x50, 0x4E, 0x47}

	url, err := store.Store(context.Background(), "thanksgiving-dinner", payload, "image/png")
	require.NoError(t, err)
	assert.Equal(t, "https://assets.example.com/images/thanksgiving-dinner.png", url)

	stored, ok := store.Object("images/thanksgiving-dinner.png")
	require.True(t, ok)
	assert.Equal(t, payload, stored)
}
