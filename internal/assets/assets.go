// Package assets persists generated illustration binaries and returns
// publicly resolvable URLs for them.
package assets

import (
	"context"
	"fmt"
	"strings"
)

// Store persists an illustration payload under a deterministic key and
// returns the public URL. Implementations must release any staging
// resources on every exit path.
type Store interface {
	Store(ctx context.Context, key string, payload []byte, mimeType string) (string, error)
}

// StorageError wraps an upload failure. The pipeline treats it as fatal
// to the task: the menu resolves without an image and the ledger is
// never charged for the attempt.
type StorageError struct {
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("failed to store asset %s: %v", e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ObjectKey builds the deterministic storage path for a filename-safe
// key, choosing the extension from the MIME type. Everything that is not
// recognizably JPEG is stored as png.
func ObjectKey(filenameKey, mimeType string) string {
	ext := "png"
	mt := strings.ToLower(mimeType)
	if strings.Contains(mt, "jpeg") || strings.Contains(mt, "jpg") {
		ext = "jpg"
	}
	return fmt.Sprintf("images/%s.%s", filenameKey, ext)
}
