// Package normalize canonicalizes meal titles into stable cache keys.
package normalize

import (
	"strings"
	"unicode"
)

// Title canonicalizes a raw meal title into a cache key: lowercased,
// stripped of everything except letters, digits, spaces, and hyphens,
// with internal whitespace collapsed and the result trimmed.
//
// The transform is idempotent: Title(Title(s)) == Title(s). An empty
// input (or one containing no keepable characters) yields "".
func Title(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))

	lastSpace := false
	for _, r := range strings.ToLower(raw) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-':
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteRune(' ')
			}
			lastSpace = true
		}
	}

	return strings.TrimSpace(b.String())
}

// Filename converts a normalized title key into a path segment by
// replacing spaces with hyphens. The input is expected to already be
// normalized via Title.
func Filename(key string) string {
	return strings.ReplaceAll(key, " ", "-")
}
