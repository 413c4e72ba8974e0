// Package storage keeps uploaded image bytes. Callers pass a name that is
// already unique; backends never rename.
package storage

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Store is the object storage collaborator.
type Store interface {
	// Store saves data under name and returns the reference to persist.
	Store(ctx context.Context, data []byte, name string) (string, error)
	// Delete removes ref. Deleting a missing object succeeds.
	Delete(ctx context.Context, ref string) error
	// URL is the public address of ref.
	URL(ref string) string
}

// ErrInvalidRef is returned for references that would escape the store.
var ErrInvalidRef = errors.New("invalid storage reference")

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SanitizeFilename keeps the base name of an upload and reduces it to a
// conservative character set.
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.TrimSpace(name)
	name = unsafeChars.ReplaceAllString(strings.ReplaceAll(name, " ", "_"), "")
	name = strings.Trim(name, "._")
	if name == "" {
		return "upload"
	}
	if len(name) > 120 {
		ext := filepath.Ext(name)
		if len(ext) > 10 {
			ext = ""
		}
		name = name[:120-len(ext)] + ext
	}
	return name
}

// UniqueName prefixes a sanitized filename with a random hex token.
func UniqueName(original string) string {
	return strings.ReplaceAll(uuid.NewString(), "-", "") + "_" + SanitizeFilename(original)
}

func validRef(ref string) bool {
	if ref == "" || strings.Contains(ref, "..") || strings.HasPrefix(ref, "/") || strings.Contains(ref, "\\") {
		return false
	}
	return true
}
