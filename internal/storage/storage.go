package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
)

// ErrNotFound is returned by Open when the object does not exist.
var ErrNotFound = errors.New("object not found")

// Store keeps uploaded file bytes outside the database.
type Store interface {
	// Save writes r under key and returns the object's URL. size may be -1
	// when unknown.
	Save(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes key. A missing object is not an error.
	Delete(ctx context.Context, key string) error
	// URL is where clients can fetch the object, if it is publicly served.
	URL(key string) string
}

// MakeObjectKey builds a tidy key: <prefix>/<filename>
func MakeObjectKey(prefix, filename string) string {
	return strings.TrimPrefix(path.Join(prefix, path.Base("/"+filename)), "/")
}

// cleanKey drops leading slashes and any ".." segments.
func cleanKey(key string) string {
	return strings.TrimPrefix(path.Clean("/"+key), "/")
}
