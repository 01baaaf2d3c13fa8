// Package storage keeps uploaded book cover images. Stored covers are
// addressed by a public path under PublicPrefix; anything else in a book's
// cover field (an external URL, a bundled asset) is left alone.
package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// PublicPrefix is the URL prefix covers are served under.
const PublicPrefix = "/uploads/"

// ErrNotFound is returned by Open for unknown keys.
var ErrNotFound = errors.New("cover not found")

// Object is an opened cover.
type Object struct {
	Body        io.ReadCloser
	Size        int64
	ContentType string
}

// CoverStore is implemented by the local disk and MinIO backends.
type CoverStore interface {
	// Save stores r under a fresh key derived from name and returns the
	// public path to record on the book.
	Save(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error)
	// Delete removes a cover previously returned by Save. Unmanaged paths
	// and missing objects are not errors.
	Delete(ctx context.Context, publicPath string) error
	// Open returns the cover stored under key.
	Open(ctx context.Context, key string) (*Object, error)
}

var whitespace = regexp.MustCompile(`\s+`)

// NewKey returns "<uuid>-<name>" with whitespace runs replaced by dashes.
// Any directory part of name is dropped.
func NewKey(name string) string {
	base := path.Base(strings.ReplaceAll(name, `\`, "/"))
	if base == "." || base == "/" {
		base = "cover"
	}
	return uuid.NewString() + "-" + whitespace.ReplaceAllString(base, "-")
}

// Managed reports whether publicPath points at a stored cover.
func Managed(publicPath string) bool {
	return strings.HasPrefix(publicPath, PublicPrefix)
}

// KeyOf extracts the object key from a managed public path. ok is false for
// unmanaged paths and keys that try to leave the uploads directory.
func KeyOf(publicPath string) (key string, ok bool) {
	if !Managed(publicPath) {
		return "", false
	}
	key = strings.TrimPrefix(publicPath, PublicPrefix)
	if !validKey(key) {
		return "", false
	}
	return key, true
}

func validKey(key string) bool {
	return key != "" && key != "." && key != ".." && !strings.ContainsAny(key, `/\`)
}
