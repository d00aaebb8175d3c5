// Package blob stores evidence images. Callers see an opaque key to URL mapping.
package blob

import (
	"context"
	"errors"
	"io"
	"regexp"
	"strings"
)

var ErrExists = errors.New("blob already exists")

type Store interface {
	// Put writes a new object and returns its public URL. Existing keys are never overwritten.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
}

var unsafeName = regexp.MustCompile(`[^\w.\-]+`)

const maxNameLen = 120

// SanitizeName keeps word characters, dots and dashes; everything else collapses to "_".
func SanitizeName(name string) string {
	s := unsafeName.ReplaceAllString(name, "_")
	if len(s) > maxNameLen {
		s = s[:maxNameLen]
	}
	if s == "" {
		s = "file"
	}
	return s
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}
