// Package storage persists observations, daily index results and raw
// source archives behind a small backend abstraction so the same pipeline
// runs against a local data directory or an S3 bucket.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when the requested object does not exist.
var ErrNotFound = errors.New("object not found")

// Backend is a flat key/value document store. Paths are slash-separated
// and relative to the backend root.
type Backend interface {
	// Read returns the content at path, or ErrNotFound.
	Read(ctx context.Context, path string) ([]byte, error)

	// Write stores content at path, creating parents as needed.
	Write(ctx context.Context, path string, content []byte) error

	// Exists reports whether path holds an object.
	Exists(ctx context.Context, path string) (bool, error)

	// List returns paths under prefix with the given suffix, sorted
	// ascending. Suffix may be empty.
	List(ctx context.Context, prefix, suffix string) ([]string, error)
}
