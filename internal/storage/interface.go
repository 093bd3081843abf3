// Package storage mirrors normalized meme images to S3-compatible object storage.
package storage

import (
	"context"
	"io"
)

// ObjectStorage defines the object operations the image mirror needs.
type ObjectStorage interface {
	// Upload stores size bytes from reader under key.
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error

	// GetURL returns the public URL of key.
	GetURL(key string) string

	// Delete removes key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error
}
