package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"
)

// Mirror copies local image files into object storage under a key prefix.
type Mirror struct {
	store  ObjectStorage
	prefix string
}

// NewMirror wraps store; a nil store yields a nil Mirror, which is a no-op.
func NewMirror(store ObjectStorage, prefix string) *Mirror {
	if store == nil {
		return nil
	}
	return &Mirror{store: store, prefix: strings.Trim(prefix, "/")}
}

// Key returns the object key for a stored file name.
func (m *Mirror) Key(name string) string {
	if m.prefix == "" {
		return name
	}
	return path.Join(m.prefix, name)
}

// Put uploads the file at localPath under the key derived from its base name.
// Returns the object key.
func (m *Mirror) Put(ctx context.Context, localPath, contentType string) (string, error) {
	if m == nil {
		return "", nil
	}
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open mirrored file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat mirrored file: %w", err)
	}

	key := m.Key(info.Name())
	if err := m.store.Upload(ctx, key, f, info.Size(), contentType); err != nil {
		return "", err
	}
	return key, nil
}

// Remove deletes the object mirrored for name. Missing objects are not an error.
func (m *Mirror) Remove(ctx context.Context, name string) error {
	if m == nil {
		return nil
	}
	return m.store.Delete(ctx, m.Key(name))
}

// URL returns the public URL of the mirrored object for name, or "" for a nil Mirror.
func (m *Mirror) URL(name string) string {
	if m == nil {
		return ""
	}
	return m.store.GetURL(m.Key(name))
}
