package blobstore

import (
	"context"
	"io"
)

// Store moves image bytes to durable storage and back. Put must generate a
// collision-free key per call and never overwrite an existing object.
type Store interface {
	Put(ctx context.Context, mimeType string, r io.Reader) (key string, err error)
	Get(ctx context.Context, key string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, key string) error
	// URL returns the stable retrieval URL for a stored key.
	URL(key string) string
}
