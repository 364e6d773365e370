package storage

import (
	"context"
	"io"
	"time"
)

// Storage defines the interface for file storage operations. Stored objects
// are private; reads go through short-lived signed URLs.
type Storage interface {
	// Upload stores a file under the given key.
	Upload(ctx context.Context, input *UploadInput) error

	// SignedURL returns a time-limited URL granting read access to the key.
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)

	// Delete removes a file by its key.
	Delete(ctx context.Context, key string) error
}

// UploadInput holds the parameters for uploading a file.
type UploadInput struct {
	Key         string
	ContentType string
	Size        int64
	Data        io.Reader
}
