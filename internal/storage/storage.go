// Package storage abstracts blob storage for user-uploaded media.
package storage

import (
	"context"
	"io"
)

// UploadInput describes a single blob to store.
type UploadInput struct {
	Key         string
	ContentType string
	Size        int64
	Data        io.Reader
}

// UploadResult reports where an uploaded blob can be reached.
type UploadResult struct {
	Key string
	URL string
}

// Storage stores and removes media blobs.
type Storage interface {
	// Upload stores the blob and returns its public URL.
	Upload(ctx context.Context, in *UploadInput) (*UploadResult, error)

	// Delete removes the blob with the given key. Deleting a missing key
	// is not an error.
	Delete(ctx context.Context, key string) error
}
