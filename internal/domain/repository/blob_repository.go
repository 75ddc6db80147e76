package repository

import "context"

// BlobRepository is the durable storage boundary: one serialized blob per
// logical store key, read whole and written whole. No partial updates.
type BlobRepository interface {
	// Load returns the blob stored under key, or nil when the key is absent.
	Load(ctx context.Context, key string) ([]byte, error)

	// Save overwrites the blob stored under key.
	Save(ctx context.Context, key string, data []byte) error

	// Delete removes the blob stored under key.
	Delete(ctx context.Context, key string) error
}
