package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// BlobRepository persists whole-blob storage keys in a single table. The
// engine reads and writes blobs atomically per key, so jsonb with an upsert
// is all the schema it needs.
type BlobRepository struct {
	db     *DB
	logger *zap.Logger
}

func NewBlobRepository(db *DB, logger *zap.Logger) *BlobRepository {
	return &BlobRepository{db: db, logger: logger}
}

// Migrate creates the blob table when it does not exist yet.
func (r *BlobRepository) Migrate(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS storage_blobs (
			key        TEXT PRIMARY KEY,
			data       JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`

	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create storage_blobs table: %w", err)
	}
	return nil
}

func (r *BlobRepository) Load(ctx context.Context, key string) ([]byte, error) {
	query := `SELECT data FROM storage_blobs WHERE key = $1`

	var data []byte
	err := r.db.GetContext(ctx, &data, query, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load blob %q: %w", key, err)
	}
	return data, nil
}

func (r *BlobRepository) Save(ctx context.Context, key string, data []byte) error {
	query := `
		INSERT INTO storage_blobs (key, data, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE
		SET data = EXCLUDED.data, updated_at = now()`

	if _, err := r.db.ExecContext(ctx, query, key, data); err != nil {
		return fmt.Errorf("failed to save blob %q: %w", key, err)
	}
	r.logger.Debug("Blob saved", zap.String("key", key), zap.Int("bytes", len(data)))
	return nil
}

func (r *BlobRepository) Delete(ctx context.Context, key string) error {
	query := `DELETE FROM storage_blobs WHERE key = $1`

	if _, err := r.db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("failed to delete blob %q: %w", key, err)
	}
	return nil
}
