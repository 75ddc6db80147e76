package repository

import (
	"context"
	"time"

	"github.com/place-sync-service/internal/domain"
)

// CacheRepository defines the cache boundary.
type CacheRepository interface {
	// Get returns the cached value for key, nil on a miss.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key with a TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key.
	Delete(ctx context.Context, key string) error

	// Exists checks whether key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// GetEffectivePlaces returns the cached merged view, nil on a miss.
	GetEffectivePlaces(ctx context.Context) ([]domain.Place, error)

	// SetEffectivePlaces caches the merged view.
	SetEffectivePlaces(ctx context.Context, places []domain.Place, ttl time.Duration) error

	// InvalidateEffectivePlaces drops the cached merged view.
	InvalidateEffectivePlaces(ctx context.Context) error

	// GetSyncStatus returns the mirrored live status of a source, nil on a miss.
	GetSyncStatus(ctx context.Context, sourceID string) (*domain.SyncStatus, error)

	// SetSyncStatus mirrors the live status of a source.
	SetSyncStatus(ctx context.Context, status *domain.SyncStatus, ttl time.Duration) error
}
