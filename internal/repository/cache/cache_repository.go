package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/place-sync-service/internal/domain"
	"github.com/place-sync-service/internal/domain/repository"
)

const (
	effectivePlacesKey  = "places:effective"
	syncStatusKeyPrefix = "sync:status:"
)

type cacheRepository struct {
	client *redis.Client
	logger *zap.Logger
}

func NewCacheRepository(redis *Redis) repository.CacheRepository {
	return &cacheRepository{
		client: redis.Client(),
		logger: redis.logger,
	}
}

func (r *cacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil // Cache miss
	}
	if err != nil {
		r.logger.Error("Failed to get from cache", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("cache get error: %w", err)
	}

	r.logger.Debug("Cache hit", zap.String("key", key))
	return val, nil
}

func (r *cacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	err := r.client.Set(ctx, key, value, ttl).Err()
	if err != nil {
		r.logger.Error("Failed to set cache", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("cache set error: %w", err)
	}

	r.logger.Debug("Cache set", zap.String("key", key), zap.Duration("ttl", ttl))
	return nil
}

func (r *cacheRepository) Delete(ctx context.Context, key string) error {
	err := r.client.Del(ctx, key).Err()
	if err != nil {
		r.logger.Error("Failed to delete from cache", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("cache delete error: %w", err)
	}

	r.logger.Debug("Cache deleted", zap.String("key", key))
	return nil
}

func (r *cacheRepository) Exists(ctx context.Context, key string) (bool, error) {
	val, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		r.logger.Error("Failed to check cache existence", zap.String("key", key), zap.Error(err))
		return false, fmt.Errorf("cache exists error: %w", err)
	}

	return val > 0, nil
}

func (r *cacheRepository) GetEffectivePlaces(ctx context.Context) ([]domain.Place, error) {
	data, err := r.Get(ctx, effectivePlacesKey)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil // Cache miss
	}

	var places []domain.Place
	if err := json.Unmarshal(data, &places); err != nil {
		r.logger.Error("Failed to unmarshal effective places from cache", zap.Error(err))
		return nil, fmt.Errorf("unmarshal effective places: %w", err)
	}

	return places, nil
}

func (r *cacheRepository) SetEffectivePlaces(ctx context.Context, places []domain.Place, ttl time.Duration) error {
	data, err := json.Marshal(places)
	if err != nil {
		r.logger.Error("Failed to marshal effective places", zap.Error(err))
		return fmt.Errorf("marshal effective places: %w", err)
	}

	return r.Set(ctx, effectivePlacesKey, data, ttl)
}

func (r *cacheRepository) InvalidateEffectivePlaces(ctx context.Context) error {
	return r.Delete(ctx, effectivePlacesKey)
}

func (r *cacheRepository) GetSyncStatus(ctx context.Context, sourceID string) (*domain.SyncStatus, error) {
	data, err := r.Get(ctx, syncStatusKeyPrefix+sourceID)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil // Cache miss
	}

	var status domain.SyncStatus
	if err := json.Unmarshal(data, &status); err != nil {
		r.logger.Error("Failed to unmarshal sync status from cache", zap.Error(err))
		return nil, fmt.Errorf("unmarshal sync status: %w", err)
	}

	return &status, nil
}

func (r *cacheRepository) SetSyncStatus(ctx context.Context, status *domain.SyncStatus, ttl time.Duration) error {
	data, err := json.Marshal(status)
	if err != nil {
		r.logger.Error("Failed to marshal sync status", zap.Error(err))
		return fmt.Errorf("marshal sync status: %w", err)
	}

	return r.Set(ctx, syncStatusKeyPrefix+status.SourceID, data, ttl)
}
