package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/place-sync-service/internal/domain"
	"github.com/place-sync-service/internal/domain/repository"
	"github.com/place-sync-service/internal/pkg/errors"
	"github.com/place-sync-service/internal/sync"
	"github.com/place-sync-service/internal/usecase/dto"
)

// SyncUseCase exposes sync triggering and observation. Triggers are queued
// on the request stream and executed by the sync worker; status reads fall
// back to the cache mirror when this process has no live state for a source.
type SyncUseCase struct {
	orchestrator *sync.Orchestrator
	tracker      *sync.StatusTracker
	streamRepo   repository.StreamRepository
	cacheRepo    repository.CacheRepository
	logger       *zap.Logger
}

func NewSyncUseCase(
	orchestrator *sync.Orchestrator,
	tracker *sync.StatusTracker,
	streamRepo repository.StreamRepository,
	cacheRepo repository.CacheRepository,
	logger *zap.Logger,
) *SyncUseCase {
	return &SyncUseCase{
		orchestrator: orchestrator,
		tracker:      tracker,
		streamRepo:   streamRepo,
		cacheRepo:    cacheRepo,
		logger:       logger,
	}
}

// TriggerSync queues a sync request for one source.
func (uc *SyncUseCase) TriggerSync(ctx context.Context, sourceID string) (*dto.SyncTriggerResponse, error) {
	if _, err := uc.orchestrator.SourceByID(sourceID); err != nil {
		return nil, err
	}
	return uc.publish(ctx, domain.SyncRequest{
		SourceID:    sourceID,
		RequestedAt: time.Now().UTC(),
	})
}

// TriggerSyncAll queues one request covering every configured source.
func (uc *SyncUseCase) TriggerSyncAll(ctx context.Context) (*dto.SyncTriggerResponse, error) {
	return uc.publish(ctx, domain.SyncRequest{
		All:         true,
		RequestedAt: time.Now().UTC(),
	})
}

func (uc *SyncUseCase) publish(ctx context.Context, req domain.SyncRequest) (*dto.SyncTriggerResponse, error) {
	if err := uc.streamRepo.PublishToStream(ctx, domain.StreamSyncRequests, req); err != nil {
		uc.logger.Error("Failed to queue sync request", zap.Error(err))
		return nil, errors.ErrInternalServer.WithDetails(map[string]interface{}{
			"reason": "failed to queue sync request",
		})
	}

	uc.logger.Info("Sync request queued",
		zap.String("source_id", req.SourceID),
		zap.Bool("all", req.All))
	return &dto.SyncTriggerResponse{
		Queued:  true,
		Message: "sync request queued",
	}, nil
}

// GetStatus returns the live sync status of a source. When this process has
// never touched the source, the cache mirror written by the worker is
// consulted before reporting idle.
func (uc *SyncUseCase) GetStatus(ctx context.Context, sourceID string) (*domain.SyncStatus, error) {
	if _, err := uc.orchestrator.SourceByID(sourceID); err != nil {
		return nil, err
	}

	status := uc.tracker.Status(sourceID)
	if status.State != domain.SyncStateIdle {
		return &status, nil
	}

	mirrored, err := uc.cacheRepo.GetSyncStatus(ctx, sourceID)
	if err != nil {
		uc.logger.Warn("Failed to read sync status mirror", zap.Error(err))
	}
	if mirrored != nil {
		return mirrored, nil
	}
	return &status, nil
}

// GetHistory returns the stored sync history of a source, newest first.
func (uc *SyncUseCase) GetHistory(ctx context.Context, sourceID string) ([]domain.SyncResult, error) {
	if _, err := uc.orchestrator.SourceByID(sourceID); err != nil {
		return nil, err
	}
	return uc.tracker.History(ctx, sourceID)
}

// ListSources returns every configured source with its live status.
func (uc *SyncUseCase) ListSources(ctx context.Context) ([]dto.SourceResponse, error) {
	sources := uc.orchestrator.Sources()
	out := make([]dto.SourceResponse, 0, len(sources))

	for _, source := range sources {
		status, err := uc.GetStatus(ctx, source.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, dto.SourceResponse{
			ID:     source.ID,
			Name:   source.Name,
			Format: source.Format,
			Status: *status,
		})
	}
	return out, nil
}
