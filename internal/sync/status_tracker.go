package sync

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/place-sync-service/internal/domain"
	"github.com/place-sync-service/internal/domain/repository"
)

// StatusTracker keeps the live per-source sync status in memory and mirrors
// it to the cache for other processes. Completed results are appended to a
// capped durable history, one blob per source.
type StatusTracker struct {
	mu       sync.RWMutex
	statuses map[string]domain.SyncStatus

	blobRepo  repository.BlobRepository
	cacheRepo repository.CacheRepository
	statusTTL time.Duration
	logger    *zap.Logger
}

func NewStatusTracker(blobRepo repository.BlobRepository, cacheRepo repository.CacheRepository, statusTTL time.Duration, logger *zap.Logger) *StatusTracker {
	return &StatusTracker{
		statuses:  make(map[string]domain.SyncStatus),
		blobRepo:  blobRepo,
		cacheRepo: cacheRepo,
		statusTTL: statusTTL,
		logger:    logger,
	}
}

// SetPhase reports that a source is entering a pipeline phase. The phase
// becomes the status message so a poller can follow progress.
func (t *StatusTracker) SetPhase(ctx context.Context, sourceID string, phase domain.SyncPhase) {
	state := domain.SyncStateSyncing
	if phase == domain.PhaseConnecting {
		state = domain.SyncStateConnecting
	}
	t.set(ctx, domain.SyncStatus{
		SourceID:  sourceID,
		State:     state,
		Message:   string(phase),
		UpdatedAt: time.Now(),
	})
}

// SetResult records the terminal status of a finished sync.
func (t *StatusTracker) SetResult(ctx context.Context, result *domain.SyncResult) {
	status := domain.SyncStatus{
		SourceID:          result.SourceID,
		State:             domain.SyncStateSuccess,
		Message:           "sync completed",
		PlacesFound:       result.PlacesFound,
		PlacesAdded:       result.PlacesAdded,
		DuplicatesSkipped: result.DuplicatesSkipped,
		UpdatedAt:         time.Now(),
	}
	if !result.Success {
		status.State = domain.SyncStateError
		status.Message = result.Error
	}
	t.set(ctx, status)
}

func (t *StatusTracker) set(ctx context.Context, status domain.SyncStatus) {
	t.mu.Lock()
	t.statuses[status.SourceID] = status
	t.mu.Unlock()

	// Mirror is best effort, the in-memory copy stays authoritative.
	if err := t.cacheRepo.SetSyncStatus(ctx, &status, t.statusTTL); err != nil {
		t.logger.Warn("failed to mirror sync status to cache",
			zap.String("source_id", status.SourceID),
			zap.Error(err))
	}
}

// Status returns the live status of a source. Sources never synced in this
// process report idle.
func (t *StatusTracker) Status(sourceID string) domain.SyncStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if status, ok := t.statuses[sourceID]; ok {
		return status
	}
	return domain.SyncStatus{
		SourceID:  sourceID,
		State:     domain.SyncStateIdle,
		Message:   "never synced",
		UpdatedAt: time.Now(),
	}
}

// AppendHistory prepends a result to the durable per-source history,
// trimming it to the most recent SyncHistoryLimit entries.
func (t *StatusTracker) AppendHistory(ctx context.Context, result *domain.SyncResult) error {
	history, err := t.History(ctx, result.SourceID)
	if err != nil {
		return err
	}

	history = append([]domain.SyncResult{*result}, history...)
	if len(history) > domain.SyncHistoryLimit {
		history = history[:domain.SyncHistoryLimit]
	}

	raw, err := json.Marshal(history)
	if err != nil {
		return err
	}
	return t.blobRepo.Save(ctx, domain.SyncHistoryKey(result.SourceID), raw)
}

// History returns the stored sync history of a source, newest first.
func (t *StatusTracker) History(ctx context.Context, sourceID string) ([]domain.SyncResult, error) {
	raw, err := t.blobRepo.Load(ctx, domain.SyncHistoryKey(sourceID))
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return []domain.SyncResult{}, nil
	}

	var history []domain.SyncResult
	if err := json.Unmarshal(raw, &history); err != nil {
		return nil, err
	}
	return history, nil
}

// LastSyncTime returns when a source last completed successfully, nil when
// it never has.
func (t *StatusTracker) LastSyncTime(ctx context.Context, sourceID string) (*time.Time, error) {
	history, err := t.History(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	for _, result := range history {
		if result.Success {
			at := result.SyncedAt
			return &at, nil
		}
	}
	return nil, nil
}
