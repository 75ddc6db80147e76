package sync

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/place-sync-service/internal/domain"
	"github.com/place-sync-service/internal/domain/repository"
	"github.com/place-sync-service/internal/feed"
	"github.com/place-sync-service/internal/metrics"
	apperrors "github.com/place-sync-service/internal/pkg/errors"
	"github.com/place-sync-service/internal/store"
)

// Orchestrator runs the per-source sync pipeline: connect, fetch, parse,
// reconcile, record. Sources are always processed one at a time.
type Orchestrator struct {
	store     *store.PlaceStore
	client    repository.FeedClient
	parser    *feed.Parser
	tracker   *StatusTracker
	cacheRepo repository.CacheRepository
	sources   []domain.SourceConfig
	logger    *zap.Logger
}

func NewOrchestrator(
	placeStore *store.PlaceStore,
	client repository.FeedClient,
	parser *feed.Parser,
	tracker *StatusTracker,
	cacheRepo repository.CacheRepository,
	sources []domain.SourceConfig,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		store:     placeStore,
		client:    client,
		parser:    parser,
		tracker:   tracker,
		cacheRepo: cacheRepo,
		sources:   sources,
		logger:    logger,
	}
}

// Sources returns the configured sources in declaration order.
func (o *Orchestrator) Sources() []domain.SourceConfig {
	out := make([]domain.SourceConfig, len(o.sources))
	copy(out, o.sources)
	return out
}

// SourceByID returns the configuration of one source.
func (o *Orchestrator) SourceByID(sourceID string) (*domain.SourceConfig, error) {
	for i := range o.sources {
		if o.sources[i].ID == sourceID {
			return &o.sources[i], nil
		}
	}
	return nil, apperrors.ErrSourceNotFound
}

// SyncSource runs one full sync of one source. A failed sync is a normal
// outcome reported through the result, an error return means the source id
// is unknown.
func (o *Orchestrator) SyncSource(ctx context.Context, sourceID string) (*domain.SyncResult, error) {
	source, err := o.SourceByID(sourceID)
	if err != nil {
		return nil, err
	}
	return o.run(ctx, source), nil
}

// SyncAll syncs every configured source sequentially. One source failing
// does not stop the rest.
func (o *Orchestrator) SyncAll(ctx context.Context) []domain.SyncResult {
	results := make([]domain.SyncResult, 0, len(o.sources))
	for i := range o.sources {
		result := o.run(ctx, &o.sources[i])
		results = append(results, *result)
	}
	return results
}

func (o *Orchestrator) run(ctx context.Context, source *domain.SourceConfig) *domain.SyncResult {
	log := o.logger.With(zap.String("source_id", source.ID))
	log.Info("starting sync", zap.String("source_name", source.Name))

	o.tracker.SetPhase(ctx, source.ID, domain.PhaseConnecting)
	if err := o.client.Ping(ctx); err != nil {
		return o.fail(ctx, source, "feed endpoint unreachable: "+err.Error(), log)
	}

	o.tracker.SetPhase(ctx, source.ID, domain.PhaseFetching)
	fetchStart := time.Now()
	payload, err := o.client.Fetch(ctx, source.FetchID)
	metrics.FetchDuration.WithLabelValues(source.ID).Observe(time.Since(fetchStart).Seconds())
	if err != nil {
		return o.fail(ctx, source, "fetch failed: "+err.Error(), log)
	}

	o.tracker.SetPhase(ctx, source.ID, domain.PhaseParsing)
	format := source.Format
	if payload.Hint != "" {
		format = payload.Hint
	}
	places, err := o.parser.Parse(payload.Raw, format)
	if err != nil {
		return o.fail(ctx, source, "parse failed: "+err.Error(), log)
	}

	o.tracker.SetPhase(ctx, source.ID, domain.PhaseProcessing)
	reconciled := o.store.Reconcile(ctx, source.ID, places)

	o.tracker.SetPhase(ctx, source.ID, domain.PhaseCompleting)
	result := &domain.SyncResult{
		ID:                uuid.New().String(),
		SourceID:          source.ID,
		Success:           true,
		PlacesFound:       len(places),
		PlacesAdded:       reconciled.Added,
		DuplicatesSkipped: reconciled.DuplicatesSkipped,
		SyncedAt:          time.Now(),
		Verification: &domain.SyncVerification{
			BeforeCount: reconciled.BeforeCount,
			AfterCount:  reconciled.AfterCount,
			ActualAdded: reconciled.AfterCount - reconciled.BeforeCount,
			CountsMatch: reconciled.AfterCount-reconciled.BeforeCount == reconciled.Added,
		},
	}
	if !result.Verification.CountsMatch {
		metrics.VerificationMismatches.WithLabelValues(source.ID).Inc()
		log.Warn("sync verification mismatch",
			zap.Int("reported_added", reconciled.Added),
			zap.Int("actual_added", result.Verification.ActualAdded))
	}

	metrics.SyncsTotal.WithLabelValues(source.ID, "success").Inc()
	metrics.PlacesAdded.WithLabelValues(source.ID).Add(float64(reconciled.Added))
	metrics.DuplicatesSkipped.WithLabelValues(source.ID).Add(float64(reconciled.DuplicatesSkipped))

	if reconciled.Added > 0 {
		if err := o.cacheRepo.InvalidateEffectivePlaces(ctx); err != nil {
			log.Warn("failed to invalidate effective places cache", zap.Error(err))
		}
	}

	o.finish(ctx, result, log)
	log.Info("sync completed",
		zap.Int("places_found", result.PlacesFound),
		zap.Int("places_added", result.PlacesAdded),
		zap.Int("duplicates_skipped", result.DuplicatesSkipped))
	return result
}

func (o *Orchestrator) fail(ctx context.Context, source *domain.SourceConfig, message string, log *zap.Logger) *domain.SyncResult {
	log.Error("sync failed", zap.String("reason", message))
	metrics.SyncsTotal.WithLabelValues(source.ID, "error").Inc()

	result := &domain.SyncResult{
		ID:       uuid.New().String(),
		SourceID: source.ID,
		Success:  false,
		SyncedAt: time.Now(),
		Error:    message,
	}
	o.finish(ctx, result, log)
	return result
}

func (o *Orchestrator) finish(ctx context.Context, result *domain.SyncResult, log *zap.Logger) {
	o.tracker.SetResult(ctx, result)
	if err := o.tracker.AppendHistory(ctx, result); err != nil {
		log.Warn("failed to persist sync history", zap.Error(err))
	}
}
