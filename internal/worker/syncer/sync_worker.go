package syncer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/place-sync-service/internal/domain"
	"github.com/place-sync-service/internal/domain/repository"
	"github.com/place-sync-service/internal/sync"
	"github.com/place-sync-service/internal/worker"
)

// SyncWorker executes queued sync requests and runs the periodic full sync.
// Requests are processed strictly one at a time; the store itself is safe
// for concurrent use, but sequential runs keep duplicate detection exact
// when two sources carry overlapping data.
type SyncWorker struct {
	*worker.BaseWorker
	streamRepo   repository.StreamRepository
	orchestrator *sync.Orchestrator
	consumerName string
	syncInterval time.Duration
}

func NewSyncWorker(
	streamRepo repository.StreamRepository,
	orchestrator *sync.Orchestrator,
	consumerGroup string,
	syncInterval time.Duration,
	logger *zap.Logger,
) *SyncWorker {
	hostname, _ := os.Hostname()
	consumerName := fmt.Sprintf("%s-%d", hostname, os.Getpid())

	return &SyncWorker{
		BaseWorker:   worker.NewBaseWorker("place-sync", consumerGroup, logger),
		streamRepo:   streamRepo,
		orchestrator: orchestrator,
		consumerName: consumerName,
		syncInterval: syncInterval,
	}
}

// Start consumes the sync request stream and ticks the periodic full sync.
func (w *SyncWorker) Start(ctx context.Context) error {
	logger := w.Logger()
	logger.Info("Starting SyncWorker",
		zap.String("consumer_group", w.ConsumerGroup()),
		zap.String("consumer_name", w.consumerName),
		zap.Duration("sync_interval", w.syncInterval))

	if err := w.streamRepo.CreateConsumerGroup(ctx, domain.StreamSyncRequests, w.ConsumerGroup()); err != nil {
		logger.Error("Failed to create consumer group", zap.Error(err))
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	consumeCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	messages, err := w.streamRepo.ConsumeStream(consumeCtx, domain.StreamSyncRequests, w.ConsumerGroup(), w.consumerName)
	if err != nil {
		return fmt.Errorf("failed to consume stream: %w", err)
	}

	ticker := time.NewTicker(w.syncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.StopChan():
			logger.Info("Worker stopped")
			return nil

		case <-ctx.Done():
			logger.Info("Context cancelled")
			return ctx.Err()

		case <-ticker.C:
			logger.Info("Periodic sync tick")
			w.orchestrator.SyncAll(ctx)

		case msg, ok := <-messages:
			if !ok {
				logger.Info("Message channel closed")
				return nil
			}
			w.handleMessage(ctx, msg)
		}
	}
}

func (w *SyncWorker) handleMessage(ctx context.Context, msg domain.StreamMessage) {
	logger := w.Logger()

	var req domain.SyncRequest
	if err := json.Unmarshal([]byte(msg.Data), &req); err != nil {
		logger.Warn("Dropping malformed sync request",
			zap.String("message_id", msg.ID),
			zap.Error(err))
		w.ack(ctx, msg.ID)
		return
	}

	logger.Info("Processing sync request",
		zap.String("message_id", msg.ID),
		zap.String("source_id", req.SourceID),
		zap.Bool("all", req.All))

	if req.All {
		w.orchestrator.SyncAll(ctx)
	} else {
		if _, err := w.orchestrator.SyncSource(ctx, req.SourceID); err != nil {
			// unknown source: nothing to retry, just drop the request
			logger.Warn("Sync request names an unknown source",
				zap.String("source_id", req.SourceID))
		}
	}

	w.ack(ctx, msg.ID)
}

func (w *SyncWorker) ack(ctx context.Context, messageID string) {
	if err := w.streamRepo.AckMessage(ctx, domain.StreamSyncRequests, w.ConsumerGroup(), messageID); err != nil {
		w.Logger().Error("Failed to ack message",
			zap.String("message_id", messageID),
			zap.Error(err))
	}
}
