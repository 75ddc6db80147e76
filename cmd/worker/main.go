package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/place-sync-service/internal/config"
	"github.com/place-sync-service/internal/feed"
	"github.com/place-sync-service/internal/infrastructure/mapfeed"
	"github.com/place-sync-service/internal/pkg/logger"
	"github.com/place-sync-service/internal/repository/cache"
	"github.com/place-sync-service/internal/repository/postgres"
	redisRepo "github.com/place-sync-service/internal/repository/redis"
	"github.com/place-sync-service/internal/store"
	"github.com/place-sync-service/internal/sync"
	"github.com/place-sync-service/internal/worker"
	"github.com/place-sync-service/internal/worker/syncer"
)

// Standalone sync worker. Runs the same sync pipeline as the API process
// without the HTTP surface. The place store is authoritative in memory, so
// run either this binary or the API with WORKER_ENABLED=true, never both.
func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	if !cfg.Worker.Enabled {
		fmt.Println("Worker is disabled. Set WORKER_ENABLED=true to enable.")
		os.Exit(0)
	}

	// 2. Initialize logger
	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting Place Sync Worker")
	log.Info("Configuration loaded",
		zap.String("env", cfg.Server.Env),
		zap.String("consumer_group", cfg.Worker.ConsumerGroup),
		zap.Duration("sync_interval", cfg.Worker.SyncInterval),
		zap.Int("sources", len(cfg.Sources)),
	)

	// 3. Connect to PostgreSQL
	db, err := postgres.New(&cfg.Database, log)
	if err != nil {
		log.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Failed to close PostgreSQL connection", zap.Error(err))
		}
	}()

	// 4. Connect to Redis
	redisClient, err := cache.NewRedis(&cfg.Redis, log)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Error("Failed to close Redis connection", zap.Error(err))
		}
	}()

	// 5. Repositories
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	blobRepo := postgres.NewBlobRepository(db, log)
	if err := blobRepo.Migrate(ctx); err != nil {
		log.Fatal("Failed to migrate storage schema", zap.Error(err))
	}

	cacheRepo := cache.NewCacheRepository(redisClient)
	streamRepo := redisRepo.NewStreamRepository(redisClient.Client(), log)

	// 6. Open the place store
	placeStore := store.NewPlaceStore(blobRepo, log)
	if err := placeStore.Open(ctx); err != nil {
		log.Fatal("Failed to open place store", zap.Error(err))
	}
	log.Info("Place store opened", zap.Int("places", placeStore.Count()))

	// 7. Sync pipeline
	feedClient := mapfeed.NewFeedClient(&cfg.Feed, log)
	parser := feed.NewParser(log)
	tracker := sync.NewStatusTracker(blobRepo, cacheRepo, cfg.Cache.StatusTTL, log)
	orchestrator := sync.NewOrchestrator(placeStore, feedClient, parser, tracker, cacheRepo, cfg.Sources, log)

	// 8. Start workers
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	syncWorker := syncer.NewSyncWorker(
		streamRepo,
		orchestrator,
		cfg.Worker.ConsumerGroup,
		cfg.Worker.SyncInterval,
		log,
	)

	workerManager := worker.NewWorkerManager(log)
	workerManager.Register(syncWorker)

	if err := workerManager.Start(workerCtx); err != nil {
		log.Fatal("Failed to start workers", zap.Error(err))
	}

	log.Info("Worker started successfully")

	// 9. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down gracefully...")

	workerCancel()
	if err := workerManager.Stop(); err != nil {
		log.Error("Error stopping workers", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := placeStore.Close(shutdownCtx); err != nil {
		log.Error("Failed to flush place store", zap.Error(err))
	}

	log.Info("Worker stopped successfully")
}
