package main

// @title Place Sync Service API
// @version 1.0.0
// @description Service that imports place records from external map-export feeds, keeps user edits in a separate overlay, and serves the merged view.
// @description
// @description Key behaviors:
// @description - Imported records are immutable; user changes live in a versioned edit overlay
// @description - Re-running a sync against unchanged feed content adds nothing
// @description - Edit overlays can be exported and imported across deployments with version-wins merging
// @description - Sync progress and history are observable per source

// @contact.name API Support

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /
// @schemes http https

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	_ "github.com/place-sync-service/docs/swagger"
	"github.com/place-sync-service/internal/config"
	httpDelivery "github.com/place-sync-service/internal/delivery/http"
	"github.com/place-sync-service/internal/delivery/http/handler"
	"github.com/place-sync-service/internal/feed"
	"github.com/place-sync-service/internal/infrastructure/mapfeed"
	"github.com/place-sync-service/internal/pkg/logger"
	"github.com/place-sync-service/internal/repository/cache"
	"github.com/place-sync-service/internal/repository/postgres"
	redisRepo "github.com/place-sync-service/internal/repository/redis"
	"github.com/place-sync-service/internal/store"
	"github.com/place-sync-service/internal/sync"
	"github.com/place-sync-service/internal/usecase"
	"github.com/place-sync-service/internal/worker"
	"github.com/place-sync-service/internal/worker/syncer"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// 2. Initialize logger
	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting Place Sync Service")
	log.Info("Configuration loaded",
		zap.String("env", cfg.Server.Env),
		zap.String("server_addr", cfg.GetServerAddr()),
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

	// 5. Initialize repositories and migrate the blob table
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	blobRepo := postgres.NewBlobRepository(db, log)
	if err := blobRepo.Migrate(ctx); err != nil {
		log.Fatal("Failed to migrate storage schema", zap.Error(err))
	}

	cacheRepo := cache.NewCacheRepository(redisClient)
	streamRepo := redisRepo.NewStreamRepository(redisClient.Client(), log)

	log.Info("Repositories initialized")

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

	// 8. Use cases
	placeUC := usecase.NewPlaceUseCase(placeStore, cacheRepo, log, cfg.Cache.PlacesCacheTTL)
	syncUC := usecase.NewSyncUseCase(orchestrator, tracker, streamRepo, cacheRepo, log)

	log.Info("Use cases initialized")

	// 9. HTTP handlers and server
	placeHandler := handler.NewPlaceHandler(placeUC, log)
	syncHandler := handler.NewSyncHandler(syncUC, log)

	server := httpDelivery.NewServer(cfg, log, placeHandler, syncHandler, map[string]httpDelivery.HealthChecker{
		"postgres": db.Health,
		"redis":    redisClient.Health,
	})

	// 10. Sync worker. The store is in-memory authoritative, so the worker
	// runs inside the API process; the standalone worker binary is for
	// deployments without the HTTP surface.
	var workerManager *worker.WorkerManager
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	if cfg.Worker.Enabled {
		syncWorker := syncer.NewSyncWorker(
			streamRepo,
			orchestrator,
			cfg.Worker.ConsumerGroup,
			cfg.Worker.SyncInterval,
			log,
		)

		workerManager = worker.NewWorkerManager(log)
		workerManager.Register(syncWorker)

		if err := workerManager.Start(workerCtx); err != nil {
			log.Fatal("Failed to start workers", zap.Error(err))
		}
	} else {
		log.Info("Sync worker disabled, sync requests will queue until a worker consumes them")
	}

	// 11. Start server in goroutine
	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	log.Info("Server started successfully",
		zap.String("address", cfg.GetServerAddr()),
		zap.String("env", cfg.Server.Env),
	)

	// 12. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", zap.Error(err))
	}

	if workerManager != nil {
		workerCancel()
		if err := workerManager.Stop(); err != nil {
			log.Error("Error stopping workers", zap.Error(err))
		}
	}

	// final flush of the in-memory state
	if err := placeStore.Close(shutdownCtx); err != nil {
		log.Error("Failed to flush place store", zap.Error(err))
	}

	log.Info("Server stopped successfully")
}
