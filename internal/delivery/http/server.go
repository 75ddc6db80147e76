package http

import (
	"context"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	fiberSwagger "github.com/swaggo/fiber-swagger"
	"go.uber.org/zap"

	"github.com/place-sync-service/internal/config"
	"github.com/place-sync-service/internal/delivery/http/handler"
	"github.com/place-sync-service/internal/delivery/http/middleware"
)

// HealthChecker reports the liveness of one dependency.
type HealthChecker func(ctx context.Context) error

// Server is the Fiber HTTP server.
type Server struct {
	app    *fiber.App
	config *config.Config
	logger *zap.Logger

	placeHandler *handler.PlaceHandler
	syncHandler  *handler.SyncHandler
	healthChecks map[string]HealthChecker
}

func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	placeHandler *handler.PlaceHandler,
	syncHandler *handler.SyncHandler,
	healthChecks map[string]HealthChecker,
) *Server {
	app := fiber.New(fiber.Config{
		AppName:      "Place Sync Service",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
		ErrorHandler: customErrorHandler(logger),
	})

	s := &Server{
		app:          app,
		config:       cfg,
		logger:       logger,
		placeHandler: placeHandler,
		syncHandler:  syncHandler,
		healthChecks: healthChecks,
	}

	s.setupMiddlewares()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddlewares() {
	s.app.Use(middleware.Recovery())
	s.app.Use(middleware.Logger(s.logger))
	s.app.Use(middleware.CORS())
	s.app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
}

func (s *Server) setupRoutes() {
	s.app.Get("/swagger/*", fiberSwagger.WrapHandler)
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := s.app.Group("/api/v1")

	api.Get("/health", s.health)

	// Places
	api.Get("/places", s.placeHandler.ListPlaces)
	api.Post("/places", s.placeHandler.CreatePlace)
	api.Get("/places/edits/export", s.placeHandler.ExportEdits)
	api.Post("/places/edits/import", s.placeHandler.ImportEdits)
	api.Get("/places/:id", s.placeHandler.GetPlace)
	api.Patch("/places/:id", s.placeHandler.UpdatePlace)

	// Sync
	api.Post("/sync", s.syncHandler.TriggerSyncAll)
	api.Post("/sync/:source_id", s.syncHandler.TriggerSync)
	api.Get("/sync/:source_id/status", s.syncHandler.GetStatus)
	api.Get("/sync/:source_id/history", s.syncHandler.GetHistory)
	api.Get("/sources", s.syncHandler.ListSources)

	// Stats
	api.Get("/stats", s.placeHandler.GetStats)
}

// health reports overall service health plus per-dependency detail.
func (s *Server) health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
	defer cancel()

	status := fiber.StatusOK
	deps := fiber.Map{}
	for name, check := range s.healthChecks {
		if err := check(ctx); err != nil {
			deps[name] = "down: " + err.Error()
			status = fiber.StatusServiceUnavailable
		} else {
			deps[name] = "up"
		}
	}

	overall := "healthy"
	if status != fiber.StatusOK {
		overall = "degraded"
	}

	return c.Status(status).JSON(fiber.Map{
		"status":       overall,
		"dependencies": deps,
		"time":         time.Now(),
	})
}

func (s *Server) Start() error {
	addr := s.config.GetServerAddr()
	s.logger.Info("Starting HTTP server", zap.String("address", addr))
	return s.app.Listen(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.app.ShutdownWithContext(ctx)
}

func customErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError

		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
		}

		logger.Error("HTTP Error",
			zap.String("path", c.Path()),
			zap.Int("status", code),
			zap.Error(err),
		)

		return c.Status(code).JSON(fiber.Map{
			"error": fiber.Map{
				"code":    "INTERNAL_SERVER_ERROR",
				"message": err.Error(),
			},
		})
	}
}
