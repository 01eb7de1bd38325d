package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/phambaophuc/product-studio/internal/config"
	"github.com/phambaophuc/product-studio/internal/http/handlers"
	"github.com/phambaophuc/product-studio/internal/http/routes"
	"github.com/phambaophuc/product-studio/internal/services/bundler"
	"github.com/phambaophuc/product-studio/internal/services/editor"
	"github.com/phambaophuc/product-studio/internal/services/intake"
	"github.com/phambaophuc/product-studio/internal/services/orchestrator"
	"github.com/phambaophuc/product-studio/internal/services/preset"
	"github.com/phambaophuc/product-studio/internal/services/processor"
	"github.com/phambaophuc/product-studio/internal/services/queue"
	"github.com/phambaophuc/product-studio/internal/services/session"
	"github.com/phambaophuc/product-studio/internal/services/storage"
	"github.com/phambaophuc/product-studio/internal/services/tier"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	envFile := pflag.String("env-file", ".env", "environment file to load")
	port := pflag.String("port", "", "listen port (overrides PORT)")
	pflag.Parse()

	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer logger.Sync()

	// Load configuration
	cfg, err := config.Load(*envFile)
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}
	if *port != "" {
		cfg.Server.Port = *port
	}

	// Runs outlive their HTTP request; cancelling this aborts them on shutdown.
	runCtx, cancelRuns := context.WithCancel(context.Background())
	defer cancelRuns()

	// Initialize services
	imageProcessor := processor.NewImageProcessor(cfg.Intake.ThumbnailSize)

	intakeService := intake.NewService(imageProcessor, intake.Options{
		MaxFileSize:  cfg.Intake.MaxFileSize,
		AllowedTypes: cfg.Intake.AllowedTypes,
	}, logger)

	catalog := preset.NewCatalog()
	if cfg.Presets.File != "" {
		if err := catalog.LoadFile(cfg.Presets.File); err != nil {
			logger.Fatal("Failed to load preset catalog", zap.String("file", cfg.Presets.File), zap.Error(err))
		}
		logger.Info("Preset catalog loaded", zap.String("file", cfg.Presets.File), zap.Strings("presets", catalog.IDs()))
	}

	policy, err := tier.NewPolicy(cfg.Tier.UploadLimit, cfg.Tier.BatchLimit)
	if err != nil {
		logger.Fatal("Invalid tier limits", zap.Error(err))
	}

	gemini, err := editor.NewGeminiEditor(runCtx, cfg.Gemini.APIKey, cfg.Gemini.Model, imageProcessor, logger)
	if err != nil {
		logger.Fatal("Failed to initialize Gemini client", zap.Error(err))
	}

	var imageEditor editor.Editor = editor.WithRetry(gemini, editor.RetryPolicy{
		MaxAttempts:    cfg.Editor.MaxAttempts,
		AttemptTimeout: cfg.Editor.AttemptTimeout,
		InitialBackoff: cfg.Editor.InitialBackoff,
		MaxBackoff:     cfg.Editor.MaxBackoff,
	}, logger)

	var storageService *storage.StorageService
	if cfg.Redis.Addr != "" {
		storageService, err = storage.NewStorageService(runCtx, cfg.Redis)
		if err != nil {
			logger.Warn("Failed to initialize edit cache", zap.Error(err))
			// Continue without cache
		} else {
			defer storageService.Close()
			imageEditor = editor.WithCache(imageEditor, storageService, logger)
		}
	}

	var queueService *queue.QueueService
	if cfg.RabbitMQ.URL != "" {
		queueService, err = queue.NewQueueService(cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue, logger)
		if err != nil {
			logger.Warn("Failed to initialize queue service", zap.Error(err))
			// Continue without run event publishing
		} else {
			defer queueService.Close()
		}
	}

	sessions := session.NewStore(func(sessionID string) *orchestrator.Orchestrator {
		o := orchestrator.New(imageEditor, catalog, policy, logger.With(zap.String("session_id", sessionID)))
		if queueService != nil {
			o.Observe(queueService.Observer(sessionID))
		}
		return o
	}, cfg.Session.TTL, logger)
	defer sessions.Stop()

	// Initialize handlers
	studioHandler := handlers.NewStudioHandler(runCtx, sessions, intakeService, catalog, policy,
		bundler.NewBundler(bundler.DefaultWorker, logger), logger, cfg)
	registerHealthChecks(studioHandler, storageService, queueService)

	router := routes.NewRouter(studioHandler, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		Handler:      router.SetupRoutes(),
	}

	// Start server
	go func() {
		logger.Info("Starting server",
			zap.String("addr", server.Addr),
			zap.String("model", gemini.Model()),
			zap.Int("upload_limit", policy.UploadLimit()),
			zap.Int("batch_limit", policy.BatchLimit()))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	cancelRuns()
	studioHandler.Wait()

	logger.Info("Server exited")
}

func registerHealthChecks(h *handlers.StudioHandler, storageService *storage.StorageService, queueService *queue.QueueService) {
	// The Gemini client is created at startup and fails fast without a key.
	h.RegisterHealthCheck("gemini", func(context.Context) string {
		return "healthy"
	})

	h.RegisterHealthCheck("redis", func(ctx context.Context) string {
		if storageService == nil {
			return "not configured"
		}
		return storageService.HealthCheck(ctx)
	})
	if storageService != nil {
		h.RegisterStats("cache", storageService.GetCacheStats)
	}

	h.RegisterHealthCheck("rabbitmq", func(context.Context) string {
		if queueService == nil {
			return "not configured"
		}
		return queueService.HealthCheck()
	})
	if queueService != nil {
		h.RegisterStats("queue", queueService.GetQueueStats)
	}
}
