package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/timmy/memegen/internal/api"
	"github.com/timmy/memegen/internal/captions"
	"github.com/timmy/memegen/internal/config"
	"github.com/timmy/memegen/internal/events"
	"github.com/timmy/memegen/internal/intake"
	"github.com/timmy/memegen/internal/logger"
	"github.com/timmy/memegen/internal/metrics"
	"github.com/timmy/memegen/internal/normalize"
	"github.com/timmy/memegen/internal/repository"
	"github.com/timmy/memegen/internal/service"
	"github.com/timmy/memegen/internal/storage"
)

func main() {
	// Initialize logger first (from LOG_* environment)
	appLogger := logger.NewFromEnv(nil)
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	// Support CONFIG_PATH environment variable for production deployments
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	// An unreachable store at startup is fatal
	ctx := context.Background()
	store, err := repository.Open(ctx, &cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize record store")
	}
	defer store.Close()

	pool := captions.DefaultPool()
	if cfg.Captions.File != "" {
		pool, err = captions.LoadPool(cfg.Captions.File)
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to load caption tables")
		}
	}

	validator, err := intake.New(intake.Config{
		MaxBytes:       cfg.Upload.MaxBytes,
		AllowedTypes:   cfg.Upload.AllowedTypes,
		DestinationDir: cfg.Upload.Dir,
	})
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to prepare upload directory")
	}
	appLogger.WithFields(logger.Fields{
		"dir":       validator.DestinationDir(),
		"max_bytes": validator.MaxBytes(),
	}).Info("Upload intake ready")

	normalizer := normalize.New(normalize.Config{
		MaxWidth:  cfg.Image.MaxWidth,
		MaxHeight: cfg.Image.MaxHeight,
		Quality:   cfg.Image.Quality,
	})

	// Optional object storage mirror (S3, R2, S3-compatible)
	objectStorage, err := storage.NewStorage(cfg.Storage)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize storage")
	}
	if s3Store, ok := objectStorage.(*storage.S3Storage); ok {
		if err := s3Store.EnsureBucket(ctx); err != nil {
			appLogger.WithError(err).Fatal("Failed to ensure storage bucket")
		}
	}
	mirror := storage.NewMirror(objectStorage, cfg.Storage.Prefix)

	publisher := events.New(cfg.Events)
	defer publisher.Close()

	m := metrics.New()

	uploadService := service.NewUploadService(
		validator,
		normalizer,
		captions.NewGenerator(pool, nil),
		store,
		appLogger,
		service.UploadConfig{
			PublicPath: cfg.Upload.PublicPath,
			Mirror:     mirror,
			Publisher:  publisher,
			Metrics:    m,
		},
	)
	memeService := service.NewMemeService(store, appLogger, service.MemeConfig{
		UploadDir: validator.DestinationDir(),
		Mirror:    mirror,
		Publisher: publisher,
		Metrics:   m,
	})

	// Setup router
	router := api.SetupRouter(cfg, api.Services{
		Uploads: uploadService,
		Memes:   memeService,
		Metrics: m,
		Logger:  appLogger,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in goroutine
	go func() {
		appLogger.WithFields(logger.Fields{
			"port":     cfg.Server.Port,
			"mode":     cfg.Server.Mode,
			"env":      cfg.App.Env,
			"driver":   cfg.Database.Driver,
			"mirror":   cfg.Storage.MirrorEnabled(),
			"events":   cfg.Events.EventsEnabled(),
			"base_url": cfg.App.BaseURL,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	timeout := cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Error("Server forced to shutdown")
	}

	appLogger.Info("Server exited")
}
