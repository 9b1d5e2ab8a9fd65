package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"subwatch/internal/amqp"
	"subwatch/internal/cache"
	"subwatch/internal/config"
	"subwatch/internal/core"
	"subwatch/internal/crypto"
	apphttp "subwatch/internal/http"
	"subwatch/internal/log"
	"subwatch/internal/services"
	"subwatch/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath, logger)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// Field encryption is optional; without a key, values are stored plain.
	var codec crypto.Codec = crypto.Plaintext{}
	if cfg.EncryptionKey != "" {
		aes, err := crypto.NewAESGCM(cfg.EncryptionKey)
		if err != nil {
			logger.Error("Failed to initialize field encryption", log.FieldError, err)
			os.Exit(1)
		}
		codec = aes
		logger.Info("Field encryption enabled")
	} else {
		logger.Info("Field encryption disabled - no FIELD_ENCRYPTION_KEY provided")
	}

	// AMQP is optional: without it, invalidations stay process-local.
	var publisher services.InvalidationPublisher
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client, continuing without it", log.FieldError, err)
		} else {
			defer amqpClient.Close()
			publisher = amqpClient
		}
	}

	detectionCache := cache.NewLRUCache[[]core.DetectedSubscription](cfg.DetectionCacheSize, cfg.DetectionCacheTTL)
	cacheManager := cache.NewManager()
	cacheManager.Register(detectionCache)
	cacheManager.StartCleanup(10 * time.Minute)
	defer cacheManager.Stop()

	coordinator := services.NewDetectionCoordinator(cfg.DetectionGracePeriod)
	projector := services.NewProjector(repo, cfg.ProjectionHorizonDays, logger)
	svc := services.NewSubscriptionService(
		repo, repo, repo,
		projector, codec, publisher,
		detectionCache, coordinator,
		cfg.DetectionWindowMonths, logger,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Drop local detection caches when another process mutates subscriptions.
	if amqpClient != nil {
		go func() {
			err := amqpClient.ConsumeSubscriptionChanged(ctx, func(msg *amqp.SubscriptionChangedMessage) error {
				detectionCache.Delete(msg.OwnerID)
				coordinator.Forget(msg.OwnerID)
				return nil
			})
			if err != nil && err != context.Canceled {
				logger.Error("Invalidation consumption failed", log.FieldError, err)
			}
		}()
	}

	srv := apphttp.NewServer(":"+cfg.Port, svc, logger)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		cancel()
	}()

	logger.Info("Starting subwatch server", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
