package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"subwatch/internal/amqp"
	"subwatch/internal/config"
	"subwatch/internal/crypto"
	"subwatch/internal/log"
	"subwatch/internal/services"
	"subwatch/internal/storage"
)

// subwatch-worker materializes due planned payments into recorded
// transactions on a fixed poll interval.
func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)

	logger.Info("Starting subwatch-worker")

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

	var codec crypto.Codec = crypto.Plaintext{}
	if cfg.EncryptionKey != "" {
		aes, err := crypto.NewAESGCM(cfg.EncryptionKey)
		if err != nil {
			logger.Error("Failed to initialize field encryption", log.FieldError, err)
			os.Exit(1)
		}
		codec = aes
	}

	var publisher services.InvalidationPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client, continuing without it", log.FieldError, err)
		} else {
			defer amqpClient.Close()
			publisher = amqpClient
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	materializer := services.NewMaterializer(
		repo, codec, publisher,
		cfg.WorkerPollInterval, cfg.WorkerBatchSize, logger,
	)
	materializer.Start(ctx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info("Shutdown signal received", "signal", sig.String())

	cancel()
	materializer.Stop()
	logger.Info("Worker stopped gracefully")
}
