package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"onetouch/internal/amqp"
	"onetouch/internal/config"
	applog "onetouch/internal/log"
	"onetouch/internal/remote"
	"onetouch/internal/remote/postgres"
	"onetouch/internal/remote/sheets"
	"onetouch/internal/worker"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	logger := applog.New(slog.LevelInfo, "retry-worker")
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the retry worker")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	remoteStore, err := buildRemote(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize remote backend", "error", err, "backend", cfg.RemoteBackend)
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger.WithComponent("amqp"))
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	w := worker.NewRetryWorker(remoteStore, logger.WithComponent("worker"))

	logger.Info("Starting retry worker", "backend", cfg.RemoteBackend, "queue", cfg.AMQPQueue)
	if err := amqpClient.ConsumeRetries(ctx, w.Handle); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Retry worker stopped")
}

func buildRemote(ctx context.Context, cfg *config.Config) (remote.Store, error) {
	switch cfg.RemoteBackend {
	case config.BackendPostgres:
		return postgres.Open(cfg.DatabaseURL)
	case config.BackendSheets:
		return sheets.NewFromEnv(ctx)
	default:
		return nil, errors.New("retry worker requires a postgres or sheets backend")
	}
}
