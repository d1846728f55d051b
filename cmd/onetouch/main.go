package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"onetouch/internal/amqp"
	"onetouch/internal/cache"
	"onetouch/internal/config"
	apphttp "onetouch/internal/http"
	"onetouch/internal/ledger"
	applog "onetouch/internal/log"
	"onetouch/internal/metrics"
	"onetouch/internal/remote"
	"onetouch/internal/remote/memory"
	"onetouch/internal/remote/postgres"
	"onetouch/internal/remote/sheets"
	"onetouch/internal/seed"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

func main() {
	// .env is for local development; absence is fine everywhere else.
	_ = godotenv.Load()

	logger := applog.New(slog.LevelInfo, "onetouch")
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	snapshots, err := cache.Open(cfg.CacheDBPath, logger.WithComponent("cache"))
	if err != nil {
		logger.Error("Failed to open snapshot cache", "error", err, "path", cfg.CacheDBPath)
		os.Exit(1)
	}
	defer snapshots.Close()

	remoteStore, err := buildRemote(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize remote backend", "error", err, "backend", cfg.RemoteBackend)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	recorder := metrics.NewRecorder(registry)

	opts := []ledger.Option{ledger.WithMetrics(recorder)}
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger.WithComponent("amqp"))
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		opts = append(opts, ledger.WithRetryPublisher(amqpClient))
		logger.Info("Retry queue enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("Retry queue disabled - no AMQP_URL provided")
	}

	store := ledger.New(remoteStore, snapshots, logger.WithComponent("ledger"), opts...)
	if err := store.Initialize(ctx); err != nil {
		logger.Error("Failed to initialize store", "error", err)
		os.Exit(1)
	}

	srv := apphttp.NewServer(":"+cfg.Port, store, registry, logger.WithComponent("http"))
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting server", "port", cfg.Port, "backend", cfg.RemoteBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		// Let in-flight remote writes land before the process exits.
		store.Wait()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func buildRemote(ctx context.Context, cfg *config.Config, logger *applog.Logger) (remote.Store, error) {
	switch cfg.RemoteBackend {
	case config.BackendPostgres:
		store, err := postgres.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		logger.Info("Initialized postgres backend")
		return store, nil
	case config.BackendSheets:
		client, err := sheets.NewFromEnv(ctx)
		if err != nil {
			return nil, err
		}
		logger.Info("Initialized sheets backend", "spreadsheet_id", cfg.GoogleSpreadsheetID)
		return client, nil
	default:
		store := memory.New()
		if cfg.SeedCount > 0 {
			store.Seed(seed.Transactions(cfg.SeedCount, uint64(time.Now().UnixNano())))
			logger.Info("Seeded memory backend", "count", cfg.SeedCount)
		}
		logger.Info("Initialized memory backend")
		return store, nil
	}
}
