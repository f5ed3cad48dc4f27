package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	"github.com/joho/godotenv"

	httpadapter "github.com/couchcryptid/region-colorizer/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/region-colorizer/internal/adapter/kafka"
	"github.com/couchcryptid/region-colorizer/internal/adapter/openmeteo"
	"github.com/couchcryptid/region-colorizer/internal/adapter/snapshot"
	"github.com/couchcryptid/region-colorizer/internal/colorize"
	"github.com/couchcryptid/region-colorizer/internal/config"
	"github.com/couchcryptid/region-colorizer/internal/dashboard"
	"github.com/couchcryptid/region-colorizer/internal/observability"
	"github.com/couchcryptid/region-colorizer/internal/store"
	"github.com/couchcryptid/region-colorizer/internal/timeline"
)

func main() {
	_ = godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := openmeteo.NewClient(cfg.ArchiveBaseURL, cfg.ArchiveField, cfg.ArchiveTimeout, metrics, logger)
	values := openmeteo.NewValueCache(client, openmeteo.NewSeriesStore(cfg.ArchiveCacheSize), metrics, logger)
	logger.Info("archive client configured",
		"base_url", cfg.ArchiveBaseURL, "field", cfg.ArchiveField, "cache_size", cfg.ArchiveCacheSize)

	backend, err := snapshot.NewBackend(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open snapshot backend", "error", err)
		os.Exit(1)
	}
	repo := snapshot.NewRepository(backend, logger)

	// Region update events (feature-flagged via KAFKA_BROKERS).
	var publisher colorize.Publisher
	var kafkaPublisher *kafkaadapter.Publisher
	if cfg.KafkaEnabled() {
		kafkaPublisher = kafkaadapter.NewPublisher(cfg, logger)
		publisher = kafkaPublisher
		logger.Info("region update events enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	} else {
		logger.Info("region update events disabled")
	}

	policy, err := colorize.ParseWritePolicy(cfg.WritePolicy)
	if err != nil {
		logger.Error("invalid write policy", "error", err)
		os.Exit(1)
	}

	st := store.NewWithDefaults()
	engine := colorize.New(st, values, publisher, policy, logger, metrics)
	tl := timeline.New(clockwork.NewRealClock(), cfg.PlaybackInterval, cfg.PlaybackWindowDays, logger, metrics)
	svc := dashboard.New(st, engine, tl, repo, logger)

	if err := svc.Load(ctx); err != nil {
		logger.Error("failed to restore dashboard state", "error", err)
		os.Exit(1)
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, engine, svc, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	// Start playback consumer.
	go func() {
		if err := svc.Run(ctx); err != nil {
			logger.Error("dashboard error", "error", err)
		}
	}()

	logger.Info("region colorizer started", "write_policy", policy.String(), "storage", cfg.StorageBackend)

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	svc.Close()
	if err := repo.Close(); err != nil {
		logger.Error("snapshot backend close error", "error", err)
	}
	if kafkaPublisher != nil {
		if err := kafkaPublisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
