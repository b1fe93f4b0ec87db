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

	"github.com/couchcryptid/infection-analytics-service/internal/adapter/fixture"
	httpadapter "github.com/couchcryptid/infection-analytics-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/infection-analytics-service/internal/adapter/kafka"
	"github.com/couchcryptid/infection-analytics-service/internal/adapter/source"
	"github.com/couchcryptid/infection-analytics-service/internal/analytics"
	"github.com/couchcryptid/infection-analytics-service/internal/config"
	"github.com/couchcryptid/infection-analytics-service/internal/observability"
	"github.com/couchcryptid/infection-analytics-service/internal/pipeline"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()
	sessionID := uuid.NewString()

	// Data source: fixture directory for offline runs, otherwise the data API.
	var src analytics.DataSource
	if cfg.DataFixtureDir != "" {
		src = fixture.NewSource(cfg.DataFixtureDir)
		logger.Info("using fixture data source", "dir", cfg.DataFixtureDir)
	} else {
		client := source.NewClient(cfg.DataSourceURL, cfg.DataSourceTimeout, logger)
		src = source.NewCachedSource(client, cfg.SourceCacheSize, cfg.SourceCacheTTL, clock, metrics)
		logger.Info("using data API", "url", cfg.DataSourceURL, "cache_size", cfg.SourceCacheSize, "cache_ttl", cfg.SourceCacheTTL)
	}

	// Listeners (feature-flagged Kafka publishing via KAFKA_ENABLED).
	listeners := analytics.Listeners{analytics.LogListener{Logger: logger}}
	var publisher *kafkaadapter.Publisher
	if cfg.KafkaEnabled {
		publisher = kafkaadapter.NewPublisher(cfg, sessionID, clock, logger, metrics)
		listeners = append(listeners, publisher)
		logger.Info("kafka publishing enabled", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers)
	} else {
		logger.Info("kafka publishing disabled")
	}

	facade := analytics.New(clock, analytics.Options{
		SessionID:             sessionID,
		ProximityThresholdDeg: cfg.ProximityThresholdDeg,
		PlaybackInterval:      cfg.PlaybackInterval,
	}, listeners, logger, metrics)

	p := pipeline.New(src, facade, clock, cfg.RefreshInterval, cfg.PredictionDays, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, facade, p, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start refresh pipeline.
	pipelineDone := make(chan struct{})
	go func() {
		defer close(pipelineDone)
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	if cfg.PlaybackAutoplay {
		go autoplay(ctx, clock, p, facade, logger)
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	<-pipelineDone
	facade.Close()
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

const autoplayPollInterval = 500 * time.Millisecond

// autoplay starts playback once the first refresh has loaded a prediction.
func autoplay(ctx context.Context, clock clockwork.Clock, ready *pipeline.Pipeline, facade *analytics.Facade, logger *slog.Logger) {
	for ready.CheckReadiness(ctx) != nil {
		select {
		case <-ctx.Done():
			return
		case <-clock.After(autoplayPollInterval):
		}
	}
	if err := facade.Play(); err != nil {
		logger.Warn("autoplay failed", "error", err)
		return
	}
	logger.Info("autoplay started")
}
