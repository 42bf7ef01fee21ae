package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/aqi-map-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/aqi-map-service/internal/adapter/kafka"
	"github.com/couchcryptid/aqi-map-service/internal/adapter/openweather"
	"github.com/couchcryptid/aqi-map-service/internal/adapter/scoring"
	"github.com/couchcryptid/aqi-map-service/internal/config"
	"github.com/couchcryptid/aqi-map-service/internal/domain"
	"github.com/couchcryptid/aqi-map-service/internal/observability"
	"github.com/couchcryptid/aqi-map-service/internal/ondemand"
	"github.com/couchcryptid/aqi-map-service/internal/pipeline"
	"github.com/couchcryptid/aqi-map-service/internal/scheduler"
	"github.com/joho/godotenv"
)

func main() {
	// A missing .env is fine; the environment is authoritative.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	locations, err := cfg.ReferenceLocations()
	if err != nil {
		logger.Error("failed to load reference locations", "error", err)
		os.Exit(1)
	}

	client := scoring.NewClient(cfg.ScoringBaseURL, cfg.ScoringTimeout, metrics, logger,
		scoring.WithBreaker(cfg.ScoringBreakerFailures, cfg.ScoringBreakerCooldown),
	)

	orchestrator := pipeline.New(client, logger, metrics,
		pipeline.WithChunkSize(cfg.ChunkSize),
		pipeline.WithPacing(cfg.ChunkPacing),
	)
	// Forecast for the selection is feature-flagged via OPENWEATHER_API_KEY.
	var laneOpts []ondemand.Option
	if cfg.OpenWeatherAPIKey != "" {
		forecaster := openweather.NewClient(cfg.OpenWeatherBaseURL, cfg.OpenWeatherAPIKey, cfg.OpenWeatherTimeout, logger)
		laneOpts = append(laneOpts, ondemand.WithForecaster(forecaster, cfg.ForecastLocation))
		logger.Info("selection forecast enabled", "timezone", cfg.ForecastLocation.String())
	} else {
		logger.Info("selection forecast disabled")
	}
	lane := ondemand.New(client, logger, metrics, laneOpts...)

	// "My location" is feature-flagged via HOME_LAT / HOME_LON.
	var geolocator domain.Geolocator
	if cfg.HomeLat != nil && cfg.HomeLon != nil {
		geolocator = domain.FixedGeolocator{Lat: *cfg.HomeLat, Lon: *cfg.HomeLon}
		logger.Info("fixed geolocation enabled", "lat", *cfg.HomeLat, "lon", *cfg.HomeLon)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Optional export of settled batches (feature-flagged via KAFKA_ENABLED / KAFKA_BROKERS).
	var writer *kafkaadapter.Writer
	exportDone := make(chan struct{})
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		exporter := pipeline.NewExporter(writer, logger, metrics)
		orchestrator.OnSettled(exporter.Enqueue)
		go func() {
			defer close(exportDone)
			exporter.Run(ctx)
		}()
		logger.Info("kafka export enabled", "topic", cfg.KafkaResultsTopic, "brokers", cfg.KafkaBrokers)
	} else {
		close(exportDone)
		logger.Info("kafka export disabled")
	}

	refresher := scheduler.New(orchestrator, locations, cfg.RefreshInterval, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, orchestrator, httpadapter.Feed{
		Batch:       orchestrator,
		Locations:   locations,
		Lane:        lane,
		Geolocator:  geolocator,
		BaseContext: ctx,
	}, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Initial reference batch, then periodic refreshes.
	if err := orchestrator.Start(ctx, locations); err != nil {
		logger.Error("initial batch failed to start", "error", err)
	}
	if err := refresher.Start(ctx); err != nil {
		logger.Error("scheduler error", "error", err)
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	refresher.Stop()

	select {
	case <-exportDone:
	case <-shutdownCtx.Done():
		logger.Warn("export did not finish before shutdown timeout")
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	orchestrator.Close()
	lane.Close()

	logger.Info("shutdown complete")
}
