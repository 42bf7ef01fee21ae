package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
	_ "time/tzdata" // FORECAST_TIMEZONE must resolve in minimal images

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

const (
	defaultChunkSize = 5
	maxChunkSize     = 50
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Scoring service client.
	ScoringBaseURL         string
	ScoringTimeout         time.Duration
	ScoringBreakerFailures uint32
	ScoringBreakerCooldown time.Duration

	// Reference batch orchestration.
	ChunkSize              int
	ChunkPacing            time.Duration
	RefreshInterval        time.Duration
	ReferenceLocationsFile string

	// Forecast for the on-demand selection. Disabled without an API key.
	OpenWeatherAPIKey  string
	OpenWeatherBaseURL string
	OpenWeatherTimeout time.Duration
	ForecastLocation   *time.Location

	// Fixed "my location" provider. Nil when unset.
	HomeLat *float64
	HomeLon *float64

	// Optional Kafka export of settled batches.
	KafkaEnabled      bool
	KafkaBrokers      []string
	KafkaResultsTopic string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	scoringTimeout, err := parsePositiveDuration("SCORING_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	breakerFailures, err := parseUint("SCORING_BREAKER_FAILURES", 0)
	if err != nil {
		return nil, err
	}

	breakerCooldown, err := parsePositiveDuration("SCORING_BREAKER_COOLDOWN", "30s")
	if err != nil {
		return nil, err
	}

	chunkSize, err := parseChunkSize()
	if err != nil {
		return nil, err
	}

	pacing, err := parseNonNegativeDuration("BATCH_PACING", "300ms")
	if err != nil {
		return nil, err
	}

	refresh, err := parseNonNegativeDuration("REFRESH_INTERVAL", "0s")
	if err != nil {
		return nil, err
	}

	owTimeout, err := parsePositiveDuration("OPENWEATHER_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	forecastLoc, err := time.LoadLocation(sharedcfg.EnvOrDefault("FORECAST_TIMEZONE", "UTC"))
	if err != nil {
		return nil, fmt.Errorf("invalid FORECAST_TIMEZONE: %w", err)
	}

	homeLat, homeLon, err := parseHome()
	if err != nil {
		return nil, err
	}

	var brokers []string
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		brokers = sharedcfg.ParseBrokers(v)
	}
	kafkaEnabled := len(brokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		ScoringBaseURL:         sharedcfg.EnvOrDefault("SCORING_BASE_URL", "http://localhost:5000"),
		ScoringTimeout:         scoringTimeout,
		ScoringBreakerFailures: breakerFailures,
		ScoringBreakerCooldown: breakerCooldown,

		ChunkSize:              chunkSize,
		ChunkPacing:            pacing,
		RefreshInterval:        refresh,
		ReferenceLocationsFile: os.Getenv("REFERENCE_LOCATIONS_FILE"),

		OpenWeatherAPIKey:  os.Getenv("OPENWEATHER_API_KEY"),
		OpenWeatherBaseURL: sharedcfg.EnvOrDefault("OPENWEATHER_BASE_URL", "https://api.openweathermap.org"),
		OpenWeatherTimeout: owTimeout,
		ForecastLocation:   forecastLoc,

		HomeLat: homeLat,
		HomeLon: homeLon,

		KafkaEnabled:      kafkaEnabled,
		KafkaBrokers:      brokers,
		KafkaResultsTopic: sharedcfg.EnvOrDefault("KAFKA_RESULTS_TOPIC", "aqi-reference-results"),
	}

	if cfg.ScoringBaseURL == "" {
		return nil, errors.New("SCORING_BASE_URL is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if cfg.KafkaEnabled && cfg.KafkaResultsTopic == "" {
		return nil, errors.New("KAFKA_RESULTS_TOPIC is required")
	}

	return cfg, nil
}

func parseChunkSize() (int, error) {
	s := os.Getenv("BATCH_CHUNK_SIZE")
	if s == "" {
		return defaultChunkSize, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > maxChunkSize {
		return 0, fmt.Errorf("invalid BATCH_CHUNK_SIZE %q: must be between 1 and %d", s, maxChunkSize)
	}
	return n, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	s := sharedcfg.EnvOrDefault(key, def)
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive duration", key, s)
	}
	return d, nil
}

func parseNonNegativeDuration(key, def string) (time.Duration, error) {
	s := sharedcfg.EnvOrDefault(key, def)
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a non-negative duration", key, s)
	}
	return d, nil
}

func parseUint(key string, def uint32) (uint32, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: must be a non-negative integer", key, s)
	}
	return uint32(n), nil
}

func parseHome() (*float64, *float64, error) {
	latStr, lonStr := os.Getenv("HOME_LAT"), os.Getenv("HOME_LON")
	if latStr == "" && lonStr == "" {
		return nil, nil, nil
	}
	if latStr == "" || lonStr == "" {
		return nil, nil, errors.New("HOME_LAT and HOME_LON must be set together")
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil || lat < -90 || lat > 90 {
		return nil, nil, fmt.Errorf("invalid HOME_LAT %q", latStr)
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil || lon < -180 || lon > 180 {
		return nil, nil, fmt.Errorf("invalid HOME_LON %q", lonStr)
	}
	return &lat, &lon, nil
}
