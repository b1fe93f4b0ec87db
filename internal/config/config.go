package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Data source configuration. A non-empty DataFixtureDir selects the
	// on-disk fixture source instead of the HTTP API.
	DataSourceURL     string
	DataSourceTimeout time.Duration
	DataFixtureDir    string
	SourceCacheSize   int
	SourceCacheTTL    time.Duration
	RefreshInterval   time.Duration

	// Analysis and playback configuration.
	PredictionDays        int
	ProximityThresholdDeg float64
	PlaybackInterval      time.Duration
	PlaybackAutoplay      bool

	// Kafka event publishing configuration.
	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	sourceTimeout, err := parsePositiveDuration("DATA_SOURCE_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	cacheTTL, err := parsePositiveDuration("SOURCE_CACHE_TTL", "1m")
	if err != nil {
		return nil, err
	}
	refreshInterval, err := parsePositiveDuration("REFRESH_INTERVAL", "5m")
	if err != nil {
		return nil, err
	}
	playbackInterval, err := parsePositiveDuration("PLAYBACK_INTERVAL", "1s")
	if err != nil {
		return nil, err
	}

	days, err := strconv.Atoi(sharedcfg.EnvOrDefault("PREDICTION_DAYS", "30"))
	if err != nil || days < 1 || days > 365 {
		return nil, errors.New("invalid PREDICTION_DAYS: must be an integer between 1 and 365")
	}

	threshold, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("PROXIMITY_THRESHOLD_DEG", "0.05"), 64)
	if err != nil || threshold <= 0 {
		return nil, errors.New("invalid PROXIMITY_THRESHOLD_DEG: must be a positive number")
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		DataSourceURL:     sharedcfg.EnvOrDefault("DATA_SOURCE_URL", "http://localhost:5000"),
		DataSourceTimeout: sourceTimeout,
		DataFixtureDir:    os.Getenv("DATA_FIXTURE_DIR"),
		SourceCacheSize:   parseSourceCacheSize(),
		SourceCacheTTL:    cacheTTL,
		RefreshInterval:   refreshInterval,

		PredictionDays:        days,
		ProximityThresholdDeg: threshold,
		PlaybackInterval:      playbackInterval,
		PlaybackAutoplay:      os.Getenv("PLAYBACK_AUTOPLAY") == "true",

		KafkaEnabled: os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers: sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "infection-analytics"),
	}

	if cfg.DataFixtureDir == "" && cfg.DataSourceURL == "" {
		return nil, errors.New("DATA_SOURCE_URL is required when DATA_FIXTURE_DIR is not set")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
	}
	if cfg.KafkaEnabled && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required when KAFKA_ENABLED is true")
	}

	return cfg, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseSourceCacheSize() int {
	if s := os.Getenv("SOURCE_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 64
}
