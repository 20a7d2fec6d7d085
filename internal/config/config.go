package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	// Upstream feed configuration, used by the collector.
	NWSArea         string
	NWSUserAgent    string
	NewsAPIKey      string
	NewsCountry     string
	UpstreamTimeout time.Duration
	UpstreamRate    float64 // requests per second across all feeds
	CollectInterval time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	upstreamTimeout, err := parsePositiveDuration("UPSTREAM_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	collectInterval, err := parsePositiveDuration("COLLECT_INTERVAL", "5m")
	if err != nil {
		return nil, err
	}

	upstreamRate, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("UPSTREAM_RATE", "1"), 64)
	if err != nil || upstreamRate <= 0 {
		return nil, errors.New("invalid UPSTREAM_RATE")
	}

	cfg := &Config{
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "raw-disaster-feeds"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "normalized-disaster-records"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "catastroguard-etl"),
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		NWSArea:         sharedcfg.EnvOrDefault("NWS_AREA", "CA"),
		NWSUserAgent:    sharedcfg.EnvOrDefault("NWS_USER_AGENT", "catastroguard (ops@catastroguard.dev)"),
		NewsAPIKey:      os.Getenv("NEWS_API_KEY"),
		NewsCountry:     sharedcfg.EnvOrDefault("NEWS_COUNTRY", "us"),
		UpstreamTimeout: upstreamTimeout,
		UpstreamRate:    upstreamRate,
		CollectInterval: collectInterval,
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSourceTopic == "" {
		return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}
	if cfg.NWSArea == "" {
		return nil, errors.New("NWS_AREA is required")
	}

	return cfg, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, errors.New("invalid " + key)
	}
	return d, nil
}
