package config

import (
	"errors"
	"os"
	"runtime"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	FiresCSVPath       string
	RegionsGeoJSONPath string

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	RefreshInterval time.Duration
	ClassifyWorkers int

	// Kafka aggregate sink.
	KafkaEnabled   bool
	KafkaBrokers   []string
	KafkaSinkTopic string

	// Parquet export sink. Empty disables the export.
	ParquetExportDir string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	refreshInterval, err := time.ParseDuration(sharedcfg.EnvOrDefault("REFRESH_INTERVAL", "0s"))
	if err != nil || refreshInterval < 0 {
		return nil, errors.New("invalid REFRESH_INTERVAL")
	}

	workers, err := parseClassifyWorkers()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		FiresCSVPath:       sharedcfg.EnvOrDefault("FIRES_CSV_PATH", "data/SUOMI_VIIRS_C2_USA_contiguous_and_Hawaii_24h.csv"),
		RegionsGeoJSONPath: regionsPath(),
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		RefreshInterval:    refreshInterval,
		ClassifyWorkers:    workers,

		KafkaEnabled:   os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:   sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSinkTopic: sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "fire-aggregates"),

		ParquetExportDir: os.Getenv("PARQUET_EXPORT_DIR"),
	}

	if cfg.FiresCSVPath == "" {
		return nil, errors.New("FIRES_CSV_PATH is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
	}
	if cfg.KafkaEnabled && cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required when KAFKA_ENABLED is true")
	}

	return cfg, nil
}

// regionsPath distinguishes an unset variable (default path) from one set
// to the empty string (run without regions).
func regionsPath() string {
	if v, ok := os.LookupEnv("REGIONS_GEOJSON_PATH"); ok {
		return v
	}
	return "data/us_states.geojson"
}

func parseClassifyWorkers() (int, error) {
	s := os.Getenv("CLASSIFY_WORKERS")
	if s == "" {
		return runtime.NumCPU(), nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, errors.New("invalid CLASSIFY_WORKERS")
	}
	return n, nil
}
