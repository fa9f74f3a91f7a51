package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/SteelMorgan/logdoc/internal/domain"
	"github.com/SteelMorgan/logdoc/internal/elastic"
	"github.com/SteelMorgan/logdoc/internal/retry"
	"github.com/SteelMorgan/logdoc/internal/writer"
)

// Index backends
const (
	BackendElasticsearch = "elasticsearch"
	BackendClickHouse    = "clickhouse"
)

// Config holds all configuration for the application
type Config struct {
	// Index sink
	IndexBackend string
	IndexName    string

	// Elasticsearch cluster: a settings file wins over the inline values
	ESSettingsPath string
	ESClusterName  string
	ESHosts        string // host[:port];host[:port]

	// ClickHouse configuration
	ClickHouseHost string
	ClickHousePort int
	ClickHouseDB   string

	// Bulk indexing
	BulkActions         int
	BulkSizeBytes       int64
	BulkConcurrency     int
	BulkFlushIntervalMs int
	BulkCloseTimeoutSec int
	RetryMaxAttempts    int
	RetryInitialDelayMs int
	RetryMaxDelayMs     int

	// Extraction
	TimestampPatterns []string // overrides the built-in formats when set
	CheckpointDB      string   // empty disables --resume

	// Observability
	LogLevel         string
	LogFile          string
	LogFormat        string
	TracingEnabled   bool
	TracingEndpoint  string
	TracingProtocol  string
	TraceSampleRatio float64
	MetricsTextfile  string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		IndexBackend: getEnv("INDEX_BACKEND", BackendElasticsearch),
		IndexName:    getEnv("INDEX_NAME", "logindex"),

		ESSettingsPath: getEnv("ES_SETTINGS_PATH", ""),
		ESClusterName:  getEnv("ES_CLUSTER_NAME", elastic.DefaultClusterName),
		ESHosts:        getEnv("ES_HOSTS", fmt.Sprintf("%s:%d", elastic.DefaultHost, elastic.DefaultPort)),

		ClickHouseHost: getEnv("CLICKHOUSE_HOST", "localhost"),
		ClickHousePort: getEnvInt("CLICKHOUSE_PORT", 9000),
		ClickHouseDB:   getEnv("CLICKHOUSE_DB", "logs"),

		BulkActions:         getEnvInt("BULK_ACTIONS", 1000),
		BulkSizeBytes:       getEnvInt64("BULK_SIZE_BYTES", 1<<30),
		BulkConcurrency:     getEnvInt("BULK_CONCURRENCY", 1),
		BulkFlushIntervalMs: getEnvInt("BULK_FLUSH_INTERVAL_MS", 0),
		BulkCloseTimeoutSec: getEnvInt("BULK_CLOSE_TIMEOUT_SEC", 10),
		RetryMaxAttempts:    getEnvInt("RETRY_MAX_ATTEMPTS", 3),
		RetryInitialDelayMs: getEnvInt("RETRY_INITIAL_DELAY_MS", 100),
		RetryMaxDelayMs:     getEnvInt("RETRY_MAX_DELAY_MS", 5000),

		TimestampPatterns: parseList(getEnv("TIMESTAMP_PATTERNS", "")),
		CheckpointDB:      getEnv("CHECKPOINT_DB", ""),

		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFile:          getEnv("LOG_FILE", ""),
		LogFormat:        getEnv("LOG_FORMAT", "auto"),
		TracingEnabled:   getEnvBool("TRACING_ENABLED", false),
		TracingEndpoint:  getEnv("TRACING_ENDPOINT", ""),
		TracingProtocol:  getEnv("TRACING_PROTOCOL", "grpc"),
		TraceSampleRatio: getEnvFloat("TRACING_SAMPLE_RATIO", 1),
		MetricsTextfile:  getEnv("METRICS_TEXTFILE", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.IndexBackend {
	case BackendElasticsearch, BackendClickHouse:
	default:
		return fmt.Errorf("%w: INDEX_BACKEND must be %q or %q", domain.ErrConfiguration, BackendElasticsearch, BackendClickHouse)
	}
	if c.IndexName == "" {
		return fmt.Errorf("%w: INDEX_NAME is required", domain.ErrConfiguration)
	}
	if c.ClickHousePort <= 0 || c.ClickHousePort > 65535 {
		return fmt.Errorf("%w: CLICKHOUSE_PORT must be between 1 and 65535", domain.ErrConfiguration)
	}
	if c.ClickHouseDB == "" {
		return fmt.Errorf("%w: CLICKHOUSE_DB is required", domain.ErrConfiguration)
	}
	if c.BulkActions < 0 || c.BulkSizeBytes < 0 || c.BulkConcurrency < 0 || c.BulkFlushIntervalMs < 0 {
		return fmt.Errorf("%w: BULK_* limits must not be negative", domain.ErrConfiguration)
	}
	if c.BulkCloseTimeoutSec < 1 {
		return fmt.Errorf("%w: BULK_CLOSE_TIMEOUT_SEC must be at least 1", domain.ErrConfiguration)
	}
	if c.RetryMaxAttempts < 1 {
		return fmt.Errorf("%w: RETRY_MAX_ATTEMPTS must be at least 1", domain.ErrConfiguration)
	}
	if c.RetryInitialDelayMs < 0 || c.RetryMaxDelayMs < c.RetryInitialDelayMs {
		return fmt.Errorf("%w: RETRY_MAX_DELAY_MS must not be below RETRY_INITIAL_DELAY_MS", domain.ErrConfiguration)
	}
	switch c.TracingProtocol {
	case "grpc", "http":
	default:
		return fmt.Errorf("%w: TRACING_PROTOCOL must be 'grpc' or 'http'", domain.ErrConfiguration)
	}
	if c.TraceSampleRatio < 0 || c.TraceSampleRatio > 1 {
		return fmt.Errorf("%w: TRACING_SAMPLE_RATIO must be between 0 and 1", domain.ErrConfiguration)
	}

	return nil
}

// BatchConfig returns the bulk indexer settings for the given index
func (c *Config) BatchConfig(index string) writer.BatchConfig {
	if index == "" {
		index = c.IndexName
	}
	return writer.BatchConfig{
		Index:              index,
		MaxActions:         c.BulkActions,
		MaxBytes:           c.BulkSizeBytes,
		ConcurrentRequests: c.BulkConcurrency,
		FlushInterval:      time.Duration(c.BulkFlushIntervalMs) * time.Millisecond,
		CloseTimeout:       time.Duration(c.BulkCloseTimeoutSec) * time.Second,
	}
}

// RetryConfig returns the retry settings with the default retryable errors
func (c *Config) RetryConfig() retry.Config {
	cfg := retry.DefaultConfig()
	cfg.MaxAttempts = c.RetryMaxAttempts
	cfg.InitialDelay = time.Duration(c.RetryInitialDelayMs) * time.Millisecond
	cfg.MaxDelay = time.Duration(c.RetryMaxDelayMs) * time.Millisecond
	return cfg
}

// ElasticSettings returns the cluster settings, read from ES_SETTINGS_PATH
// when set and from ES_CLUSTER_NAME / ES_HOSTS otherwise
func (c *Config) ElasticSettings() (elastic.Settings, error) {
	if c.ESSettingsPath != "" {
		return elastic.LoadSettings(c.ESSettingsPath)
	}

	hosts, err := elastic.ParseHosts(c.ESHosts)
	if err != nil {
		return elastic.Settings{}, err
	}
	return elastic.NewSettings(c.ESClusterName, hosts...)
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvInt64 gets a 64-bit integer environment variable or returns a default value
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat gets a float environment variable or returns a default value
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable or returns a default value
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// parseList parses a semicolon-separated list, dropping empty entries.
// Entries are not trimmed: timestamp formats may start or end with a space.
func parseList(s string) []string {
	if s == "" {
		return nil
	}

	parts := strings.Split(s, ";")
	result := make([]string, 0, len(parts))

	for _, part := range parts {
		if strings.TrimSpace(part) != "" {
			result = append(result, part)
		}
	}

	return result
}
