// Package config loads server configuration from the environment.
// Values resolved here become the defaults for the cmd/server flags,
// so flags always win over environment variables.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds everything the server binary needs to wire itself up.
type Config struct {
	PostgresDSN   string
	ClickhouseDSN string
	UseMemory     bool

	GatewayBaseURL string
	GatewayAPIKey  string

	FeedBaseURL    string
	FeedWSEndpoint string
	FeedAPIKey     string

	ListenAddr  string
	MetricsAddr string

	LogLevel string
	DryRun   bool

	MaxTradesPerWindow int
	PriceCacheTTL      time.Duration
	RefreshInterval    time.Duration
	PollInterval       time.Duration
	StopWait           time.Duration

	// MetricsSnapshotSpec is a cron expression for the periodic
	// per-strategy metrics log line. Empty disables the job.
	MetricsSnapshotSpec string
}

// Load reads configuration from environment variables, applying
// defaults for anything unset.
func Load() *Config {
	return &Config{
		PostgresDSN:   getEnv("POSTGRES_DSN", ""),
		ClickhouseDSN: getEnv("CLICKHOUSE_DSN", ""),
		UseMemory:     getEnvBool("USE_MEMORY", false),

		GatewayBaseURL: getEnv("GATEWAY_BASE_URL", ""),
		GatewayAPIKey:  getEnv("GATEWAY_API_KEY", ""),

		FeedBaseURL:    getEnv("FEED_BASE_URL", ""),
		FeedWSEndpoint: getEnv("FEED_WS_ENDPOINT", ""),
		FeedAPIKey:     getEnv("FEED_API_KEY", ""),

		ListenAddr:  getEnv("LISTEN_ADDR", ":8080"),
		MetricsAddr: getEnv("METRICS_ADDR", ":9090"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		DryRun:   getEnvBool("DRY_RUN", false),

		MaxTradesPerWindow: getEnvInt("MAX_TRADES_PER_WINDOW", 0),
		PriceCacheTTL:      getEnvDuration("PRICE_CACHE_TTL", 0),
		RefreshInterval:    getEnvDuration("POSITION_REFRESH_INTERVAL", 0),
		PollInterval:       getEnvDuration("PRICE_POLL_INTERVAL", 0),
		StopWait:           getEnvDuration("STRATEGY_STOP_WAIT", 0),

		MetricsSnapshotSpec: getEnv("METRICS_SNAPSHOT_CRON", "@every 5m"),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
