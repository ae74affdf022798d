package config

import (
	"os"
	"path/filepath"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Instrument
	Symbol string

	// Persistence
	DataDir      string
	CacheFile    string
	BacktestFile string
	SQLitePath   string

	// Infrastructure
	RedisAddr     string
	RedisPassword string
	MetricsAddr   string

	// Logging
	LogLevel string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	dataDir := getEnv("DATA_DIR", "data")
	return &Config{
		Symbol: getEnv("SYMBOL", "XAUEUR"),

		DataDir:      dataDir,
		CacheFile:    getEnv("CACHE_FILE", filepath.Join(dataDir, "m5_cache.json")),
		BacktestFile: getEnv("BACKTEST_FILE", filepath.Join(dataDir, "backtest_data.json")),
		SQLitePath:   getEnv("SQLITE_PATH", filepath.Join(dataDir, "bars.db")),

		// Empty REDIS_ADDR disables publishing
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}
