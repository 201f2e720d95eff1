package config

import (
	"os"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Bybit credentials, optional: public market data needs no signing
	BybitAPIKey    string
	BybitAPISecret string
	BybitBaseURL   string
	Category       string

	// Infrastructure
	RedisAddr     string
	RedisPassword string
	SQLitePath    string
	MetricsAddr   string

	// Defaults for ad hoc runs without a scenario file
	Symbol   string
	Interval string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		BybitAPIKey:    getEnv("BYBIT_API_KEY", ""),
		BybitAPISecret: getEnv("BYBIT_API_SECRET", ""),
		BybitBaseURL:   getEnv("BYBIT_BASE_URL", "https://api.bybit.com"),
		Category:       getEnv("BYBIT_CATEGORY", "linear"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		SQLitePath:    getEnv("SQLITE_PATH", "data/outcomes.db"),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),

		Symbol:   getEnv("SYMBOL", "BTCUSDT"),
		Interval: getEnv("INTERVAL", "5"),
	}
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}
