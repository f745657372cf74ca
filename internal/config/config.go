package config

import (
	"os"
	"strconv"
)

// Config holds all configuration for the verifier
type Config struct {
	RPC      RPCConfig
	Packages PackagesConfig
	Storage  StorageConfig
	Logging  LoggingConfig
}

// RPCConfig holds fullnode connection settings
type RPCConfig struct {
	URL               string
	RequestsPerSecond float64
	Burst             int
}

// PackagesConfig holds local artifact store settings
type PackagesConfig struct {
	Dir     string
	Dataset string
}

// StorageConfig holds results storage configuration
type StorageConfig struct {
	Type     string // "sqlite" or "postgres"
	Postgres PostgresConfig
	SQLite   SQLiteConfig
}

// PostgresConfig holds Postgres connection settings
type PostgresConfig struct {
	URL string
}

// SQLiteConfig holds SQLite settings
type SQLiteConfig struct {
	Path string
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string
	Format string // "text" or "json"
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		RPC: RPCConfig{
			URL:               getEnv("SUI_RPC_URL", "https://fullnode.mainnet.sui.io:443"),
			RequestsPerSecond: getEnvFloat("SUI_RPC_RPS", 10),
			Burst:             getEnvInt("SUI_RPC_BURST", 10),
		},
		Packages: PackagesConfig{
			Dir:     getEnv("SUI_PACKAGES_DIR", "../sui-packages"),
			Dataset: getEnv("SUI_PACKAGES_DATASET", "mainnet_most_used"),
		},
		Storage: StorageConfig{
			Type: getEnv("STORAGE_TYPE", "sqlite"),
			Postgres: PostgresConfig{
				URL: getEnv("DATABASE_URL", ""),
			},
			SQLite: SQLiteConfig{
				Path: getEnv("SQLITE_PATH", "./data/smie.db"),
			},
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
	}

	// If DATABASE_URL is set, default to postgres
	if cfg.Storage.Postgres.URL != "" && cfg.Storage.Type == "sqlite" {
		cfg.Storage.Type = "postgres"
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
