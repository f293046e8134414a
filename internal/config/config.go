package config

import (
	"fmt"
	"os"
	"time"
)

// Config holds everything the server reads from the environment. Load is the
// only place env vars are touched so a missing required value fails at
// startup, not on the first request.
type Config struct {
	Port        string
	Environment string

	DatabaseURL string

	LogLevel string
	LogFile  string

	RedisHost     string
	RedisPort     string
	RedisPassword string

	GeoIPDBPath string

	ModerationURL    string
	ModerationAPIKey string

	// Event buffer tuning
	FlushBatchSize int
	FlushInterval  time.Duration

	// Summary cache and retention
	SummaryTTL    time.Duration
	RetentionDays int
	WarmRanges    []int
	PruneInterval time.Duration
	WarmInterval  time.Duration
}

// Load reads configuration from the environment and validates required
// values. DATABASE_URL may be given directly or assembled from DB_* parts.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnvOrDefault("PORT", "8080"),
		Environment: getEnvOrDefault("ENVIRONMENT", "development"),

		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		LogFile:  getEnvOrDefault("LOG_FILE", "server.log"),

		RedisHost:     os.Getenv("REDIS_HOST"),
		RedisPort:     getEnvOrDefault("REDIS_PORT", "6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		GeoIPDBPath: os.Getenv("GEOIP_DB_PATH"),

		ModerationURL:    os.Getenv("MODERATION_URL"),
		ModerationAPIKey: os.Getenv("MODERATION_API_KEY"),

		FlushBatchSize: 50,
		FlushInterval:  5 * time.Second,

		SummaryTTL:    5 * time.Minute,
		RetentionDays: 180,
		WarmRanges:    []int{1, 7, 30},
		PruneInterval: 24 * time.Hour,
		WarmInterval:  24 * time.Hour,
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		host := getEnvOrDefault("DB_HOST", "localhost")
		port := getEnvOrDefault("DB_PORT", "5432")
		user := getEnvOrDefault("DB_USER", "postgres")
		password := os.Getenv("DB_PASSWORD")
		dbname := os.Getenv("DB_NAME")
		sslmode := getEnvOrDefault("DB_SSLMODE", "disable")

		if dbname == "" {
			return nil, fmt.Errorf("DATABASE_URL or DB_NAME is required")
		}

		cfg.DatabaseURL = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			host, port, user, password, dbname, sslmode)
	}

	// Moderation is optional, but a URL without a key is a config mistake
	// better caught now than at the first post.
	if cfg.ModerationURL != "" && cfg.ModerationAPIKey == "" {
		return nil, fmt.Errorf("MODERATION_API_KEY is required when MODERATION_URL is set")
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
