package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Tesseract-Nexus/go-shared/secrets"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the profit sync service
type Config struct {
	// Server
	Port        string
	Environment string
	LogLevel    string

	// Database
	DatabaseURL string

	// GCP
	GCPProjectID string

	// Redis (report cache and distributed sync lock)
	RedisURL       string
	ReportCacheTTL time.Duration

	// Events
	EventsBackend string // nats, kafka or none
	NATSURL       string
	KafkaBrokers  []string
	KafkaTopic    string

	// Sync Settings
	SyncPageSize      int
	SyncPageDelay     time.Duration
	SyncTimeout       time.Duration
	SyncLockTTL       time.Duration
	SyncSchedule      string
	OrderLookbackDays int

	// WooCommerce client
	WooRequestTimeout time.Duration
	WooRateLimit      int // requests per second

	// CORS
	CORSAllowedOrigins []string
}

// Load loads configuration from environment variables
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Build DATABASE_URL from components using GCP Secret Manager for password
	databaseURL := getEnv("DATABASE_URL", "")
	if databaseURL == "" {
		dbHost := getEnv("DB_HOST", "localhost")
		dbPort := getEnv("DB_PORT", "5432")
		dbUser := getEnv("DB_USER", "postgres")
		dbPassword := secrets.GetDBPassword()
		dbName := getEnv("DB_NAME", "profit_sync")
		dbSSLMode := getEnv("DB_SSLMODE", "disable")

		databaseURL = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
			dbUser, dbPassword, dbHost, dbPort, dbName, dbSSLMode)
	}

	syncTimeout := getEnvAsDuration("SYNC_TIMEOUT", 30*time.Minute)

	config := &Config{
		Port:        getEnv("PORT", "8099"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		DatabaseURL: databaseURL,

		GCPProjectID: getEnv("GCP_PROJECT_ID", ""),

		RedisURL:       getEnv("REDIS_URL", ""),
		ReportCacheTTL: getEnvAsDuration("REPORT_CACHE_TTL", 5*time.Minute),

		EventsBackend: strings.ToLower(getEnv("EVENTS_BACKEND", "nats")),
		NATSURL:       getEnv("NATS_URL", ""),
		KafkaBrokers:  getEnvAsList("KAFKA_BROKERS"),
		KafkaTopic:    getEnv("KAFKA_TOPIC", "profit-sync-events"),

		// Sync Settings
		SyncPageSize:      getEnvAsInt("SYNC_PAGE_SIZE", 50),
		SyncPageDelay:     getEnvAsDuration("SYNC_PAGE_DELAY", time.Second),
		SyncTimeout:       syncTimeout,
		SyncLockTTL:       getEnvAsDuration("SYNC_LOCK_TTL", syncTimeout+time.Minute),
		SyncSchedule:      getEnv("SYNC_SCHEDULE", ""),
		OrderLookbackDays: getEnvAsInt("ORDER_LOOKBACK_DAYS", 365),

		WooRequestTimeout: getEnvAsDuration("WOO_REQUEST_TIMEOUT", 30*time.Second),
		WooRateLimit:      getEnvAsInt("WOO_RATE_LIMIT", 5),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
	}

	if len(config.CORSAllowedOrigins) == 0 {
		config.CORSAllowedOrigins = []string{
			"http://localhost:3000",
			"http://localhost:3001",
		}
	}

	if config.GCPProjectID == "" {
		log.Println("Warning: GCP_PROJECT_ID not set, credentials will be stored inline")
	}

	return config
}

// IsProduction reports whether the service runs in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return duration
}

// getEnvAsList splits a comma separated environment variable
func getEnvAsList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
