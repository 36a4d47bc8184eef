package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "sqlite://file::memory:")
	t.Setenv("SYNC_TIMEOUT", "")
	t.Setenv("SYNC_PAGE_SIZE", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")

	cfg := Load()

	assert.Equal(t, "sqlite://file::memory:", cfg.DatabaseURL)
	assert.Equal(t, 50, cfg.SyncPageSize)
	assert.Equal(t, time.Second, cfg.SyncPageDelay)
	assert.Equal(t, 30*time.Minute, cfg.SyncTimeout)
	assert.Equal(t, 31*time.Minute, cfg.SyncLockTTL)
	assert.Equal(t, 365, cfg.OrderLookbackDays)
	assert.NotEmpty(t, cfg.CORSAllowedOrigins)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/x")
	t.Setenv("SYNC_PAGE_DELAY", "250ms")
	t.Setenv("SYNC_TIMEOUT", "5m")
	t.Setenv("ORDER_LOOKBACK_DAYS", "30")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("EVENTS_BACKEND", "Kafka")

	cfg := Load()

	assert.Equal(t, 250*time.Millisecond, cfg.SyncPageDelay)
	assert.Equal(t, 5*time.Minute, cfg.SyncTimeout)
	assert.Equal(t, 6*time.Minute, cfg.SyncLockTTL)
	assert.Equal(t, 30, cfg.OrderLookbackDays)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "kafka", cfg.EventsBackend)
}

func TestGetEnvAsInt_InvalidFallsBack(t *testing.T) {
	t.Setenv("SOME_INT", "abc")
	assert.Equal(t, 7, getEnvAsInt("SOME_INT", 7))
}
