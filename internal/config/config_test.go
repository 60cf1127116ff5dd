package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "REDIS_ADDR", "KAFKA_BROKERS", "SWEEP_LOCK_TTL", "STORAGE", "ENVIRONMENT"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Empty(t, cfg.RedisAddr)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, 10*time.Minute, cfg.SweepLockTTL)
	assert.Equal(t, StoragePostgres, cfg.Storage)
	assert.False(t, cfg.IsProduction())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("SWEEP_SCHEDULE", "0 2 * * *")
	t.Setenv("SWEEP_LOCK_TTL", "90s")
	t.Setenv("STORAGE", "memory")
	t.Setenv("ENVIRONMENT", "production")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "0 2 * * *", cfg.SweepSchedule)
	assert.Equal(t, 90*time.Second, cfg.SweepLockTTL)
	assert.Equal(t, StorageMemory, cfg.Storage)
	assert.True(t, cfg.IsProduction())
}

func TestEmptyScheduleDisablesSweep(t *testing.T) {
	t.Setenv("SWEEP_SCHEDULE", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.SweepSchedule)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("SWEEP_LOCK_TTL", "soon")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("SWEEP_LOCK_TTL", "1m")
	t.Setenv("STORAGE", "sqlite")
	_, err = Load()
	assert.Error(t, err)
}
