package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.Equal(t, BackendRedis, cfg.Session.Backend)
	assert.Equal(t, time.Hour, cfg.Session.Timeout)
	assert.Equal(t, "session_id", cfg.Session.CookieName)
	assert.Equal(t, "user_3", cfg.Saga.ShippingFaultUser)
	assert.Equal(t, time.Duration(0), cfg.Saga.StepDelay)
	assert.False(t, cfg.Kafka.Enabled)
	assert.False(t, cfg.Tracing.Enabled)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("SESSION_BACKEND", "memory")
	t.Setenv("SESSION_TIMEOUT", "30m")
	t.Setenv("SHIPPING_FAULT_USER", "user_1")
	t.Setenv("SAGA_STEP_DELAY", "100ms")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendMemory, cfg.Session.Backend)
	assert.Equal(t, 30*time.Minute, cfg.Session.Timeout)
	assert.Equal(t, "user_1", cfg.Saga.ShippingFaultUser)
	assert.Equal(t, 100*time.Millisecond, cfg.Saga.StepDelay)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
}

func TestValidate(t *testing.T) {
	t.Run("invalid backend", func(t *testing.T) {
		t.Setenv("SESSION_BACKEND", "etcd")
		_, err := Load()
		assert.ErrorContains(t, err, "SESSION_BACKEND")
	})

	t.Run("non-positive session timeout", func(t *testing.T) {
		t.Setenv("SESSION_TIMEOUT", "0s")
		_, err := Load()
		assert.ErrorContains(t, err, "SESSION_TIMEOUT")
	})

	t.Run("negative step delay", func(t *testing.T) {
		t.Setenv("SAGA_STEP_DELAY", "-1s")
		_, err := Load()
		assert.ErrorContains(t, err, "SAGA_STEP_DELAY")
	})

	t.Run("port out of range", func(t *testing.T) {
		t.Setenv("SERVER_PORT", "70000")
		_, err := Load()
		assert.ErrorContains(t, err, "SERVER_PORT")
	})
}
