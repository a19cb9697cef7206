package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keys = []string{
	"API_PORT", "TEMPORAL_HOST", "TEMPORAL_TASK_QUEUE", "TEMPORAL_WORKFLOW_ID", "DATABASE_URL",
	"FLIGHT_STORE_PATH", "TICK_INTERVAL", "SIM_SPEED", "SIM_AUTOSTART", "EVENT_LOG_SIZE",
	"FAST_FORWARD_STEP", "FAST_FORWARD_MAX_STEPS", "MAX_TICKS_PER_RUN", "LOG_LEVEL", "LOG_FILE",
	"SEED_SAMPLE_FLIGHTS",
}

func clearEnv(t *testing.T) {
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultTemporalHost, cfg.TemporalHost)
	assert.Equal(t, DefaultTaskQueue, cfg.TaskQueue)
	assert.Equal(t, DefaultStorePath, cfg.StorePath)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Equal(t, 100*time.Millisecond, cfg.TickInterval)
	assert.Equal(t, 1.0, cfg.Speed)
	assert.True(t, cfg.Autostart)
	assert.Equal(t, 15*time.Minute, cfg.StepSize)
	assert.Equal(t, 100_000, cfg.MaxSteps)
	assert.False(t, cfg.SeedSamples)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("API_PORT", "9090")
	t.Setenv("TICK_INTERVAL", "250ms")
	t.Setenv("SIM_SPEED", "60")
	t.Setenv("SIM_AUTOSTART", "false")
	t.Setenv("FAST_FORWARD_STEP", "5m")
	t.Setenv("SEED_SAMPLE_FLIGHTS", "true")
	t.Setenv("DATABASE_URL", "postgres://localhost/flights")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 250*time.Millisecond, cfg.TickInterval)
	assert.Equal(t, 60.0, cfg.Speed)
	assert.False(t, cfg.Autostart)
	assert.Equal(t, 5*time.Minute, cfg.StepSize)
	assert.True(t, cfg.SeedSamples)
	assert.Equal(t, "postgres://localhost/flights", cfg.DatabaseURL)
}

func TestLoad_Malformed(t *testing.T) {
	tests := map[string]string{
		"TICK_INTERVAL":          "often",
		"SIM_SPEED":              "fast",
		"SIM_AUTOSTART":          "maybe",
		"EVENT_LOG_SIZE":         "lots",
		"FAST_FORWARD_MAX_STEPS": "1e9x",
		"FAST_FORWARD_STEP":      "-1m",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoad_NegativeSizes(t *testing.T) {
	for _, key := range []string{"EVENT_LOG_SIZE", "FAST_FORWARD_MAX_STEPS", "MAX_TICKS_PER_RUN"} {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, "-1")
			_, err := Load()
			assert.ErrorContains(t, err, key+" must not be negative")
		})
	}
}

func TestLoad_ZeroSizesAllowed(t *testing.T) {
	clearEnv(t)
	t.Setenv("EVENT_LOG_SIZE", "0")
	t.Setenv("FAST_FORWARD_MAX_STEPS", "0")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Zero(t, cfg.EventLogSize)
	assert.Zero(t, cfg.MaxSteps)
}
