package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/cx-tal-miterani/flight-lifecycle/internal/clock"
	"github.com/cx-tal-miterani/flight-lifecycle/internal/eventlog"
	"github.com/cx-tal-miterani/flight-lifecycle/internal/lifecycle"
)

const (
	DefaultPort           = "8080"
	DefaultTemporalHost   = "localhost:7233"
	DefaultTaskQueue      = "flight-simulation-queue"
	DefaultStorePath      = "data/flights.json"
	DefaultWorkflowID     = "flight-simulation"
	DefaultMaxTicksPerRun = 1000
)

// Config is read from the environment once at startup.
type Config struct {
	Port           string
	TemporalHost   string
	TaskQueue      string
	WorkflowID     string
	DatabaseURL    string // empty selects the JSON file store
	StorePath      string
	TickInterval   time.Duration
	Speed          float64
	Autostart      bool
	EventLogSize   int
	StepSize       time.Duration
	MaxSteps       int
	MaxTicksPerRun int
	LogLevel       string
	LogFile        string
	SeedSamples    bool
}

// Load reads the configuration, returning an error for values that are set
// but malformed.
func Load() (Config, error) {
	var (
		cfg Config
		err error
	)
	cfg.Port = getEnv("API_PORT", DefaultPort)
	cfg.TemporalHost = getEnv("TEMPORAL_HOST", DefaultTemporalHost)
	cfg.TaskQueue = getEnv("TEMPORAL_TASK_QUEUE", DefaultTaskQueue)
	cfg.WorkflowID = getEnv("TEMPORAL_WORKFLOW_ID", DefaultWorkflowID)
	cfg.DatabaseURL = getEnv("DATABASE_URL", "")
	cfg.StorePath = getEnv("FLIGHT_STORE_PATH", DefaultStorePath)
	cfg.LogLevel = getEnv("LOG_LEVEL", "info")
	cfg.LogFile = getEnv("LOG_FILE", "")

	if cfg.TickInterval, err = getDuration("TICK_INTERVAL", lifecycle.DefaultTickInterval); err != nil {
		return cfg, err
	}
	if cfg.Speed, err = getFloat("SIM_SPEED", 1); err != nil {
		return cfg, err
	}
	if cfg.Autostart, err = getBool("SIM_AUTOSTART", true); err != nil {
		return cfg, err
	}
	if cfg.EventLogSize, err = getInt("EVENT_LOG_SIZE", eventlog.DefaultCapacity); err != nil {
		return cfg, err
	}
	if cfg.StepSize, err = getDuration("FAST_FORWARD_STEP", clock.DefaultStepSize); err != nil {
		return cfg, err
	}
	if cfg.MaxSteps, err = getInt("FAST_FORWARD_MAX_STEPS", clock.DefaultMaxSteps); err != nil {
		return cfg, err
	}
	if cfg.MaxTicksPerRun, err = getInt("MAX_TICKS_PER_RUN", DefaultMaxTicksPerRun); err != nil {
		return cfg, err
	}
	if cfg.SeedSamples, err = getBool("SEED_SAMPLE_FLIGHTS", false); err != nil {
		return cfg, err
	}

	if cfg.TickInterval <= 0 {
		return cfg, fmt.Errorf("TICK_INTERVAL must be positive, got %s", cfg.TickInterval)
	}
	if cfg.StepSize <= 0 {
		return cfg, fmt.Errorf("FAST_FORWARD_STEP must be positive, got %s", cfg.StepSize)
	}
	// Zero selects the built-in default; negative values are mistakes.
	if cfg.EventLogSize < 0 {
		return cfg, fmt.Errorf("EVENT_LOG_SIZE must not be negative, got %d", cfg.EventLogSize)
	}
	if cfg.MaxSteps < 0 {
		return cfg, fmt.Errorf("FAST_FORWARD_MAX_STEPS must not be negative, got %d", cfg.MaxSteps)
	}
	if cfg.MaxTicksPerRun < 0 {
		return cfg, fmt.Errorf("MAX_TICKS_PER_RUN must not be negative, got %d", cfg.MaxTicksPerRun)
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, defaultValue int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getFloat(key string, defaultValue float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func getBool(key string, defaultValue bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
