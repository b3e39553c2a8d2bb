package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the checkd server.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Model    ModelConfig
	Engine   EngineConfig
}

type ServerConfig struct {
	Port            int
	Env             string
	RateLimitPerMin int
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

type ModelConfig struct {
	// Dir holds pre-extracted element files, one <project_id>.json per
	// project, produced by the external extraction pipeline.
	Dir string
}

type EngineConfig struct {
	// Concurrency bounds how many checks run in parallel within one job.
	Concurrency int
	// CheckTimeout is the hard per-check deadline.
	CheckTimeout time.Duration
	// JobMaxAge is how long a job may stay running before the watchdog
	// escalates it to error.
	JobMaxAge time.Duration
	// WatchdogInterval is how often stuck jobs are swept.
	WatchdogInterval time.Duration
}

// Load reads configuration from environment variables and returns a
// validated Config. Returns an error with a descriptive message if any
// required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            envInt("CHECKD_PORT", 8080),
			Env:             envString("CHECKD_ENV", "development"),
			RateLimitPerMin: envInt("CHECKD_RATE_LIMIT_PER_MIN", 60),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Model: ModelConfig{
			Dir: os.Getenv("CHECKD_MODEL_DIR"),
		},
		Engine: EngineConfig{
			Concurrency:      envInt("CHECKD_CONCURRENCY", 4),
			CheckTimeout:     envDuration("CHECKD_CHECK_TIMEOUT", 30*time.Second),
			JobMaxAge:        envDuration("CHECKD_JOB_MAX_AGE", 15*time.Minute),
			WatchdogInterval: envDuration("CHECKD_WATCHDOG_INTERVAL", time.Minute),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}
	if c.Model.Dir == "" {
		return fmt.Errorf("CHECKD_MODEL_DIR is required")
	}

	if c.Engine.Concurrency < 1 {
		return fmt.Errorf("CHECKD_CONCURRENCY must be at least 1, got %d", c.Engine.Concurrency)
	}
	if c.Engine.CheckTimeout <= 0 {
		return fmt.Errorf("CHECKD_CHECK_TIMEOUT must be positive")
	}
	if c.Engine.JobMaxAge <= 0 {
		return fmt.Errorf("CHECKD_JOB_MAX_AGE must be positive")
	}
	if c.Engine.WatchdogInterval <= 0 {
		return fmt.Errorf("CHECKD_WATCHDOG_INTERVAL must be positive")
	}
	if c.Engine.JobMaxAge <= c.Engine.WatchdogInterval {
		return fmt.Errorf("CHECKD_JOB_MAX_AGE must be greater than CHECKD_WATCHDOG_INTERVAL")
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
