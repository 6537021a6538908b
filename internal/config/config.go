package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Engine    EngineConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8090"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// EngineConfig holds execution engine defaults and ceilings.
type EngineConfig struct {
	DefaultTimeLimitMs int           `envconfig:"ENGINE_TIME_LIMIT_MS" default:"5000"`
	MaxTimeLimitMs     int           `envconfig:"ENGINE_MAX_TIME_LIMIT_MS" default:"30000"`
	DefaultMemLimitMB  int           `envconfig:"ENGINE_MEM_LIMIT_MB" default:"128"`
	SampleInterval     time.Duration `envconfig:"ENGINE_SAMPLE_INTERVAL" default:"50ms"`
	StdoutLimit        int           `envconfig:"ENGINE_STDOUT_LIMIT" default:"20000"`
	StderrLimit        int           `envconfig:"ENGINE_STDERR_LIMIT" default:"10000"`
	SnapshotNodeCap    int           `envconfig:"ENGINE_SNAPSHOT_NODE_CAP" default:"50"`
	AllowedImports     []string      `envconfig:"ENGINE_ALLOWED_IMPORTS"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds per-IP rate limiting configuration. Executions are
// expensive, so the defaults are deliberately low.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"10"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"20"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8090",
			Host: "0.0.0.0",
		},
		Engine: EngineConfig{
			DefaultTimeLimitMs: 5000,
			MaxTimeLimitMs:     30000,
			DefaultMemLimitMB:  128,
			SampleInterval:     50 * time.Millisecond,
			StdoutLimit:        20000,
			StderrLimit:        10000,
			SnapshotNodeCap:    50,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 10,
			Burst:             20,
			Enabled:           true,
		},
	}
}
