package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"

	"github.com/GriffinCanCode/AgentOS/harness/internal/harness/native"
)

// Isolation modes accepted by HARNESS_ISOLATION
const (
	IsolationProcess   = "process"
	IsolationInProcess = "inprocess"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Logging   LogConfig       `yaml:"logging" toml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit" toml:"rate_limit"`
	Harness   HarnessConfig   `yaml:"harness" toml:"harness"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000" yaml:"port" toml:"port"`
	Host string `envconfig:"HOST" default:"0.0.0.0" yaml:"host" toml:"host"`
	// CORSOrigins lists browser origins allowed to call the API
	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"*" yaml:"cors_origins" toml:"cors_origins"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info" yaml:"level" toml:"level"`
	Development bool   `envconfig:"LOG_DEV" default:"false" yaml:"development" toml:"development"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100" yaml:"requests_per_second" toml:"requests_per_second"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200" yaml:"burst" toml:"burst"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true" yaml:"enabled" toml:"enabled"`
}

// HarnessConfig holds execution settings.
type HarnessConfig struct {
	TimeoutMs      int      `envconfig:"HARNESS_TIMEOUT_MS" default:"20000" yaml:"timeout_ms" toml:"timeout_ms"`
	Isolation      string   `envconfig:"HARNESS_ISOLATION" default:"process" yaml:"isolation" toml:"isolation"`
	SearchPaths    []string `envconfig:"HARNESS_SEARCH_PATHS" yaml:"search_paths" toml:"search_paths"`
	LibMarker      string   `envconfig:"HARNESS_LIB_MARKER" default:".so" yaml:"lib_marker" toml:"lib_marker"`
	BridgeLibrary  string   `envconfig:"HARNESS_BRIDGE_LIBRARY" default:"libopenblas.so" yaml:"bridge_library" toml:"bridge_library"`
	BridgeConsumer string   `envconfig:"HARNESS_BRIDGE_CONSUMER" default:"_multiarray_umath*.so" yaml:"bridge_consumer" toml:"bridge_consumer"`
	NativeDisabled bool     `envconfig:"HARNESS_NATIVE_DISABLED" default:"false" yaml:"native_disabled" toml:"native_disabled"`
	WorkerCommand  []string `envconfig:"HARNESS_WORKER_COMMAND" yaml:"worker_command" toml:"worker_command"`
	MaxCodeBytes   int      `envconfig:"HARNESS_MAX_CODE_BYTES" default:"1048576" yaml:"max_code_bytes" toml:"max_code_bytes"`

	// PriorityRules can only be set from a config file
	PriorityRules []native.PriorityRule `ignored:"true" yaml:"priority_rules" toml:"priority_rules"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.Harness.PriorityRules = native.DefaultPriorityRules()
	if err := cfg.Validate(); err != nil {
		return nil, err
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
			Port:        "8000",
			Host:        "0.0.0.0",
			CORSOrigins: []string{"*"},
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
		Harness: HarnessConfig{
			TimeoutMs:      20000,
			Isolation:      IsolationProcess,
			LibMarker:      native.DefaultMarker,
			BridgeLibrary:  "libopenblas.so",
			BridgeConsumer: "_multiarray_umath*.so",
			MaxCodeBytes:   1 << 20,
			PriorityRules:  native.DefaultPriorityRules(),
		},
	}
}

// Validate rejects settings no component can run with.
func (c *Config) Validate() error {
	h := c.Harness
	switch h.Isolation {
	case IsolationProcess, IsolationInProcess:
	default:
		return fmt.Errorf("invalid isolation %q: want %q or %q", h.Isolation, IsolationProcess, IsolationInProcess)
	}
	if h.TimeoutMs < 1 {
		return fmt.Errorf("invalid timeout %dms: must be at least 1", h.TimeoutMs)
	}
	if h.MaxCodeBytes < 1 {
		return fmt.Errorf("invalid max code size %d: must be positive", h.MaxCodeBytes)
	}
	if h.LibMarker == "" {
		return fmt.Errorf("library marker must not be empty")
	}
	return nil
}
