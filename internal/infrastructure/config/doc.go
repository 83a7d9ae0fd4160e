// Package config provides 12-factor configuration management for the
// execution harness.
//
// Configuration is loaded from environment variables with sensible defaults.
// A YAML or TOML file may be laid over the environment values, and CLI flags
// override both.
//
// Configuration Sections:
//   - Server: HTTP server settings (port, host)
//   - Logging: Log level and output format
//   - RateLimit: Per-IP rate limiting configuration
//   - Harness: Timeout, isolation mode, search paths and native library settings
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Server running on %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//
// Environment Variables:
//   - PORT, HOST
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
//   - HARNESS_TIMEOUT_MS, HARNESS_ISOLATION, HARNESS_SEARCH_PATHS
//   - HARNESS_LIB_MARKER, HARNESS_BRIDGE_LIBRARY, HARNESS_BRIDGE_CONSUMER
//   - HARNESS_NATIVE_DISABLED, HARNESS_WORKER_COMMAND, HARNESS_MAX_CODE_BYTES
package config
