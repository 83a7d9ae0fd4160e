package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AgentOS/harness/internal/harness/native"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Server config
	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)

	// Logging config
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)

	// Rate limit config
	assert.Equal(t, 100, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 200, cfg.RateLimit.Burst)
	assert.True(t, cfg.RateLimit.Enabled)

	// Harness config
	assert.Equal(t, 20000, cfg.Harness.TimeoutMs)
	assert.Equal(t, IsolationProcess, cfg.Harness.Isolation)
	assert.Equal(t, ".so", cfg.Harness.LibMarker)
	assert.Equal(t, "libopenblas.so", cfg.Harness.BridgeLibrary)
	assert.Equal(t, "_multiarray_umath*.so", cfg.Harness.BridgeConsumer)
	assert.Equal(t, 1<<20, cfg.Harness.MaxCodeBytes)
	assert.Equal(t, native.DefaultPriorityRules(), cfg.Harness.PriorityRules)
	assert.NoError(t, cfg.Validate())
}

func TestLoadMatchesDefault(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	envVars := map[string]string{
		"PORT":                    "9000",
		"HOST":                    "127.0.0.1",
		"LOG_LEVEL":               "debug",
		"LOG_DEV":                 "true",
		"RATE_LIMIT_RPS":          "500",
		"RATE_LIMIT_BURST":        "1000",
		"RATE_LIMIT_ENABLED":      "false",
		"HARNESS_TIMEOUT_MS":      "5000",
		"HARNESS_ISOLATION":       "inprocess",
		"HARNESS_SEARCH_PATHS":    "/opt/site,/opt/libs",
		"HARNESS_BRIDGE_LIBRARY":  "liblinalg.so",
		"HARNESS_NATIVE_DISABLED": "true",
		"HARNESS_WORKER_COMMAND":  "/usr/bin/harness,worker",
		"HARNESS_MAX_CODE_BYTES":  "2048",
		"CORS_ORIGINS":            "https://a.example,https://b.example",
	}
	for key, value := range envVars {
		t.Setenv(key, value)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)
	assert.Equal(t, 500, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 1000, cfg.RateLimit.Burst)
	assert.False(t, cfg.RateLimit.Enabled)

	h := cfg.Harness
	assert.Equal(t, 5000, h.TimeoutMs)
	assert.Equal(t, IsolationInProcess, h.Isolation)
	assert.Equal(t, []string{"/opt/site", "/opt/libs"}, h.SearchPaths)
	assert.Equal(t, "liblinalg.so", h.BridgeLibrary)
	assert.Equal(t, "_multiarray_umath*.so", h.BridgeConsumer)
	assert.True(t, h.NativeDisabled)
	assert.Equal(t, []string{"/usr/bin/harness", "worker"}, h.WorkerCommand)
	assert.Equal(t, 2048, h.MaxCodeBytes)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown isolation", "HARNESS_ISOLATION", "thread"},
		{"zero timeout", "HARNESS_TIMEOUT_MS", "0"},
		{"malformed timeout", "HARNESS_TIMEOUT_MS", "soon"},
		{"negative code limit", "HARNESS_MAX_CODE_BYTES", "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			assert.Error(t, err)

			cfg := LoadOrDefault()
			assert.Equal(t, Default(), cfg)
		})
	}
}

func TestLoadFileYAML(t *testing.T) {
	t.Setenv("HOST", "10.0.0.1")
	path := filepath.Join(t.TempDir(), "harness.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "7000"
harness:
  timeout_ms: 1500
  isolation: inprocess
  search_paths:
    - /srv/modules
  priority_rules:
    - substring: mkl
      priority: 0
`), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "7000", cfg.Server.Port)
	assert.Equal(t, "10.0.0.1", cfg.Server.Host, "keys absent from the file keep their env value")
	assert.Equal(t, 1500, cfg.Harness.TimeoutMs)
	assert.Equal(t, IsolationInProcess, cfg.Harness.Isolation)
	assert.Equal(t, []string{"/srv/modules"}, cfg.Harness.SearchPaths)
	assert.Equal(t, []native.PriorityRule{{Substring: "mkl", Priority: 0}}, cfg.Harness.PriorityRules)
	assert.Equal(t, "libopenblas.so", cfg.Harness.BridgeLibrary)
}

func TestLoadFileTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "harness.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[logging]
level = "warn"

[harness]
bridge_library = "liblinalg.so"
max_code_bytes = 4096
worker_command = ["/opt/harness", "worker"]
`), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "liblinalg.so", cfg.Harness.BridgeLibrary)
	assert.Equal(t, 4096, cfg.Harness.MaxCodeBytes)
	assert.Equal(t, []string{"/opt/harness", "worker"}, cfg.Harness.WorkerCommand)
	assert.Equal(t, 20000, cfg.Harness.TimeoutMs)
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}

	tests := []struct {
		name string
		path string
	}{
		{"missing file", filepath.Join(dir, "absent.yaml")},
		{"unsupported extension", write("harness.ini", "port=1")},
		{"malformed yaml", write("bad.yaml", "server: [unclosed")},
		{"malformed toml", write("bad.toml", "[harness\n")},
		{"invalid value", write("invalid.toml", "[harness]\nisolation = \"thread\"\n")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFile(tt.path)
			assert.Error(t, err)
		})
	}
}
