package server

import (
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/harness/internal/harness"
	"github.com/GriffinCanCode/AgentOS/harness/internal/harness/native"
	"github.com/GriffinCanCode/AgentOS/harness/internal/infrastructure/config"
)

// NativeConfig maps harness settings onto the native library stage
func NativeConfig(cfg config.HarnessConfig) harness.NativeConfig {
	rules := cfg.PriorityRules
	if rules == nil {
		rules = native.DefaultPriorityRules()
	}
	return harness.NativeConfig{
		Marker:         cfg.LibMarker,
		Rules:          rules,
		BridgeLibrary:  cfg.BridgeLibrary,
		BridgeConsumer: cfg.BridgeConsumer,
		Disabled:       cfg.NativeDisabled,
	}
}

// Locator builds the locator the native endpoints report with
func Locator(cfg config.HarnessConfig) *native.Locator {
	n := NativeConfig(cfg)
	return native.NewLocator(native.LocatorConfig{Marker: n.Marker, Rules: n.Rules})
}

// NewRunner builds the runner selected by cfg.Isolation. The registry is the
// one the runner preloads into; a process runner preloads in its workers, so
// the returned registry stays empty.
func NewRunner(cfg config.HarnessConfig, logger *zap.Logger, observer harness.Observer) (harness.Runner, *native.Registry) {
	nativeCfg := NativeConfig(cfg)
	registry := native.NewRegistry()
	opts := harness.Options{
		Logger:          logger,
		Observer:        observer,
		Registry:        registry,
		Native:          &nativeCfg,
		DefaultTimeout:  time.Duration(cfg.TimeoutMs) * time.Millisecond,
		BaseSearchPaths: cfg.SearchPaths,
	}

	if cfg.Isolation == config.IsolationInProcess {
		return harness.NewController(opts), registry
	}
	return harness.NewIsolated(opts, harness.IsolatedConfig{Command: cfg.WorkerCommand}), registry
}
