package harness

import (
	"context"
	"time"

	"github.com/GriffinCanCode/AgentOS/harness/internal/harness/native"
	"github.com/GriffinCanCode/AgentOS/harness/internal/harness/stream"
)

// DefaultTimeout applies when a request does not set one
const DefaultTimeout = 20 * time.Second

// Isolation modes
const (
	IsolationInProcess = "inprocess"
	IsolationProcess   = "process"
)

// Status is the terminal state of a request
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusTimedOut  Status = "timed_out"
)

// ExitCode maps a status to the exit code reported to callers
func (s Status) ExitCode() int {
	switch s {
	case StatusCompleted:
		return 0
	case StatusTimedOut:
		return -1
	default:
		return 1
	}
}

// Request describes one execution
type Request struct {
	RunID            string      `json:"runId,omitempty"`
	Code             string      `json:"code"`
	TimeoutMs        *int        `json:"timeoutMs,omitempty"`
	SearchPaths      SearchPaths `json:"extraSearchPaths,omitempty"`
	WorkingDirectory string      `json:"workingDirectory,omitempty"`
	Sink             stream.Sink `json:"-"`
}

// TimeoutMillis returns ms as a Request.TimeoutMs value. A nil TimeoutMs
// selects the runner's default; any explicit value below 1 means 1ms.
func TimeoutMillis(ms int) *int {
	return &ms
}

// Result is what every execution returns
type Result struct {
	RunID      string `json:"runId"`
	Status     Status `json:"status"`
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	ExitCode   int    `json:"exitCode"`
	TimedOut   bool   `json:"timedOut"`
	DurationMs int64  `json:"durationMs"`
}

// Runner executes requests
type Runner interface {
	Execute(ctx context.Context, req Request) *Result
}

// NativeConfig configures native library discovery, bridging and preload
type NativeConfig struct {
	Marker         string                `json:"marker"`
	Rules          []native.PriorityRule `json:"rules,omitempty"`
	BridgeLibrary  string                `json:"bridgeLibrary"`
	BridgeConsumer string                `json:"bridgeConsumer"`
	Disabled       bool                  `json:"disabled,omitempty"`
}

// DefaultNativeConfig returns the .so marker and the OpenBLAS bridge
func DefaultNativeConfig() NativeConfig {
	bridge := native.DefaultBridgeConfig()
	return NativeConfig{
		Marker:         native.DefaultMarker,
		Rules:          native.DefaultPriorityRules(),
		BridgeLibrary:  bridge.Library,
		BridgeConsumer: bridge.Consumer,
	}
}

func (c NativeConfig) locator() *native.Locator {
	return native.NewLocator(native.LocatorConfig{Marker: c.Marker, Rules: c.Rules})
}

func (c NativeConfig) bridge(l *native.Locator) *native.Bridge {
	return native.NewBridge(l, native.BridgeConfig{Library: c.BridgeLibrary, Consumer: c.BridgeConsumer})
}

// Observer receives execution telemetry
type Observer interface {
	ObserveExecution(status Status, isolation string, duration time.Duration)
	ObserveStreamLines(stream string, lines int)
	ObservePreload(report native.Report, loadedTotal int)
	ObserveBridge(report native.BridgeReport)
}

type nopObserver struct{}

func (nopObserver) ObserveExecution(Status, string, time.Duration) {}
func (nopObserver) ObserveStreamLines(string, int)                 {}
func (nopObserver) ObservePreload(native.Report, int)              {}
func (nopObserver) ObserveBridge(native.BridgeReport)              {}
