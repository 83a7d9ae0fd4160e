package harness

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/harness/internal/harness/stream"
	"github.com/GriffinCanCode/AgentOS/harness/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/harness/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/AgentOS/harness/internal/shared/id"
)

// WorkerSubcommand is the argument that turns the harness binary into a worker
const WorkerSubcommand = "worker"

// waitDelay bounds how long Wait blocks on pipes held open by grandchildren
const waitDelay = time.Second

// workerRequest is the JSON document a worker reads from stdin
type workerRequest struct {
	RunID            string       `json:"runId"`
	Code             string       `json:"code"`
	SearchPaths      []string     `json:"searchPaths,omitempty"`
	BaseSearchPaths  []string     `json:"baseSearchPaths,omitempty"`
	WorkingDirectory string       `json:"workingDirectory,omitempty"`
	Native           NativeConfig `json:"native"`
}

// IsolatedConfig configures the worker process
type IsolatedConfig struct {
	// Command starts a worker. Empty runs this executable with WorkerSubcommand.
	Command []string
	// Env is appended to the inherited environment
	Env []string
	// Breaker fails requests fast after repeated launch failures. Nil uses
	// a breaker with default settings.
	Breaker *resilience.Breaker
}

// Isolated runs every request in its own process group and kills the group
// when the request times out
type Isolated struct {
	opts    Options
	command []string
	env     []string
	breaker *resilience.Breaker
}

// NewIsolated creates a process-per-request runner
func NewIsolated(opts Options, cfg IsolatedConfig) *Isolated {
	command := cfg.Command
	if len(command) == 0 {
		if exe, err := os.Executable(); err == nil {
			command = []string{exe, WorkerSubcommand}
		}
	}
	opts = opts.withDefaults()
	breaker := cfg.Breaker
	if breaker == nil {
		logger := opts.Logger
		breaker = resilience.New("worker", resilience.Settings{
			OnStateChange: func(name string, from, to resilience.State) {
				logger.Warn("worker breaker state changed",
					zap.String("from", from.String()),
					zap.String("to", to.String()))
			},
		})
	}
	return &Isolated{
		opts:    opts,
		command: command,
		env:     cfg.Env,
		breaker: breaker,
	}
}

// Breaker returns the breaker guarding worker launches
func (r *Isolated) Breaker() *resilience.Breaker {
	return r.breaker
}

// Command returns the worker command line
func (r *Isolated) Command() []string {
	return append([]string(nil), r.command...)
}

// Execute runs req in a worker process and always returns a result
func (r *Isolated) Execute(ctx context.Context, req Request) *Result {
	start := time.Now()
	if req.RunID == "" {
		req.RunID = id.NewRunID().String()
	}
	timeout := timeoutFor(req.TimeoutMs, r.opts.DefaultTimeout)

	stdout := stream.NewRelay(stream.Stdout, req.RunID, req.Sink)
	stderr := stream.NewRelay(stream.Stderr, req.RunID, req.Sink)
	failed := func(format string, args ...interface{}) *Result {
		stderr.Seal(fmt.Sprintf(format, args...))
		return finish(r.opts, IsolationProcess, req, StatusFailed, stdout, stderr, time.Since(start))
	}

	if len(r.command) == 0 {
		return failed("worker command unavailable")
	}
	payload, err := sonic.Marshal(workerRequest{
		RunID:            req.RunID,
		Code:             req.Code,
		SearchPaths:      req.SearchPaths,
		BaseSearchPaths:  r.opts.BaseSearchPaths,
		WorkingDirectory: req.WorkingDirectory,
		Native:           *r.opts.Native,
	})
	if err != nil {
		return failed("encode worker request: %v", err)
	}
	attempt, err := r.breaker.Allow()
	if err != nil {
		return failed("worker unavailable: %v", err)
	}

	cmd := exec.Command(r.command[0], r.command[1:]...)
	cmd.Stdin = bytes.NewReader(payload)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.Env = append(os.Environ(), r.env...)
	cmd.WaitDelay = waitDelay
	setProcessGroup(cmd)

	if err := cmd.Start(); err != nil {
		attempt.Done(false)
		return failed("worker failed to start: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var status Status
	healthy := true
	select {
	case err := <-done:
		stdout.Flush()
		stderr.Flush()
		status, healthy = r.exitStatus(req.RunID, err, stderr)
	case <-timer.C:
		status = StatusTimedOut
		stdout.Detach()
		stderr.Seal(timeoutMessage(timeout))
		r.kill(req.RunID, cmd)
	case <-ctx.Done():
		status = StatusTimedOut
		stdout.Detach()
		stderr.Seal(cancelMessage(ctx.Err()))
		r.kill(req.RunID, cmd)
	}
	attempt.Done(healthy)

	return finish(r.opts, IsolationProcess, req, status, stdout, stderr, time.Since(start))
}

// exitStatus maps the worker's exit. Exit code 1 is a script failure that
// the worker already diagnosed; anything else is noted on stderr and counts
// against the worker's health.
func (r *Isolated) exitStatus(runID string, err error, stderr *stream.Relay) (Status, bool) {
	if err == nil {
		return StatusCompleted, true
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == WorkerExitFailed {
		return StatusFailed, true
	}
	r.opts.Logger.Warn("worker exited abnormally", logging.RunID(runID), zap.Error(err))
	stderr.Seal(fmt.Sprintf("worker exited: %v", err))
	return StatusFailed, false
}

func (r *Isolated) kill(runID string, cmd *exec.Cmd) {
	if err := killProcessGroup(cmd); err != nil {
		r.opts.Logger.Debug("kill worker failed", logging.RunID(runID), zap.Error(err))
	}
}
