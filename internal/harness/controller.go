package harness

import (
	"context"
	"runtime/debug"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/harness/internal/harness/native"
	"github.com/GriffinCanCode/AgentOS/harness/internal/harness/script"
	"github.com/GriffinCanCode/AgentOS/harness/internal/harness/searchpath"
	"github.com/GriffinCanCode/AgentOS/harness/internal/harness/stream"
	"github.com/GriffinCanCode/AgentOS/harness/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/harness/internal/shared/id"
)

// Options configures a runner. Zero values select defaults.
type Options struct {
	Logger   *zap.Logger
	Observer Observer
	Engine   *script.Engine

	// Paths is the shared module search path list
	Paths *searchpath.List

	// Registry is the process-wide set of preloaded libraries
	Registry *native.Registry
	Opener   native.Opener
	Native   *NativeConfig

	// DefaultTimeout applies to requests without a TimeoutMs
	DefaultTimeout time.Duration

	// BaseSearchPaths are prepended to every request's search paths
	BaseSearchPaths []string
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Observer == nil {
		o.Observer = nopObserver{}
	}
	if o.Engine == nil {
		o.Engine = script.New(script.DefaultConfig())
	}
	if o.Paths == nil {
		o.Paths = searchpath.New()
	}
	if o.Registry == nil {
		o.Registry = native.NewRegistry()
	}
	if o.Native == nil {
		cfg := DefaultNativeConfig()
		o.Native = &cfg
	}
	if o.DefaultTimeout <= 0 {
		o.DefaultTimeout = DefaultTimeout
	}
	return o
}

// Controller runs requests on a goroutine in the current process
type Controller struct {
	opts     Options
	pipeline *pipeline
}

// NewController creates an in-process runner
func NewController(opts Options) *Controller {
	opts = opts.withDefaults()
	return &Controller{
		opts: opts,
		pipeline: newPipeline(opts.Logger, opts.Observer, opts.Engine, opts.Paths,
			opts.Registry, opts.Opener, *opts.Native, opts.BaseSearchPaths),
	}
}

// Registry returns the loaded library registry
func (c *Controller) Registry() *native.Registry {
	return c.opts.Registry
}

// Paths returns the shared module search path list
func (c *Controller) Paths() *searchpath.List {
	return c.opts.Paths
}

// Execute runs req and always returns a result. On timeout the worker
// goroutine is abandoned; its later output is discarded.
func (c *Controller) Execute(ctx context.Context, req Request) *Result {
	start := time.Now()
	if req.RunID == "" {
		req.RunID = id.NewRunID().String()
	}
	timeout := timeoutFor(req.TimeoutMs, c.opts.DefaultTimeout)

	stdout := stream.NewRelay(stream.Stdout, req.RunID, req.Sink)
	stderr := stream.NewRelay(stream.Stderr, req.RunID, req.Sink)

	done := make(chan Status, 1)
	go c.work(req, stdout, stderr, done)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var status Status
	select {
	case status = <-done:
	case <-timer.C:
		status = StatusTimedOut
		stdout.Detach()
		stderr.Seal(timeoutMessage(timeout))
	case <-ctx.Done():
		status = StatusTimedOut
		stdout.Detach()
		stderr.Seal(cancelMessage(ctx.Err()))
	}

	return finish(c.opts, IsolationInProcess, req, status, stdout, stderr, time.Since(start))
}

func (c *Controller) work(req Request, stdout, stderr *stream.Relay, done chan<- Status) {
	status := StatusCompleted
	defer func() {
		if rec := recover(); rec != nil {
			_, _ = stderr.WriteString(script.Diagnose(&script.PanicError{Value: rec, Stack: debug.Stack()}))
			status = StatusFailed
		}
		stdout.Flush()
		stderr.Flush()
		done <- status
	}()

	if err := c.pipeline.run(req, stdout, stderr); err != nil {
		_, _ = stderr.WriteString(script.Diagnose(err))
		status = StatusFailed
	}
}

// finish assembles the result from the relays and reports it
func finish(opts Options, isolation string, req Request, status Status, stdout, stderr *stream.Relay, elapsed time.Duration) *Result {
	res := &Result{
		RunID:      req.RunID,
		Status:     status,
		Stdout:     stdout.String(),
		Stderr:     stderr.String(),
		ExitCode:   status.ExitCode(),
		TimedOut:   status == StatusTimedOut,
		DurationMs: elapsed.Milliseconds(),
	}

	opts.Observer.ObserveExecution(status, isolation, elapsed)
	opts.Observer.ObserveStreamLines(stream.Stdout, lineCount(res.Stdout))
	opts.Observer.ObserveStreamLines(stream.Stderr, lineCount(res.Stderr))
	outEvents, outFailures := stdout.Stats()
	errEvents, errFailures := stderr.Stats()
	opts.Logger.Info("execution finished",
		logging.RunID(req.RunID),
		zap.String("status", string(status)),
		zap.Duration("duration", elapsed),
		zap.Int("events", outEvents+errEvents),
		zap.Int("sink_failures", outFailures+errFailures),
		logging.Isolation(isolation))
	return res
}
