package harness

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/harness/internal/harness/native"
	"github.com/GriffinCanCode/AgentOS/harness/internal/harness/script"
	"github.com/GriffinCanCode/AgentOS/harness/internal/harness/searchpath"
	"github.com/GriffinCanCode/AgentOS/harness/internal/infrastructure/logging"
)

// pipeline is the PREPARING and RUNNING half of a request, shared by the
// in-process controller and the worker child
type pipeline struct {
	logger    *zap.Logger
	observer  Observer
	engine    *script.Engine
	paths     *searchpath.List
	bridge    *native.Bridge
	preloader *native.Preloader
	disabled  bool
	base      SearchPaths
}

func newPipeline(logger *zap.Logger, observer Observer, engine *script.Engine, paths *searchpath.List,
	registry *native.Registry, opener native.Opener, cfg NativeConfig, base []string) *pipeline {
	locator := cfg.locator()
	return &pipeline{
		logger:    logger,
		observer:  observer,
		engine:    engine,
		paths:     paths,
		bridge:    cfg.bridge(locator),
		preloader: native.NewPreloader(locator, registry, opener),
		disabled:  cfg.Disabled,
		base:      CoercePaths(base),
	}
}

// run prepares the environment, executes req.Code and restores the
// environment. The returned error is the script's failure, if any.
func (p *pipeline) run(req Request, stdout, stderr io.Writer) error {
	journal := searchpath.NewJournal(p.paths)
	var previous string
	defer func() {
		journal.Undo()
		if previous == "" {
			return
		}
		if err := os.Chdir(previous); err != nil {
			p.logger.Debug("restore working directory failed",
				logging.RunID(req.RunID), zap.Error(err))
		}
	}()

	if dir := strings.TrimSpace(req.WorkingDirectory); dir != "" {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("working directory: %w", err)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("working directory: %w", err)
		}
		if err := os.Chdir(dir); err != nil {
			return fmt.Errorf("working directory: %w", err)
		}
		previous = cwd
	}

	paths := p.base.Merge(req.SearchPaths)
	for _, path := range paths {
		journal.InsertFront(path)
	}
	if inserted := journal.Inserted(); len(inserted) > 0 {
		p.logger.Debug("search paths inserted",
			logging.RunID(req.RunID), zap.Strings("paths", inserted))
	}
	p.prepareNative(req.RunID, paths)

	return p.engine.Run(script.Env{
		Code:      req.Code,
		Stdout:    stdout,
		Stderr:    stderr,
		Paths:     journal,
		Libraries: p.preloader.Registry().Snapshot,
	})
}

// prepareNative bridges and preloads. Nothing here fails the request.
func (p *pipeline) prepareNative(runID string, bases []string) {
	if p.disabled || len(bases) == 0 {
		return
	}

	if p.bridge.Enabled() {
		report := p.bridge.Run(bases)
		p.observer.ObserveBridge(report)
		for _, c := range report.Copies {
			p.logger.Debug("bridge copy",
				logging.RunID(runID),
				zap.String("target", c.Target),
				zap.String("outcome", string(c.Outcome)),
				zap.Error(c.Err))
		}
	}

	report := p.preloader.Preload(bases)
	p.observer.ObservePreload(report, p.preloader.Registry().Len())
	for _, a := range report.Attempts {
		if a.Outcome != native.Failed {
			continue
		}
		p.logger.Debug("native preload failed",
			logging.RunID(runID),
			zap.String("path", a.Path),
			zap.Error(a.Err))
	}
	p.logger.Debug("native preload",
		logging.RunID(runID),
		zap.Int("loaded", report.Count(native.Loaded)),
		zap.Int("skipped", report.Count(native.Skipped)),
		zap.Int("failed", report.Count(native.Failed)))
}

// lineCount counts lines the way the relay emits them
func lineCount(s string) int {
	if s == "" {
		return 0
	}
	n := strings.Count(s, "\n")
	if !strings.HasSuffix(s, "\n") {
		n++
	}
	return n
}

// timeoutFor clamps a request timeout to at least 1ms; nil selects def
func timeoutFor(ms *int, def time.Duration) time.Duration {
	switch {
	case ms == nil:
		return def
	case *ms < 1:
		return time.Millisecond
	default:
		return time.Duration(*ms) * time.Millisecond
	}
}

func timeoutMessage(d time.Duration) string {
	return fmt.Sprintf("Execution timed out after %.2f seconds.", d.Seconds())
}

func cancelMessage(err error) string {
	return fmt.Sprintf("Execution cancelled: %v.", err)
}
