package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/spf13/pflag"

	"github.com/GriffinCanCode/AgentOS/harness/internal/harness"
	"github.com/GriffinCanCode/AgentOS/harness/internal/harness/stream"
	"github.com/GriffinCanCode/AgentOS/harness/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/harness/internal/infrastructure/server"
)

// timedOutExitCode matches timeout(1)
const timedOutExitCode = 124

func runCommand(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	var flags configFlags
	var workdir, runID string
	var extra []string
	var asJSON bool

	fs := pflag.NewFlagSet("run", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	flags.add(fs)
	fs.StringVar(&workdir, "workdir", "", "working directory for the script")
	fs.StringVar(&runID, "run-id", "", "run id (generated when empty)")
	fs.StringSliceVar(&extra, "path", nil, "extra search path for this run (repeatable)")
	fs.BoolVar(&asJSON, "json", false, "print the result as JSON instead of streaming output")
	if done, err := parse(fs, args, stderr); done {
		return err
	}
	if fs.NArg() > 1 {
		return fmt.Errorf("run takes at most one script, got %d", fs.NArg())
	}

	cfg, err := flags.load(fs)
	if err != nil {
		return err
	}

	code, err := readScript(fs.Arg(0), stdin)
	if err != nil {
		return err
	}

	logger := logging.NewOrNop(logging.CLIConfig(cfg.Logging.Level, cfg.Logging.Development))
	defer logger.Sync()

	runner, _ := server.NewRunner(cfg.Harness, logger.Logger, nil)
	req := harness.Request{
		RunID:            runID,
		Code:             code,
		SearchPaths:      harness.CoercePaths(extra),
		WorkingDirectory: workdir,
	}
	tail := newStreamTail()
	if !asJSON {
		req.Sink = stream.Fanout{terminalSink(stdout, stderr), tail}
	}

	res := runner.Execute(ctx, req)

	if asJSON {
		data, err := sonic.ConfigStd.MarshalIndent(res, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, string(data))
		return resultError(res)
	}

	if rest := tail.rest(stream.Stdout, res.Stdout); rest != "" {
		fmt.Fprintln(stdout, rest)
	}
	if rest := tail.rest(stream.Stderr, res.Stderr); rest != "" {
		fmt.Fprintln(stderr, rest)
	}
	return resultError(res)
}

// readScript reads a file, or stdin for "-" or no argument
func readScript(name string, stdin io.Reader) (string, error) {
	if name == "" || name == "-" {
		data, err := io.ReadAll(stdin)
		return string(data), err
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("read script: %w", err)
	}
	return string(data), nil
}

// terminalSink prints each line as it completes
func terminalSink(stdout, stderr io.Writer) stream.Sink {
	return stream.SinkFunc(func(ev stream.Event) error {
		w := stdout
		if ev.Stream == stream.Stderr {
			w = stderr
		}
		_, err := fmt.Fprintln(w, ev.Line)
		return err
	})
}

// streamTail counts the bytes of each stream that reached the terminal, so
// output the relay never emitted (a fragment cut off by a timeout, the
// timeout notice itself) can be printed from the result afterwards.
type streamTail struct {
	mu   sync.Mutex
	sent map[string]int
}

func newStreamTail() *streamTail {
	return &streamTail{sent: make(map[string]int)}
}

func (t *streamTail) Emit(ev stream.Event) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent[ev.Stream] += len(ev.Line) + 1
	return nil
}

// rest returns the part of buffered that was never emitted for name
func (t *streamTail) rest(name, buffered string) string {
	t.mu.Lock()
	n := t.sent[name]
	t.mu.Unlock()

	if n >= len(buffered) {
		return ""
	}
	return strings.TrimPrefix(buffered[n:], "\n")
}

func resultError(res *harness.Result) error {
	switch res.Status {
	case harness.StatusCompleted:
		return nil
	case harness.StatusTimedOut:
		return exitError{code: timedOutExitCode}
	default:
		return exitError{code: res.ExitCode}
	}
}
