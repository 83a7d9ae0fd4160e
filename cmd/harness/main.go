package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/GriffinCanCode/AgentOS/harness/internal/harness"
	"github.com/GriffinCanCode/AgentOS/harness/internal/infrastructure/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	if err != nil {
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// exitError ends the process with code and no message
type exitError struct {
	code int
}

func (e exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func (e exitError) ExitCode() int {
	return e.code
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		printUsage(stderr)
		return exitError{code: 2}
	}

	switch cmd, rest := args[0], args[1:]; cmd {
	case "serve":
		return serveCommand(ctx, rest, stderr)
	case "run":
		return runCommand(ctx, rest, stdin, stdout, stderr)
	case "native":
		return nativeCommand(rest, stdout, stderr)
	case harness.WorkerSubcommand:
		return workerCommand(stdin, stdout, stderr)
	case "help", "-h", "--help":
		printUsage(stdout)
		return nil
	default:
		printUsage(stderr)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `Usage: harness <command> [flags]

Commands:
  serve           serve the HTTP and WebSocket API
  run [file|-]    execute a script and stream its output
  native [dir...] list library directories and preload candidates
  worker          execute one request read from stdin (internal)

Run "harness <command> --help" for the flags of a command.
`)
}

// configFlags are shared by every command that reads configuration
type configFlags struct {
	file        string
	isolation   string
	timeoutMs   int
	searchPaths []string
	logLevel    string
}

func (f *configFlags) add(fs *pflag.FlagSet) {
	fs.StringVarP(&f.file, "config", "c", "", "YAML or TOML config file overlaid on the environment")
	fs.StringVar(&f.isolation, "isolation", "", `runner isolation: "process" or "inprocess"`)
	fs.IntVar(&f.timeoutMs, "timeout-ms", 0, "default execution timeout in milliseconds")
	fs.StringSliceVar(&f.searchPaths, "search-path", nil, "base module search path (repeatable)")
	fs.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn, error")
}

// load reads the environment, the optional file, then applies set flags
func (f *configFlags) load(fs *pflag.FlagSet) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if f.file != "" {
		cfg, err = config.LoadFile(f.file)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if fs.Changed("isolation") {
		cfg.Harness.Isolation = f.isolation
	}
	if fs.Changed("timeout-ms") {
		cfg.Harness.TimeoutMs = f.timeoutMs
	}
	if fs.Changed("search-path") {
		cfg.Harness.SearchPaths = append(cfg.Harness.SearchPaths, f.searchPaths...)
	}
	if fs.Changed("log-level") {
		cfg.Logging.Level = f.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parse handles --help uniformly; done is true when the command should stop
func parse(fs *pflag.FlagSet, args []string, stdout io.Writer) (done bool, err error) {
	if err := fs.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			fs.SetOutput(stdout)
			fs.PrintDefaults()
			return true, nil
		}
		return true, exitError{code: 2}
	}
	return false, nil
}
