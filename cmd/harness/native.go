package main

import (
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"github.com/GriffinCanCode/AgentOS/harness/internal/harness"
	"github.com/GriffinCanCode/AgentOS/harness/internal/infrastructure/server"
)

func nativeCommand(args []string, stdout, stderr io.Writer) error {
	var flags configFlags

	fs := pflag.NewFlagSet("native", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	flags.add(fs)
	if done, err := parse(fs, args, stderr); done {
		return err
	}

	cfg, err := flags.load(fs)
	if err != nil {
		return err
	}

	bases := harness.SearchPaths(cfg.Harness.SearchPaths).Merge(fs.Args())
	if len(bases) == 0 {
		return fmt.Errorf("no directories: pass them as arguments or set HARNESS_SEARCH_PATHS")
	}

	locator := server.Locator(cfg.Harness)
	for _, dir := range locator.Dirs(bases) {
		fmt.Fprintln(stdout, dir)
		for _, c := range locator.Candidates(dir) {
			fmt.Fprintf(stdout, "  %d %s\n", c.Priority, c.Path)
		}
	}
	return nil
}
