/*
Package script runs a script body on the goja JavaScript engine.

# Overview

Each run gets a fresh goja runtime whose global scope holds only what a
top-level program needs:

  - __name__ set to "__main__"
  - print and console for output, routed to the run's stdout and stderr
  - process.stdout.write / process.stderr.write for raw output
  - sleep(ms)
  - sys: the module search path list and the preloaded native libraries
  - os: working directory and small file helpers
  - require: a CommonJS loader that resolves bare names against the search path

The body is compiled as a single program named "<harness>", so stack traces
point at it by that name; modules loaded through require are compiled under
their file path.

# Errors

Run returns the engine's own error values. Diagnose turns any of them (a
thrown exception, a syntax error, a recovered Go panic) into the text written
to the run's stderr.

# Usage Example

	engine := script.New(script.DefaultConfig())
	err := engine.Run(script.Env{
		Code:   `print("hello")`,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	})
	if err != nil {
		fmt.Fprint(os.Stderr, script.Diagnose(err))
	}
*/
package script
