/*
Package harness executes script bodies under a wall-clock budget.

# Overview

A Runner takes a Request (code, timeout, extra search paths, working
directory, optional live sink) and always returns a Result: stdout, stderr,
an exit code and the time spent. It never returns an error and never panics.

Every request moves through:

	PREPARING -> RUNNING -> COMPLETED | FAILED | TIMED_OUT

PREPARING switches the working directory, puts the extra search paths at the
front of the shared search path list, bridges the configured native library
and preloads native libraries. RUNNING compiles the body and executes it with
stdout and stderr attached to stream relays.

# Runners

Controller runs the body on a goroutine inside the calling process. On
timeout the caller is released but the goroutine keeps running until the
script returns; its later output is discarded. Because the working directory
and the search path list are process-wide, a goroutine abandoned this way may
restore them after a later request has prepared its own environment.

Isolated runs every request in a child process (the harness binary started as
"harness worker") inside its own process group. On timeout the whole group is
killed, so nothing outlives the request. Launches go through a circuit
breaker: when the worker command keeps failing to start or dies abnormally,
requests fail fast until a probe succeeds.

# Exit Codes

	 0  completed
	 1  the script raised, failed to compile, or preparation failed
	-1  timed out (or the caller's context ended first)
*/
package harness
