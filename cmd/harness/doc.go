// Command harness executes scripts under a time budget.
//
// Commands:
//
//	harness serve [--port 8000] [--config harness.yaml]
//	harness run [file|-] [--json] [--timeout-ms N] [--path DIR]...
//	harness native [dir...]
//	harness worker
//
// serve exposes POST /execute, GET /ws, GET /native/libraries, /health and
// /metrics. run streams the script's lines to the terminal and exits 0 when
// it completes, 1 when it fails and 124 when it times out. worker is what the
// process runner starts for every request; it reads one JSON request on stdin.
//
// Configuration comes from environment variables (HARNESS_*, PORT, LOG_LEVEL,
// RATE_LIMIT_*), then an optional YAML or TOML file, then flags.
//
// Signals:
//   - SIGINT, SIGTERM: graceful shutdown; a running script is cancelled
package main
