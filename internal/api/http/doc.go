// Package http provides the REST handlers of the harness server.
//
// Endpoints:
//   - Health: / and /health
//   - Execution: POST /execute
//   - Native libraries: GET /native/libraries[?dir=...]
//   - Metrics: GET /metrics/json
//
// POST /execute answers 200 with the execution result whatever the script
// did; 400 is reserved for malformed or oversized requests.
//
// Example Usage:
//
//	handlers := http.NewHandlers(http.Options{Runner: runner, Registry: registry})
//	router.POST("/execute", handlers.Execute)
package http
