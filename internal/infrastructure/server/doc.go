// Package server assembles the HTTP and WebSocket surface of the harness.
//
// It picks the runner from configuration, installs the middleware chain
// (logging, recovery, metrics, CORS, rate limiting), registers the routes and
// serves them with gzip compression until its context is cancelled.
package server
