// Package middleware provides the HTTP middleware stack of the harness server.
//
//   - CORS: cross-origin access, WebSocket upgrades included
//   - RateLimit: per-IP token buckets with idle eviction
//   - GlobalRateLimit: one token bucket for all clients
//   - Logger and Recovery: zap request logging and panic recovery
//
// Example Usage:
//
//	router.Use(middleware.Logger(logger), middleware.Recovery(logger))
//	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
//	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
package middleware
