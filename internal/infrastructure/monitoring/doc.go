/*
Package monitoring provides Prometheus metrics for the harness.

# Overview

Metrics implements harness.Observer, so runners report executions, stream
line counts, native preload attempts and bridge copies directly. HTTP request
metrics come from a Gin middleware.

# Usage

	reg := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(reg)

	router.Use(monitoring.Middleware(metrics))
	runner := harness.NewController(harness.Options{Observer: metrics})

# Metrics Endpoint

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
*/
package monitoring
