/*
Package monitoring provides performance monitoring and metrics collection.

# Overview

This package implements Prometheus-based metrics collection for the host
process, tracking HTTP requests, app instance lifecycle, guest bridge
traffic, sandbox proxy activity, and system metrics.

# Features

- HTTP request metrics (latency, throughput, size)
- App instance lifecycle metrics (spawns, phases, resource fetches)
- Bridge request metrics (per method, per outcome)
- Sandbox proxy metrics (staged content, evictions)
- Guest channel connection metrics
- System metrics (uptime)

# Usage

	// Create metrics collector
	metrics := monitoring.NewMetrics()

	// Add middleware to Gin router
	router.Use(monitoring.Middleware(metrics))

	// Record custom metrics
	metrics.SetInstancesActive(5)
	metrics.IncInstancesTotal()

	// Time operations
	timer := monitoring.NewTimer(metrics, "bridge", "ui/call-tool")
	// ... perform operation ...
	timer.Stop("success")

# Metrics Endpoint

Expose metrics via the standard Prometheus endpoint:

	import "github.com/prometheus/client_golang/prometheus/promhttp"
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
*/
package monitoring
