package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sammcj/goose/internal/infrastructure/monitoring"
)

// MetricsHandlers serves metrics in both Prometheus and JSON form.
type MetricsHandlers struct {
	metrics *monitoring.Metrics
	started time.Time
}

// NewMetricsHandlers creates metrics handlers.
func NewMetricsHandlers(metrics *monitoring.Metrics) *MetricsHandlers {
	return &MetricsHandlers{metrics: metrics, started: time.Now()}
}

// Register mounts the Prometheus scrape endpoint and the JSON summary.
func (h *MetricsHandlers) Register(r gin.IRouter) {
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/api/metrics", h.summary)
}

// summary is the lightweight JSON view the frontend polls; Prometheus
// scrapers use /metrics instead.
func (h *MetricsHandlers) summary(c *gin.Context) {
	snap := h.metrics.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"uptime_seconds":      time.Since(h.started).Seconds(),
		"total_requests":      snap.TotalRequests,
		"total_errors":        snap.TotalErrors,
		"active_instances":    snap.ActiveInstances,
		"active_channels":     snap.ActiveChannels,
		"avg_request_seconds": h.metrics.AverageRequestSeconds(),
	})
}
