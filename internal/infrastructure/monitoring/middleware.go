package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// Middleware creates a Gin middleware for metrics collection
func Middleware(metrics *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		method := c.Request.Method

		// Get request size
		reqSize := c.Request.ContentLength
		if reqSize < 0 {
			reqSize = 0
		}

		// Process request
		c.Next()

		// Get response data
		duration := time.Since(start)
		status := strconv.Itoa(c.Writer.Status())
		respSize := int64(c.Writer.Size())

		// Record metrics
		metrics.RecordHTTPRequest(method, path, status, duration, reqSize, respSize)
	}
}

// Timer measures operation duration
type Timer struct {
	start   time.Time
	metrics *Metrics
	scope   string
	method  string
}

// NewTimer creates a new timer
func NewTimer(metrics *Metrics, scope, method string) *Timer {
	return &Timer{
		start:   time.Now(),
		metrics: metrics,
		scope:   scope,
		method:  method,
	}
}

// Stop stops the timer and records the duration under the timer's scope.
// Scope "bridge" records a bridge request, "agent" an agent call.
func (t *Timer) Stop(status string) {
	duration := time.Since(t.start)
	switch t.scope {
	case "agent":
		t.metrics.RecordAgentCall(t.method, status, duration)
	default:
		t.metrics.RecordBridgeRequest(t.method, status, duration)
	}
}
