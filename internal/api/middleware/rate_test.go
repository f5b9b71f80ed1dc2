package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimitRejectsPastBurst(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimit(RateLimitConfig{RequestsPerSecond: 1, Burst: 2}))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRateLimitIsolatesClients(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimit(RateLimitConfig{RequestsPerSecond: 1, Burst: 1}))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	hit := func(addr string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = addr
		r.ServeHTTP(w, req)
		return w.Code
	}

	require.Equal(t, http.StatusOK, hit("10.0.0.1:1234"))
	require.Equal(t, http.StatusTooManyRequests, hit("10.0.0.1:1234"))
	assert.Equal(t, http.StatusOK, hit("10.0.0.2:1234"), "one client's exhaustion never bleeds into another's")
}

func TestLimiterPoolEvictsIdleClients(t *testing.T) {
	pool := newLimiterPool(RateLimitConfig{RequestsPerSecond: 1, Burst: 1, IdleTTL: time.Minute})
	now := time.Unix(1_700_000_000, 0)
	pool.now = func() time.Time { return now }

	for i := 0; i < sweepThreshold; i++ {
		pool.get(fmt.Sprintf("10.0.%d.%d", i/256, i%256))
	}
	require.Equal(t, sweepThreshold, pool.size())

	// Past the TTL, the next lookup sweeps the idle entries out.
	now = now.Add(2 * time.Minute)
	pool.get("10.1.0.1")
	assert.Equal(t, 1, pool.size())
}

func TestLimiterPoolKeepsActiveClientsThroughSweep(t *testing.T) {
	pool := newLimiterPool(RateLimitConfig{RequestsPerSecond: 1, Burst: 1, IdleTTL: time.Minute})
	now := time.Unix(1_700_000_000, 0)
	pool.now = func() time.Time { return now }

	for i := 0; i < sweepThreshold; i++ {
		pool.get(fmt.Sprintf("10.0.%d.%d", i/256, i%256))
	}

	// Keep one client active past the TTL window.
	now = now.Add(45 * time.Second)
	active := pool.get("10.0.0.0")

	now = now.Add(30 * time.Second)
	pool.get("10.1.0.1")

	assert.Equal(t, 2, pool.size())
	assert.Same(t, active, pool.get("10.0.0.0"), "active clients keep their bucket across sweeps")
}