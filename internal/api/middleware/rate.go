package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimitConfig bounds per-client request throughput. A misbehaving guest
// frame hammering the host API degrades only its own origin, not the whole
// host.
type RateLimitConfig struct {
	RequestsPerSecond int
	Burst             int
	// IdleTTL is how long a client's bucket survives without traffic
	// before it is eligible for eviction.
	IdleTTL time.Duration
}

// DefaultRateLimitConfig returns the default rate limit configuration.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 100,
		Burst:             200,
		IdleTTL:           10 * time.Minute,
	}
}

// sweepThreshold is the map size past which a lookup triggers an idle sweep.
const sweepThreshold = 1024

// clientLimiter is one client's token bucket plus its last activity stamp.
type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterPool hands out per-client token buckets and evicts idle ones so the
// map stays bounded under churning client addresses.
type limiterPool struct {
	cfg RateLimitConfig
	now func() time.Time

	mu      sync.Mutex
	clients map[string]*clientLimiter
}

func newLimiterPool(cfg RateLimitConfig) *limiterPool {
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = DefaultRateLimitConfig().IdleTTL
	}
	return &limiterPool{
		cfg:     cfg,
		now:     time.Now,
		clients: make(map[string]*clientLimiter),
	}
}

// get returns the client's limiter, creating it on first sight and stamping
// its activity. Grown maps are swept for idle entries on the way.
func (p *limiterPool) get(client string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	if len(p.clients) >= sweepThreshold {
		p.sweepLocked(now)
	}

	cl, ok := p.clients[client]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(rate.Limit(p.cfg.RequestsPerSecond), p.cfg.Burst)}
		p.clients[client] = cl
	}
	cl.lastSeen = now
	return cl.limiter
}

// sweepLocked drops entries idle beyond the TTL. Caller holds p.mu.
func (p *limiterPool) sweepLocked(now time.Time) {
	cutoff := now.Add(-p.cfg.IdleTTL)
	for client, cl := range p.clients {
		if cl.lastSeen.Before(cutoff) {
			delete(p.clients, client)
		}
	}
}

func (p *limiterPool) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.clients)
}

// RateLimit creates a per-IP token bucket rate limiting middleware.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	pool := newLimiterPool(cfg)

	return func(c *gin.Context) {
		if !pool.get(c.ClientIP()).Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
