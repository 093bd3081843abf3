package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/timmy/memegen/internal/metrics"
	"golang.org/x/time/rate"
)

// RateLimitConfig allows Requests per Window for each client IP.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// rateLimiter keeps one token bucket per client key.
type rateLimiter struct {
	limit   rate.Limit
	burst   int
	window  time.Duration
	mu      sync.Mutex
	clients map[string]*client
	swept   time.Time
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newRateLimiter(cfg RateLimitConfig) *rateLimiter {
	return &rateLimiter{
		limit:   rate.Every(cfg.Window / time.Duration(cfg.Requests)),
		burst:   cfg.Requests,
		window:  cfg.Window,
		clients: make(map[string]*client),
	}
}

// get returns (and lazily creates) the limiter for key. Buckets idle for a
// whole window are full again and get dropped.
func (rl *rateLimiter) get(key string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now.Sub(rl.swept) > rl.window {
		for k, cl := range rl.clients {
			if now.Sub(cl.lastSeen) > rl.window {
				delete(rl.clients, k)
			}
		}
		rl.swept = now
	}

	cl, ok := rl.clients[key]
	if !ok {
		cl = &client{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[key] = cl
	}
	cl.lastSeen = now
	return cl.limiter
}

// RateLimit returns a Gin middleware enforcing a token-bucket limit per client IP.
// A non-positive Requests disables limiting.
func RateLimit(cfg RateLimitConfig, m *metrics.Metrics) gin.HandlerFunc {
	if cfg.Requests <= 0 || cfg.Window <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	rl := newRateLimiter(cfg)

	return func(c *gin.Context) {
		key := c.ClientIP()
		if key == "" {
			key = "unknown"
		}

		now := time.Now()
		lim := rl.get(key, now)
		c.Header("RateLimit-Limit", strconv.Itoa(rl.burst))
		if !lim.AllowN(now, 1) {
			r := lim.ReserveN(now, 1)
			retry := r.DelayFrom(now)
			r.CancelAt(now)
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(retry.Seconds()))))
			m.IncRateLimited()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"error":   "Too many requests, please try again later.",
			})
			return
		}
		c.Header("RateLimit-Remaining", strconv.Itoa(int(lim.TokensAt(now))))
		c.Next()
	}
}
