package handler

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// clientBucket tracks the token bucket for one client IP.
type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiterConfig tunes the per-IP limiter. RPS is the steady-state
// requests per second and Burst the bucket depth; CleanupEvery and StaleAfter
// bound the lifetime of idle client entries.
type RateLimiterConfig struct {
	RPS          int
	Burst        int
	CleanupEvery time.Duration
	StaleAfter   time.Duration
}

// RateLimiter returns a Gin middleware enforcing per-IP token-bucket rate
// limiting in front of the vault's record endpoints. Rejected clients are
// logged so a misbehaving integrity client shows up next to the write
// rejections it causes.
func RateLimiter(cfg RateLimiterConfig, logger *zap.Logger) gin.HandlerFunc {
	if cfg.Burst <= 0 {
		cfg.Burst = cfg.RPS * 2
	}
	if cfg.CleanupEvery <= 0 {
		cfg.CleanupEvery = 5 * time.Minute
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 2 * cfg.CleanupEvery
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var mu sync.Mutex
	buckets := make(map[string]*clientBucket)

	// Background sweep of idle client entries.
	go func() {
		for {
			time.Sleep(cfg.CleanupEvery)
			mu.Lock()
			for ip, b := range buckets {
				if time.Since(b.lastSeen) > cfg.StaleAfter {
					delete(buckets, ip)
				}
			}
			mu.Unlock()
		}
	}()

	return func(c *gin.Context) {
		ip := c.ClientIP()

		mu.Lock()
		b, ok := buckets[ip]
		if !ok {
			b = &clientBucket{limiter: rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst)}
			buckets[ip] = b
		}
		b.lastSeen = time.Now()
		mu.Unlock()

		if !b.limiter.Allow() {
			logger.Warn("rate limit exceeded",
				zap.String("client_ip", ip),
				zap.String("path", c.Request.URL.Path),
			)
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}
