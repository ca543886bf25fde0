package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	res "vnpay-broker/internal/shared/response"
	"vnpay-broker/internal/shared/utils"
)

// =====================================================
// PER-IP RATE LIMITER
// =====================================================

const (
	defaultLimiterMaxKeys = 10000
	defaultLimiterIdle    = 10 * time.Minute
)

// IPRateLimiter hands out one token bucket per client IP. Idle buckets are
// dropped lazily once the cleanup interval has passed.
type IPRateLimiter struct {
	mu       sync.Mutex
	rps      rate.Limit
	burst    int
	maxKeys  int
	idle     time.Duration
	limiters map[string]*limiterEntry

	lastCleanup time.Time
	now         func() time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

func NewIPRateLimiter(rps float64, burst int) *IPRateLimiter {
	return &IPRateLimiter{
		rps:         rate.Limit(rps),
		burst:       burst,
		maxKeys:     defaultLimiterMaxKeys,
		idle:        defaultLimiterIdle,
		limiters:    make(map[string]*limiterEntry),
		lastCleanup: time.Now(),
		now:         time.Now,
	}
}

// Allow reports whether key may proceed now
func (l *IPRateLimiter) Allow(key string) bool {
	now := l.now()
	return l.limiterFor(key, now).AllowN(now, 1)
}

func (l *IPRateLimiter) limiterFor(key string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastCleanup) > l.idle {
		l.cleanupLocked(now)
	}

	entry, ok := l.limiters[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.limiters[key] = entry
		if len(l.limiters) > l.maxKeys {
			l.cleanupLocked(now)
		}
	}
	entry.lastUsed = now
	return entry.limiter
}

func (l *IPRateLimiter) cleanupLocked(now time.Time) {
	for key, entry := range l.limiters {
		if now.Sub(entry.lastUsed) > l.idle {
			delete(l.limiters, key)
		}
	}
	l.lastCleanup = now
}

// Len returns the number of tracked keys
func (l *IPRateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

// RateLimit rejects requests over the per-IP budget with 429
func RateLimit(limiter *IPRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		// keyed on the trusted-proxy view, a spoofed X-Forwarded-For from an
		// untrusted peer lands in the peer's own bucket
		ip := utils.ExtractClientIP(c)

		if !limiter.Allow(ip) {
			log.Warn().
				Str("request_id", c.GetString(RequestIDKey)).
				Str("ip", ip).
				Str("path", c.Request.URL.Path).
				Msg("Rate limit exceeded")
			c.Header("Retry-After", "1")
			res.TooManyRequests(c, "Too many requests, please slow down")
			return
		}

		c.Next()
	}
}
