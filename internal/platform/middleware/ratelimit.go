package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// RateLimitConfig tunes the per-caller token buckets.
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
}

// DefaultRateLimitConfig suits a staff-facing API: generous enough for a busy
// front desk, low enough to stop a runaway client.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 100,
		BurstSize:         200,
	}
}

// bucketIdleTTL is how long an untouched bucket survives before the sweep
// drops it, so short-lived callers don't grow the map forever.
const bucketIdleTTL = 10 * time.Minute

type bucket struct {
	mu       sync.Mutex
	tokens   float64
	max      float64
	rate     float64 // tokens per second
	lastSeen time.Time
}

func newBucket(rate float64, burst int) *bucket {
	return &bucket{
		tokens:   float64(burst),
		max:      float64(burst),
		rate:     rate,
		lastSeen: time.Now(),
	}
}

// take refills the bucket for the elapsed time, then spends one token if any
// is available.
func (b *bucket) take() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	b.tokens += now.Sub(b.lastSeen).Seconds() * b.rate
	if b.tokens > b.max {
		b.tokens = b.max
	}
	b.lastSeen = now

	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// retryAfter estimates whole seconds until the next token refills.
func (b *bucket) retryAfter() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.rate <= 0 {
		return 1
	}
	return int((1-b.tokens)/b.rate) + 1
}

type limiterStore struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	cfg       RateLimitConfig
	lastSweep time.Time
}

func newLimiterStore(cfg RateLimitConfig) *limiterStore {
	return &limiterStore{
		buckets:   make(map[string]*bucket),
		cfg:       cfg,
		lastSweep: time.Now(),
	}
}

// get returns the caller's bucket, sweeping idle ones while it holds the
// lock.
func (s *limiterStore) get(key string) *bucket {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if now.Sub(s.lastSweep) > bucketIdleTTL {
		for k, b := range s.buckets {
			b.mu.Lock()
			idle := now.Sub(b.lastSeen) > bucketIdleTTL
			b.mu.Unlock()
			if idle {
				delete(s.buckets, k)
			}
		}
		s.lastSweep = now
	}

	b, ok := s.buckets[key]
	if !ok {
		b = newBucket(s.cfg.RequestsPerSecond, s.cfg.BurstSize)
		s.buckets[key] = b
	}
	return b
}

// RateLimit applies per-caller token-bucket limiting. Callers are keyed by
// tenant and client IP, so one clinic's traffic spike never exhausts another
// clinic's budget behind a shared proxy.
func RateLimit(cfg RateLimitConfig) echo.MiddlewareFunc {
	store := newLimiterStore(cfg)
	limitHeader := strconv.FormatFloat(cfg.RequestsPerSecond, 'f', 0, 64)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := c.RealIP()
			if tenantID, ok := c.Get("jwt_tenant_id").(string); ok && tenantID != "" {
				key = tenantID + ":" + key
			}

			b := store.get(key)
			if !b.take() {
				c.Response().Header().Set("Retry-After", strconv.Itoa(b.retryAfter()))
				c.Response().Header().Set("X-RateLimit-Limit", limitHeader)
				c.Response().Header().Set("X-RateLimit-Remaining", "0")
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}

			c.Response().Header().Set("X-RateLimit-Limit", limitHeader)
			return next(c)
		}
	}
}
