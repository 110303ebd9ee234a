package middleware

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

const rateLimitMessage = "Too many requests, please try again later"

// RateLimit allows maxPerMin requests per minute for each email in the JSON
// body, falling back to the client IP. Counters live in Redis when cache is
// set so limits hold across instances; otherwise a per-process token bucket
// is used.
func RateLimit(cache *redis.Client, prefix string, maxPerMin int) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = 5
	}
	if cache == nil {
		return localRateLimit(maxPerMin)
	}
	return func(c *fiber.Ctx) error {
		key := "rl:" + prefix + ":" + subject(c)
		cnt, err := cache.Incr(c.UserContext(), key).Result()
		if err != nil {
			return c.Next() // fail-open on cache errors
		}
		if cnt == 1 {
			cache.Expire(c.UserContext(), key, time.Minute)
		}
		if cnt > int64(maxPerMin) {
			return fiber.NewError(http.StatusTooManyRequests, rateLimitMessage)
		}
		return c.Next()
	}
}

func localRateLimit(maxPerMin int) fiber.Handler {
	limiters := newLocalLimiters(maxPerMin, time.Now)
	return func(c *fiber.Ctx) error {
		if !limiters.allow(subject(c)) {
			return fiber.NewError(http.StatusTooManyRequests, rateLimitMessage)
		}
		return c.Next()
	}
}

// localLimiters keeps one token bucket per subject. A bucket idle for a full
// window has refilled, so it is dropped and recreated on next use.
type localLimiters struct {
	mu        sync.Mutex
	every     rate.Limit
	burst     int
	now       func() time.Time
	lastSweep time.Time
	buckets   map[string]*localBucket
}

type localBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newLocalLimiters(maxPerMin int, now func() time.Time) *localLimiters {
	return &localLimiters{
		every:     rate.Every(time.Minute / time.Duration(maxPerMin)),
		burst:     maxPerMin,
		now:       now,
		lastSweep: now(),
		buckets:   map[string]*localBucket{},
	}
}

func (l *localLimiters) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= time.Minute {
		for k, b := range l.buckets {
			if now.Sub(b.lastSeen) >= time.Minute {
				delete(l.buckets, k)
			}
		}
		l.lastSweep = now
	}

	b, ok := l.buckets[key]
	if !ok {
		b = &localBucket{limiter: rate.NewLimiter(l.every, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

func (l *localLimiters) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

func subject(c *fiber.Ctx) string {
	var req struct {
		Email string `json:"email"`
	}
	_ = c.BodyParser(&req)
	if email := strings.TrimSpace(req.Email); email != "" {
		return email
	}
	return c.IP()
}
