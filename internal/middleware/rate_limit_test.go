package middleware

import (
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

func rateLimitedApp(cache *redis.Client, max int) *fiber.App {
	app := fiber.New()
	app.Post("/login", RateLimit(cache, "login", max), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func postLogin(t *testing.T, app *fiber.App, email string) int {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, "/login", strings.NewReader(`{"email":"`+email+`"}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	return resp.StatusCode
}

func TestRateLimitRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cache.Close() })
	app := rateLimitedApp(cache, 2)

	for i := 0; i < 2; i++ {
		if status := postLogin(t, app, "a@x.com"); status != fiber.StatusOK {
			t.Fatalf("attempt %d: status %d", i, status)
		}
	}
	if status := postLogin(t, app, "a@x.com"); status != fiber.StatusTooManyRequests {
		t.Fatalf("expected %d got %d", fiber.StatusTooManyRequests, status)
	}
	if status := postLogin(t, app, "b@x.com"); status != fiber.StatusOK {
		t.Fatalf("other email limited: %d", status)
	}
	if ttl := mr.TTL("rl:login:a@x.com"); ttl <= 0 {
		t.Fatalf("expected counter expiry, got %v", ttl)
	}
}

func TestRateLimitFailsOpenOnCacheError(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cache.Close() })
	app := rateLimitedApp(cache, 1)
	mr.Close()

	for i := 0; i < 3; i++ {
		if status := postLogin(t, app, "a@x.com"); status != fiber.StatusOK {
			t.Fatalf("attempt %d: status %d", i, status)
		}
	}
}

func TestRateLimitInProcess(t *testing.T) {
	app := rateLimitedApp(nil, 3)

	for i := 0; i < 3; i++ {
		if status := postLogin(t, app, "a@x.com"); status != fiber.StatusOK {
			t.Fatalf("attempt %d: status %d", i, status)
		}
	}
	if status := postLogin(t, app, "a@x.com"); status != fiber.StatusTooManyRequests {
		t.Fatalf("expected %d got %d", fiber.StatusTooManyRequests, status)
	}
}

func TestLocalLimitersEvictIdleSubjects(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	limiters := newLocalLimiters(2, func() time.Time { return now })

	for i := 0; i < 100; i++ {
		limiters.allow(fmt.Sprintf("user%d@x.com", i))
	}
	if limiters.size() != 100 {
		t.Fatalf("expected 100 buckets, got %d", limiters.size())
	}

	now = now.Add(30 * time.Second)
	limiters.allow("active@x.com")
	if limiters.size() != 101 {
		t.Fatalf("sweep ran early: %d buckets", limiters.size())
	}

	now = now.Add(45 * time.Second)
	limiters.allow("active@x.com")
	if limiters.size() != 1 {
		t.Fatalf("expected only the active bucket to remain, got %d", limiters.size())
	}
}

func TestLocalLimitersKeepLimitWithinWindow(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	limiters := newLocalLimiters(2, func() time.Time { return now })

	if !limiters.allow("a@x.com") || !limiters.allow("a@x.com") {
		t.Fatal("first two attempts should pass")
	}
	if limiters.allow("a@x.com") {
		t.Fatal("third attempt within the window should be limited")
	}
	now = now.Add(time.Minute)
	if !limiters.allow("a@x.com") {
		t.Fatal("bucket should refill after a minute")
	}
}
