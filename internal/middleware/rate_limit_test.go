package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
)

type countingLimiter struct {
	limit   int
	seen    map[string]int
	liveCtx int
}

func (l *countingLimiter) Allow(ctx context.Context, key string) bool {
	if ctx != nil && ctx.Err() == nil {
		l.liveCtx++
	}
	l.seen[key]++
	return l.seen[key] <= l.limit
}

func TestRateLimit(t *testing.T) {
	limiter := &countingLimiter{limit: 1, seen: map[string]int{}}
	app := fiber.New()
	app.Use(RateLimit(limiter))
	app.Get("/", func(c fiber.Ctx) error { return c.SendString("ok") })

	first, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if first.StatusCode != http.StatusOK {
		t.Fatalf("first status = %d", first.StatusCode)
	}

	second, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if second.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("second status = %d", second.StatusCode)
	}
	if limiter.liveCtx != 2 {
		t.Fatalf("limiter should get the live request context, got %d of 2", limiter.liveCtx)
	}
	if len(limiter.seen) != 1 {
		t.Fatalf("expected a single client key, got %v", limiter.seen)
	}
}
