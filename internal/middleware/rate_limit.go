package middleware

import (
	"context"

	"github.com/gofiber/fiber/v3"
)

// Limiter decides whether a request identified by key may proceed
type Limiter interface {
	Allow(ctx context.Context, key string) bool
}

// RateLimit rejects requests over the limiter quota, keyed by client IP
func RateLimit(limiter Limiter) fiber.Handler {
	return func(c fiber.Ctx) error {
		if !limiter.Allow(c.Context(), c.IP()) {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests",
			})
		}
		return c.Next()
	}
}
