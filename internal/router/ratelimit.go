package router

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/finledger-app/backend/internal/auth"
	"github.com/finledger-app/backend/internal/config"
)

// RateLimitWrite limits mutating requests per authenticated user, falling
// back to the client IP before auth has run. Reads pass through.
func RateLimitWrite(cfg config.RateLimitConfig) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        cfg.WriteMax,
		Expiration: cfg.WriteWindow,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodGet
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			if id, ok := auth.OwnerID(c); ok {
				return strconv.FormatInt(id, 10)
			}
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "too_many_requests"})
		},
	})
}
