// Package auth issues and verifies the JWT tokens that carry the
// authenticated owner id. The layers below trust this id; no further
// ownership checks happen outside the handlers.
package auth

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const ownerIDLocal = "owner_id"

// IssueToken signs an HS256 token for the given owner id.
func IssueToken(secret []byte, ownerID int64, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"user_id": ownerID,
		"iat":     time.Now().Unix(),
	}
	if ttl > 0 {
		claims["exp"] = time.Now().Add(ttl).Unix()
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// Middleware validates the bearer token and stores the owner id in the
// request locals for handlers to read via OwnerID.
func Middleware(secret []byte) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get("Authorization")
		if header == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing token")
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
		}

		token, err := jwt.Parse(parts[1], func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fiber.NewError(fiber.StatusUnauthorized, "invalid token")
			}
			return secret, nil
		})
		if err != nil || !token.Valid {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
		}

		// Numeric claims decode as float64.
		raw, ok := claims["user_id"].(float64)
		if !ok || raw <= 0 {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
		}

		c.Locals(ownerIDLocal, int64(raw))
		return c.Next()
	}
}

// OwnerID returns the authenticated owner id placed by Middleware.
func OwnerID(c *fiber.Ctx) (int64, bool) {
	id, ok := c.Locals(ownerIDLocal).(int64)
	return id, ok && id > 0
}
