package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/rajivgeraev/bookstore-api/internal/utils"
)

// UserIDKey is the Locals key holding the authenticated user id
const UserIDKey = "userID"

// AuthMiddleware checks the Bearer JWT and stores the user id in Locals
func AuthMiddleware(jwtService *utils.JWTService) fiber.Handler {
	return func(c fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing authorization header",
			})
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid authorization header format",
			})
		}

		userID, err := jwtService.ExtractUserID(parts[1])
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		if _, err = uuid.Parse(userID); err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid user ID",
			})
		}

		c.Locals(UserIDKey, userID)

		return c.Next()
	}
}

// GetUserID returns the authenticated user id or "" outside AuthMiddleware
func GetUserID(c fiber.Ctx) string {
	userID, _ := c.Locals(UserIDKey).(string)
	return userID
}

// RequestUserID returns the acting user id: the "id" header when the client sends one,
// otherwise the authenticated user. The header is not checked against the token.
func RequestUserID(c fiber.Ctx) string {
	if id := strings.TrimSpace(c.Get("id")); id != "" {
		return id
	}
	return GetUserID(c)
}
