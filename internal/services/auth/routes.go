package auth

import "github.com/gofiber/fiber/v3"

// SetupRoutes registers the public login endpoint
func (s *AuthService) SetupRoutes(app fiber.Router) {
	app.Post("/api/auth/telegram", s.TelegramAuthHandler)
}

// SetupProtectedRoutes registers endpoints on the authenticated /api router
func (s *AuthService) SetupProtectedRoutes(api fiber.Router) {
	api.Get("/profile", s.Profile)
}
