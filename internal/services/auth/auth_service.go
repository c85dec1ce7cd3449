package auth

import (
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	initdata "github.com/telegram-mini-apps/init-data-golang"

	"github.com/rajivgeraev/bookstore-api/internal/config"
	"github.com/rajivgeraev/bookstore-api/internal/db"
	"github.com/rajivgeraev/bookstore-api/internal/middleware"
	"github.com/rajivgeraev/bookstore-api/internal/models"
	"github.com/rajivgeraev/bookstore-api/internal/store"
	"github.com/rajivgeraev/bookstore-api/internal/utils"
)

// initDataTTL is how long signed Telegram init data stays acceptable
const initDataTTL = 24 * time.Hour

// AuthService logs users in with Telegram Mini App init data
type AuthService struct {
	cfg        *config.Config
	users      store.UserStore
	jwtService *utils.JWTService
}

// NewAuthService creates an AuthService
func NewAuthService(cfg *config.Config, users store.UserStore, jwtService *utils.JWTService) *AuthService {
	return &AuthService{
		cfg:        cfg,
		users:      users,
		jwtService: jwtService,
	}
}

// TelegramAuthHandler validates initData, upserts the user and returns a JWT
func (s *AuthService) TelegramAuthHandler(c fiber.Ctx) error {
	var payload struct {
		InitData string `json:"init_data"`
	}

	if err := c.Bind().Body(&payload); err != nil || payload.InitData == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid request"})
	}

	if err := initdata.Validate(payload.InitData, s.cfg.TelegramBotToken, initDataTTL); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid Telegram data"})
	}

	data, err := initdata.Parse(payload.InitData)
	if err != nil || data.User.ID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Failed to parse initData"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	user, err := s.users.UpsertTelegramUser(ctx, models.TelegramProfile{
		TelegramID: data.User.ID,
		Username:   data.User.Username,
		FirstName:  data.User.FirstName,
		LastName:   data.User.LastName,
		PhotoURL:   data.User.PhotoURL,
	})
	if err != nil {
		log.Printf("telegram login: upsert user %d: %v", data.User.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Internal server error",
			"error":   err.Error(),
		})
	}

	jwtToken, err := s.jwtService.GenerateToken(user.ID)
	if err != nil {
		log.Printf("telegram login: generate token: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to generate JWT"})
	}

	return c.JSON(fiber.Map{
		"token": jwtToken,
		"user":  user,
	})
}

// Profile returns the authenticated user
func (s *AuthService) Profile(c fiber.Ctx) error {
	userID, err := uuid.Parse(middleware.GetUserID(c))
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	user, err := s.users.GetUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "User not found"})
	}
	if err != nil {
		log.Printf("profile %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Internal server error",
			"error":   err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"status":    "Success",
		"data":      user,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
