package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/rajivgeraev/bookstore-api/internal/utils"
)

func newAuthApp(jwtService *utils.JWTService) *fiber.App {
	app := fiber.New()
	app.Get("/me", AuthMiddleware(jwtService), func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"user_id": GetUserID(c)})
	})
	return app
}

func TestAuthMiddleware(t *testing.T) {
	jwtService := utils.NewJWTService("secret")
	userID := uuid.New()
	valid, err := jwtService.GenerateToken(userID)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	notUUID, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "12345",
		"exp":     4102444800,
	}).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	cases := []struct {
		name       string
		header     string
		wantStatus int
		wantError  string
	}{
		{"missing header", "", http.StatusUnauthorized, "Missing authorization header"},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, "Invalid authorization header format"},
		{"garbage token", "Bearer abc", http.StatusUnauthorized, "Invalid or expired token"},
		{"non uuid subject", "Bearer " + notUUID, http.StatusUnauthorized, "Invalid user ID"},
		{"valid", "Bearer " + valid, http.StatusOK, ""},
	}

	app := newAuthApp(jwtService)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("request: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tc.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tc.wantStatus)
			}

			body, _ := io.ReadAll(resp.Body)
			var payload map[string]string
			if err := json.Unmarshal(body, &payload); err != nil {
				t.Fatalf("decode %s: %v", body, err)
			}
			if tc.wantError != "" && payload["error"] != tc.wantError {
				t.Fatalf("error = %q, want %q", payload["error"], tc.wantError)
			}
			if tc.wantStatus == http.StatusOK && payload["user_id"] != userID.String() {
				t.Fatalf("user_id = %q", payload["user_id"])
			}
		})
	}
}
