package models

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// Roles. Informational only: no route checks them.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is a bookstore customer with the id lists this service maintains
type User struct {
	ID         uuid.UUID   `json:"id"`
	TelegramID int64       `json:"telegram_id,omitempty"`
	Username   string      `json:"username,omitempty"`
	FirstName  string      `json:"first_name,omitempty"`
	LastName   string      `json:"last_name,omitempty"`
	AvatarURL  string      `json:"avatar_url,omitempty"`
	Role       string      `json:"role"`
	Favourites []uuid.UUID `json:"favourites"`
	Cart       []uuid.UUID `json:"cart"`
	Orders     []uuid.UUID `json:"orders"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// HasFavourite reports whether bookID is in the user's favourites
func (u *User) HasFavourite(bookID uuid.UUID) bool {
	return slices.Contains(u.Favourites, bookID)
}

// TelegramProfile is the subset of Telegram init data stored on login
type TelegramProfile struct {
	TelegramID int64
	Username   string
	FirstName  string
	LastName   string
	PhotoURL   string
}
