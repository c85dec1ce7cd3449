package models

import (
	"time"

	"github.com/google/uuid"
)

// Known order statuses. Status is free-form; these are the values the admin panel uses.
const (
	StatusOrderPlaced    = "Order Placed"
	StatusOutForDelivery = "Out for delivery"
	StatusDelivered      = "Delivered"
	StatusCanceled       = "Canceled"
)

// Order is one book bought by one user
type Order struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	BookID    uuid.UUID `json:"book_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Expanded references for API responses
	Book *Book `json:"book,omitempty"`
	User *User `json:"user,omitempty"`
}

// CartItem is one entry of a submitted order. The frontend sends the book document as is,
// only its _id is used.
type CartItem struct {
	BookID string `json:"_id"`
}

// PlaceOrderRequest is the body of the place-order endpoint
type PlaceOrderRequest struct {
	Order []CartItem `json:"order"`
}

// UpdateStatusRequest is the body of the update-status endpoint
type UpdateStatusRequest struct {
	Status string `json:"status"`
}
