package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rajivgeraev/bookstore-api/internal/models"
)

// ErrNotFound is returned when a referenced user, book or order does not exist
var ErrNotFound = errors.New("not found")

// UserStore keeps users and the id lists attached to them.
// Membership changes must be atomic per user: implementations never rewrite a whole list.
type UserStore interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	// AddFavourite adds bookID to the favourites set. It reports false when the id was already there.
	AddFavourite(ctx context.Context, userID, bookID uuid.UUID) (bool, error)
	// RemoveFavourite pulls bookID from favourites. Removing an absent id is not an error.
	RemoveFavourite(ctx context.Context, userID, bookID uuid.UUID) error
	// ListFavouriteBooks expands favourites in insertion order, skipping ids without a book.
	ListFavouriteBooks(ctx context.Context, userID uuid.UUID) ([]models.Book, error)
	UpsertTelegramUser(ctx context.Context, profile models.TelegramProfile) (*models.User, error)
}

// OrderStore keeps order records
type OrderStore interface {
	// PlaceOrderItem creates one order for bookID, appends it to the user's orders and
	// removes bookID from the cart. The three steps commit or fail together.
	PlaceOrderItem(ctx context.Context, userID, bookID uuid.UUID) (*models.Order, error)
	// ListUserOrders returns the user's orders in stored order with books expanded.
	ListUserOrders(ctx context.Context, userID uuid.UUID) ([]models.Order, error)
	// ListAllOrders returns every order, newest first, with book and user expanded.
	ListAllOrders(ctx context.Context) ([]models.Order, error)
	// UpdateOrderStatus overwrites the status. It reports false when no order has that id.
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status string) (bool, error)
}

// Store is implemented by both backends
type Store interface {
	UserStore
	OrderStore
}
