package favourite

import (
	"errors"
	"log"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/rajivgeraev/bookstore-api/internal/config"
	"github.com/rajivgeraev/bookstore-api/internal/db"
	"github.com/rajivgeraev/bookstore-api/internal/middleware"
	"github.com/rajivgeraev/bookstore-api/internal/store"
	"github.com/rajivgeraev/bookstore-api/internal/telemetry"
)

const (
	msgAlreadyFavourite = "Book is already in favourite"
	msgAdded            = "Book added to favourite"
	msgRemoved          = "Book removed from favourite"
)

var tracer = otel.Tracer("services/favourite")

// FavouriteService handles a user's favourite books
type FavouriteService struct {
	cfg   *config.Config
	users store.UserStore
}

// NewFavouriteService creates a FavouriteService
func NewFavouriteService(cfg *config.Config, users store.UserStore) *FavouriteService {
	return &FavouriteService{
		cfg:   cfg,
		users: users,
	}
}

// requestIDs reads the acting user and the target book from the request headers.
// A non-empty problem is the message for a 400 response.
func requestIDs(c fiber.Ctx) (userID, bookID uuid.UUID, problem string) {
	rawUser := middleware.RequestUserID(c)
	rawBook := strings.TrimSpace(c.Get("bookid"))
	if rawUser == "" || rawBook == "" {
		return uuid.Nil, uuid.Nil, "Missing user ID or book ID."
	}
	userID, err := uuid.Parse(rawUser)
	if err != nil {
		return uuid.Nil, uuid.Nil, "Invalid user ID."
	}
	bookID, err = uuid.Parse(rawBook)
	if err != nil {
		return uuid.Nil, uuid.Nil, "Invalid book ID."
	}
	return userID, bookID, ""
}

// storeError renders a store failure: 404 for a missing user, 500 otherwise
func storeError(c fiber.Ctx, span trace.Span, op string, err error) error {
	span.RecordError(err)
	if errors.Is(err, store.ErrNotFound) {
		span.SetStatus(codes.Error, "user not found")
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "User not found"})
	}
	span.SetStatus(codes.Error, err.Error())
	log.Printf("%s: %v", op, err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"message": "Internal server error",
		"error":   err.Error(),
	})
}

// AddFavourite adds the book to the user's favourites. Adding twice is a no-op.
func (s *FavouriteService) AddFavourite(c fiber.Ctx) error {
	userID, bookID, problem := requestIDs(c)
	if problem != "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": problem})
	}

	ctx, cancel := db.GetContext()
	defer cancel()
	ctx, span := tracer.Start(ctx, "FavouriteService.AddFavourite", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.String("book.id", bookID.String()),
	))
	defer span.End()

	// Check whether the book is already there
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return storeError(c, span, "add favourite: load user", err)
	}
	if user.HasFavourite(bookID) {
		telemetry.FavouriteChanges.WithLabelValues("already").Inc()
		return c.JSON(fiber.Map{"message": msgAlreadyFavourite})
	}

	// Append to the set
	added, err := s.users.AddFavourite(ctx, userID, bookID)
	if err != nil {
		return storeError(c, span, "add favourite", err)
	}
	if !added {
		// Another request added it between the read and the update
		telemetry.FavouriteChanges.WithLabelValues("already").Inc()
		return c.JSON(fiber.Map{"message": msgAlreadyFavourite})
	}

	telemetry.FavouriteChanges.WithLabelValues("added").Inc()
	return c.JSON(fiber.Map{"message": msgAdded})
}

// RemoveFavourite removes the book from favourites. Removing an absent book still succeeds.
func (s *FavouriteService) RemoveFavourite(c fiber.Ctx) error {
	userID, bookID, problem := requestIDs(c)
	if problem != "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": problem})
	}

	ctx, cancel := db.GetContext()
	defer cancel()
	ctx, span := tracer.Start(ctx, "FavouriteService.RemoveFavourite", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.String("book.id", bookID.String()),
	))
	defer span.End()

	// Load the user so a missing account is reported
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return storeError(c, span, "remove favourite: load user", err)
	}
	if user.HasFavourite(bookID) {
		if err := s.users.RemoveFavourite(ctx, userID, bookID); err != nil {
			return storeError(c, span, "remove favourite", err)
		}
		telemetry.FavouriteChanges.WithLabelValues("removed").Inc()
	}

	return c.JSON(fiber.Map{"message": msgRemoved})
}

// ListFavourites returns the user's favourite books in the order they were added
func (s *FavouriteService) ListFavourites(c fiber.Ctx) error {
	rawUser := middleware.RequestUserID(c)
	userID, err := uuid.Parse(rawUser)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid user ID."})
	}

	ctx, cancel := db.GetContext()
	defer cancel()
	ctx, span := tracer.Start(ctx, "FavouriteService.ListFavourites", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	// Expand ids into books, keeping insertion order
	books, err := s.users.ListFavouriteBooks(ctx, userID)
	if err != nil {
		return storeError(c, span, "list favourites", err)
	}

	return c.JSON(fiber.Map{
		"status": "Success",
		"data":   books,
	})
}
