package order

import (
	"context"
	"errors"
	"log"
	"slices"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/rajivgeraev/bookstore-api/internal/config"
	"github.com/rajivgeraev/bookstore-api/internal/db"
	"github.com/rajivgeraev/bookstore-api/internal/events"
	"github.com/rajivgeraev/bookstore-api/internal/middleware"
	"github.com/rajivgeraev/bookstore-api/internal/models"
	"github.com/rajivgeraev/bookstore-api/internal/store"
	"github.com/rajivgeraev/bookstore-api/internal/telemetry"
)

var tracer = otel.Tracer("services/order")

// OrderService places orders and manages their status
type OrderService struct {
	cfg            *config.Config
	orders         store.OrderStore
	publisher      events.Publisher
	publishTimeout time.Duration
}

// defaultPublishTimeout bounds a single event write
const defaultPublishTimeout = 2 * time.Second

// NewOrderService creates an OrderService. A nil publisher drops events.
func NewOrderService(cfg *config.Config, orders store.OrderStore, publisher events.Publisher) *OrderService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &OrderService{
		cfg:            cfg,
		orders:         orders,
		publisher:      publisher,
		publishTimeout: defaultPublishTimeout,
	}
}

func internalError(c fiber.Ctx, span trace.Span, op string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	log.Printf("%s: %v", op, err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"message": "Internal server error",
		"error":   err.Error(),
	})
}

// publish sends order events, each under its own deadline detached from the request context.
// Failures are logged and counted, the request still succeeds.
func (s *OrderService) publish(ctx context.Context, batch ...events.OrderEvent) {
	base := context.WithoutCancel(ctx)
	for _, event := range batch {
		pubCtx, cancel := context.WithTimeout(base, s.publishTimeout)
		err := s.publisher.Publish(pubCtx, event.OrderID.String(), event)
		cancel()
		if err != nil {
			telemetry.EventPublishFailures.Inc()
			log.Printf("publish %s for order %s: %v", event.Type, event.OrderID, err)
		}
	}
}

// PlaceOrder creates one order per submitted item. Each item commits on its own:
// when an item fails, the items before it stay placed.
func (s *OrderService) PlaceOrder(c fiber.Ctx) error {
	// Parse the request body
	var req models.PlaceOrderRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid request body"})
	}

	// Check that both the user and the items are present
	rawUser := middleware.RequestUserID(c)
	if rawUser == "" || len(req.Order) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Missing user ID or order data."})
	}
	userID, err := uuid.Parse(rawUser)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid user ID."})
	}

	// Reject malformed ids before anything is written
	bookIDs := make([]uuid.UUID, 0, len(req.Order))
	for _, item := range req.Order {
		bookID, err := uuid.Parse(strings.TrimSpace(item.BookID))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid book ID."})
		}
		bookIDs = append(bookIDs, bookID)
	}

	ctx, cancel := db.GetContext()
	defer cancel()
	ctx, span := tracer.Start(ctx, "OrderService.PlaceOrder", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.Int("order.items", len(bookIDs)),
	))
	defer span.End()

	// Committed items are announced once the loop is over, including when a later item fails
	placed := make([]events.OrderEvent, 0, len(bookIDs))
	defer func() { s.publish(ctx, placed...) }()

	// One transaction per item
	for _, bookID := range bookIDs {
		order, err := s.orders.PlaceOrderItem(ctx, userID, bookID)
		if errors.Is(err, store.ErrNotFound) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "not found")
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "User or book not found."})
		}
		if err != nil {
			return internalError(c, span, "place order item", err)
		}

		telemetry.OrdersPlaced.Inc()
		placed = append(placed, events.OrderEvent{
			Type:       events.TypeOrderPlaced,
			OrderID:    order.ID,
			UserID:     order.UserID,
			BookID:     order.BookID,
			Status:     order.Status,
			OccurredAt: order.CreatedAt,
		})
	}

	return c.JSON(fiber.Map{
		"status":  "Success",
		"message": "Order placed successfully",
	})
}

// GetOrderHistory returns the user's orders, most recent first
func (s *OrderService) GetOrderHistory(c fiber.Ctx) error {
	rawUser := middleware.RequestUserID(c)
	if rawUser == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Missing user ID."})
	}
	userID, err := uuid.Parse(rawUser)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid user ID."})
	}

	ctx, cancel := db.GetContext()
	defer cancel()
	ctx, span := tracer.Start(ctx, "OrderService.GetOrderHistory", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	// Load orders in the order they were placed
	orders, err := s.orders.ListUserOrders(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		span.SetStatus(codes.Error, "user not found")
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "User not found or no orders."})
	}
	if err != nil {
		return internalError(c, span, "get order history", err)
	}

	// Newest first
	slices.Reverse(orders)

	return c.JSON(fiber.Map{
		"status": "Success",
		"data":   orders,
	})
}

// ListAllOrders returns every order, newest first
func (s *OrderService) ListAllOrders(c fiber.Ctx) error {
	ctx, cancel := db.GetContext()
	defer cancel()
	ctx, span := tracer.Start(ctx, "OrderService.ListAllOrders")
	defer span.End()

	orders, err := s.orders.ListAllOrders(ctx)
	if err != nil {
		return internalError(c, span, "list all orders", err)
	}
	span.SetAttributes(attribute.Int("order.count", len(orders)))

	return c.JSON(fiber.Map{
		"status": "Success",
		"data":   orders,
	})
}

// UpdateOrderStatus overwrites the order status. An unknown order id is not an error.
func (s *OrderService) UpdateOrderStatus(c fiber.Ctx) error {
	// Order id comes from the path
	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid order ID."})
	}

	// Any non-empty status is accepted
	var req models.UpdateStatusRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid request body"})
	}
	status := strings.TrimSpace(req.Status)
	if status == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Missing status."})
	}

	ctx, cancel := db.GetContext()
	defer cancel()
	ctx, span := tracer.Start(ctx, "OrderService.UpdateOrderStatus", trace.WithAttributes(
		attribute.String("order.id", orderID.String()),
		attribute.String("order.status", status),
	))
	defer span.End()

	changed, err := s.orders.UpdateOrderStatus(ctx, orderID, status)
	if err != nil {
		return internalError(c, span, "update order status", err)
	}

	// Only a real change is announced
	if changed {
		telemetry.OrderStatusUpdates.WithLabelValues("updated").Inc()
		s.publish(ctx, events.OrderEvent{
			Type:       events.TypeOrderStatusUpdated,
			OrderID:    orderID,
			Status:     status,
			OccurredAt: time.Now().UTC(),
		})
	} else {
		telemetry.OrderStatusUpdates.WithLabelValues("missing").Inc()
	}

	return c.JSON(fiber.Map{
		"status":  "Success",
		"message": "Status updated successfully",
	})
}
