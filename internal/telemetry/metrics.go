package telemetry

import (
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// FavouriteChanges counts favourites mutations by action (added, already, removed)
	FavouriteChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bookstore",
		Name:      "favourite_changes_total",
		Help:      "Favourites add/remove requests by outcome.",
	}, []string{"action"})

	// OrdersPlaced counts committed order records
	OrdersPlaced = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "bookstore",
		Name:      "orders_placed_total",
		Help:      "Order records created.",
	})

	// OrderStatusUpdates counts status overwrites by whether a row changed
	OrderStatusUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bookstore",
		Name:      "order_status_updates_total",
		Help:      "Order status update requests by result.",
	}, []string{"result"})

	// EventPublishFailures counts events that could not be published
	EventPublishFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "bookstore",
		Name:      "event_publish_failures_total",
		Help:      "Order events that failed to publish.",
	})
)

// MetricsHandler serves the default Prometheus registry
func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
