package order

import "github.com/gofiber/fiber/v3"

// SetupRoutes registers order endpoints on a router that already runs auth
func (s *OrderService) SetupRoutes(router fiber.Router) {
	router.Post("/place-order", s.PlaceOrder)
	router.Get("/get-order-history", s.GetOrderHistory)
	router.Get("/get-all-orders", s.ListAllOrders)
	router.Post("/update-status/:id", s.UpdateOrderStatus)
}
