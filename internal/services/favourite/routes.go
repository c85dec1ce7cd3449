package favourite

import (
	"github.com/gofiber/fiber/v3"
)

// SetupRoutes registers the favourites routes. router must already run AuthMiddleware.
func (s *FavouriteService) SetupRoutes(router fiber.Router) {
	router.Put("/add-book-to-favourite", s.AddFavourite)
	router.Delete("/remove-book-from-favourite", s.RemoveFavourite)
	router.Get("/get-favourite-books", s.ListFavourites)
}
