package handlers

import (
	"niucard/internal/middleware"
	"niucard/internal/services"
	"niucard/internal/storage"

	"github.com/gofiber/fiber/v2"
)

// Mount wires every route on app. The public card read is registered before the
// authenticated /cards group so its middleware never sees it. Other /api paths
// are not behind auth and fall through to fiber's 404.
func Mount(app *fiber.App, authService *services.AuthService, cardService *services.CardService, files *storage.FileStore) {
	authHandler := NewAuthHandler(authService)
	cardHandler := NewCardHandler(cardService)
	staticHandler := NewStaticHandler(files)

	api := app.Group("/api")
	authHandler.RegisterRoutes(api)
	cardHandler.RegisterPublicRoutes(api)

	cards := api.Group("/cards", middleware.AuthRequired(authService))
	cardHandler.RegisterRoutes(cards)

	staticHandler.RegisterRoutes(app)
}
