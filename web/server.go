package web

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/coffeebliss/store"
	"github.com/coffeebliss/web/handlers"
)

// Server represents the web server
type Server struct {
	app *fiber.App
}

// NewServer creates a new Fiber server over the core components
func NewServer(h *handlers.Handler) *Server {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			if errors.Is(err, store.ErrUnknownUser) {
				code = fiber.StatusNotFound
			}

			log.Printf("ERROR [%s %s]: %v", c.Method(), c.Path(), err)

			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(recover.New())
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path} ${error}\n",
	}))

	setupRoutes(app, h)

	return &Server{app: app}
}

func setupRoutes(app *fiber.App, h *handlers.Handler) {
	api := app.Group("/api")

	// Users
	api.Post("/users", h.UpsertUser)
	api.Get("/users/:telegramID", h.GetUserProfile)
	api.Get("/users/:telegramID/orders", h.ListUserOrders)

	// Orders
	api.Post("/orders", h.PlaceOrder)
	api.Get("/orders/:id", h.GetOrder)
	api.Patch("/orders/:id/status", h.SetOrderStatus)

	// Menu
	api.Get("/categories", h.ListCategories)
	api.Get("/menu", h.ListMenuItems)

	// Loyalty (the mini-app calls /api/user/loyalty)
	api.Get("/user/loyalty", h.GetLoyalty)
	api.Post("/loyalty/redeem", h.RedeemPoints)
	api.Post("/loyalty/sync", h.SyncLoyalty)

	// Admin
	admin := api.Group("/admin")
	admin.Get("/stats", h.GetDailyStats)
	admin.Get("/loyalty/stats", h.GetLoyaltyStats)
	admin.Post("/menu/sync", h.SyncMenu)
	admin.Get("/menu/export", h.ExportMenu)
}

// Start starts the server on the given port
func (s *Server) Start(port string) error {
	log.Printf("Starting server on port %s", port)
	return s.app.Listen(":" + port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
