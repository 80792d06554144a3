package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/storefront/internal/address"
	"github.com/example/storefront/internal/config"
	"github.com/example/storefront/internal/handlers"
	"github.com/example/storefront/internal/middleware"
	"github.com/example/storefront/internal/services"
)

// Deps are the services the HTTP layer is built on.
type Deps struct {
	Config  *config.Config
	Users   *services.UserService
	Catalog *services.CatalogService
	Carts   *services.CartService
	Orders  *services.OrderService
	Address *address.Resolver
}

// Register wires up all HTTP routes.
func Register(app *fiber.App, deps Deps) {
	cfg := deps.Config

	authHandler := handlers.NewAuthHandler(deps.Users, cfg)
	profileHandler := handlers.NewProfileHandler(deps.Users)
	addressHandler := handlers.NewAddressHandler(deps.Address)
	catalogHandler := handlers.NewCatalogHandler(deps.Catalog)
	productHandler := handlers.NewProductHandler(deps.Catalog)
	cartHandler := handlers.NewCartHandler(deps.Carts)
	orderHandler := handlers.NewOrderHandler(deps.Orders)
	adminHandler := handlers.NewAdminHandler(deps.Orders, deps.Users)

	requireUser := middleware.AuthMiddleware(cfg.JWTSecret)
	requireAdmin := middleware.AdminMiddleware(cfg.AdminJWTSecret, deps.Users)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	api.Post("/admin/auth/login", authHandler.AdminLogin)

	// Address directory
	addr := api.Group("/address")
	addr.Get("/provinces", addressHandler.Provinces)
	addr.Get("/provinces/:code/districts", addressHandler.Districts)
	addr.Get("/districts/:code/wards", addressHandler.Wards)
	addr.Get("/options", addressHandler.Options)

	// Catalog routes
	api.Get("/categories", catalogHandler.ListCategories)

	products := api.Group("/products")
	products.Get("/", productHandler.ListProducts)
	products.Get("/flash-sale/active", productHandler.ActiveFlashSales)
	products.Get("/:id", productHandler.GetProduct)
	products.Get("/:id/availability", productHandler.Availability)

	// Protected routes
	me := api.Group("/me", requireUser)
	me.Get("/", profileHandler.GetProfile)
	me.Put("/", profileHandler.UpdateProfile)
	me.Put("/password", profileHandler.ChangePassword)

	cart := api.Group("/cart", requireUser)
	cart.Get("/", cartHandler.GetCart)
	cart.Get("/count", cartHandler.Count)
	cart.Post("/", cartHandler.Add)
	cart.Put("/:productId", cartHandler.Update)
	cart.Delete("/:productId", cartHandler.Remove)
	cart.Delete("/", cartHandler.Clear)

	orders := api.Group("/orders", requireUser)
	orders.Post("/", orderHandler.CreateOrder)
	orders.Get("/user", orderHandler.ListOrders)
	orders.Get("/momo-settings", orderHandler.MomoSettings)
	orders.Get("/:id", orderHandler.GetOrder)
	orders.Post("/:id/confirm-payment", orderHandler.ConfirmPayment)
	orders.Post("/:id/momo-confirm", orderHandler.MomoConfirm)
	orders.Put("/:id/cancel", orderHandler.CancelOrder)

	// Admin routes
	admin := api.Group("/admin", requireAdmin)
	admin.Get("/dashboard", adminHandler.DashboardStats)
	admin.Post("/categories", catalogHandler.CreateCategory)
	admin.Post("/products", productHandler.CreateProduct)
	admin.Put("/products/:id", productHandler.UpdateProduct)
	admin.Post("/flash-sales", productHandler.CreateFlashSale)
	admin.Get("/orders", adminHandler.ListAllOrders)
	admin.Get("/orders/:id", adminHandler.GetOrder)
	admin.Get("/orders/:id/transactions", adminHandler.OrderTransactions)
	admin.Put("/orders/:id/status", adminHandler.UpdateOrderStatus)
	admin.Put("/orders/:id/payment-status", adminHandler.UpdatePaymentStatus)
	admin.Put("/users/:id/role", adminHandler.UpdateUserRole)
}
