package routes

import (
	"shopcore/internal/adapters/http/handlers"
	"shopcore/internal/adapters/http/middleware"
	"shopcore/internal/adapters/payment"
	"shopcore/internal/adapters/persistence/repositories"
	"shopcore/internal/config"
	"shopcore/internal/core/services"
	"shopcore/internal/pkg/replay"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"gorm.io/gorm"
)

// Setup configures all routes for the application. It returns the
// notification service so the caller can hook the dispatch sweep onto
// the same instance the handlers use.
func Setup(app *fiber.App, db *gorm.DB, nonces replay.NonceStore, cfg *config.Config) *services.NotificationService {
	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	paymentRepo := repositories.NewPaymentRepository(db)
	notificationRepo := repositories.NewNotificationRepository(db)

	// Provider registry: sandbox is always available, the configured
	// processor joins it when a base URL is present
	providers := buildProviderRegistry(cfg)

	// Initialize services
	authService := services.NewAuthService(userRepo, cfg)
	notificationService := services.NewNotificationService(notificationRepo, services.NewChannelSenders(cfg), cfg)
	paymentService := services.NewPaymentService(paymentRepo, providers, nonces, notificationService, cfg)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler()
	authHandler := handlers.NewAuthHandler(authService, cfg)
	paymentHandler := handlers.NewPaymentHandler(paymentService, cfg)
	notificationHandler := handlers.NewNotificationHandler(notificationService, cfg)

	// Health check & root routes
	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.HealthCheck)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// API v1 group
	apiV1 := app.Group("/api/v1")

	// Webhook route (public, authenticated by its signature)
	apiV1.Post("/payments/webhook/:provider", middleware.WebhookRateLimiter(), paymentHandler.Webhook)

	// Auth routes
	authRoutes := apiV1.Group("/auth")
	setupAuthRoutes(authRoutes, authHandler, cfg)

	// Payment routes (authenticated)
	paymentRoutes := apiV1.Group("/payments")
	paymentRoutes.Use(middleware.AuthMiddleware(cfg))
	setupPaymentRoutes(paymentRoutes, paymentHandler)

	// Notification routes (authenticated)
	notificationRoutes := apiV1.Group("/notifications")
	notificationRoutes.Use(middleware.AuthMiddleware(cfg))
	setupNotificationRoutes(notificationRoutes, notificationHandler)

	return notificationService
}

// buildProviderRegistry wires the configured payment provider adapters
func buildProviderRegistry(cfg *config.Config) *payment.Registry {
	adapters := []payment.Provider{payment.NewSandbox()}

	if cfg.Payment.BaseURL != "" && cfg.Payment.Provider != payment.SandboxName {
		adapters = append(adapters, payment.NewHTTPProvider(
			cfg.Payment.Provider,
			cfg.Payment.BaseURL,
			cfg.Payment.APIKey,
		))
	}

	return payment.NewRegistry(adapters...)
}

// setupAuthRoutes configures authentication routes
func setupAuthRoutes(router fiber.Router, handler *handlers.AuthHandler, cfg *config.Config) {
	// Public routes (rate limited against brute force)
	router.Post("/register", middleware.AuthRateLimiter(), handler.Register)
	router.Post("/login", middleware.AuthRateLimiter(), handler.Login)
	router.Post("/refresh", middleware.AuthRateLimiter(), handler.RefreshToken)
	router.Post("/logout", handler.Logout)

	// Protected routes
	router.Get("/me", middleware.AuthMiddleware(cfg), handler.Me)
}

// setupPaymentRoutes configures payment routes
func setupPaymentRoutes(router fiber.Router, handler *handlers.PaymentHandler) {
	router.Post("/", handler.Initiate)
	router.Get("/", handler.List)
	router.Get("/:id", handler.Get)
	router.Post("/:id/cancel", handler.Cancel)

	// Refunds are an admin operation
	router.Post("/:id/refund", middleware.AdminOnly(), handler.Refund)
}

// setupNotificationRoutes configures notification routes
func setupNotificationRoutes(router fiber.Router, handler *handlers.NotificationHandler) {
	router.Get("/my", handler.List)
	router.Put("/:id/read", handler.MarkRead)

	// Manual enqueue is an admin operation
	router.Post("/", middleware.AdminOnly(), handler.Create)
}
