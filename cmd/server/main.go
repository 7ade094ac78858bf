package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shopcore/internal/adapters/http/middleware"
	"shopcore/internal/adapters/http/routes"
	"shopcore/internal/adapters/persistence/models"
	"shopcore/internal/config"
	"shopcore/internal/core/services"
	"shopcore/internal/pkg/replay"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	_ "shopcore/docs" // Swagger docs
)

// @title ShopCore API
// @version 1.0
// @description E-commerce backend: auth, payments and notifications
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email support@shopcore.local

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host api.shop.example.com
// @BasePath /api/v1
// @schemes https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load configuration: %v", err)
	}

	// Connect to database
	db, err := config.ConnectDatabase(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer config.CloseDatabase()

	// Auto migrate (creates tables if not exist)
	if err := models.AutoMigrate(db); err != nil {
		log.Fatalf("❌ Failed to auto migrate: %v", err)
	}
	log.Println("✅ Database migration completed")

	// Seed default admin user
	if err := config.NewSeeder(db).Run(); err != nil {
		log.Printf("⚠️ Warning: Failed to seed database: %v", err)
	}

	// Webhook replay guard: redis when configured, process memory otherwise
	nonces, closeNonces := buildNonceStore(cfg)
	defer closeNonces()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "ShopCore API v1.0",
		ErrorHandler: middleware.CustomErrorHandler,
	})

	// Setup middlewares
	middleware.Setup(app, cfg)

	// Setup routes (pass db and cfg for dependency injection)
	notificationService := routes.Setup(app, db, nonces, cfg)

	// Start the notification dispatch sweep
	dispatcher := services.NewDispatchService(notificationService, cfg)
	if err := dispatcher.Start(); err != nil {
		log.Fatalf("❌ Failed to start notification dispatcher: %v", err)
	}
	defer dispatcher.Stop()

	// Graceful shutdown
	go gracefulShutdown(app)

	// Start server
	log.Printf("🚀 Server starting on port %s [MODE: %s]", cfg.Port, cfg.AppMode)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}

// buildNonceStore picks the replay guard backend and returns it with its
// shutdown hook. A misconfigured redis address fails at startup, not on
// the first webhook.
func buildNonceStore(cfg *config.Config) (replay.NonceStore, func()) {
	if cfg.Redis.Addr == "" {
		log.Println("⚠️ REDIS_ADDR not set, webhook replay guard is process-local")
		return replay.NewMemoryNonceStore(), func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatalf("❌ Failed to connect to redis [%s]: %v", cfg.Redis.Addr, err)
	}

	log.Printf("✅ Webhook replay guard backed by redis [%s]", cfg.Redis.Addr)
	return replay.NewRedisNonceStore(client), func() {
		if err := client.Close(); err != nil {
			log.Printf("❌ Error closing redis client: %v", err)
		}
	}
}

// gracefulShutdown handles graceful shutdown
func gracefulShutdown(app *fiber.App) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("❌ Error during shutdown: %v", err)
	}
	log.Println("✅ Server stopped gracefully")
}
