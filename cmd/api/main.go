package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"

	"github.com/rajivgeraev/bookstore-api/internal/config"
	"github.com/rajivgeraev/bookstore-api/internal/db"
	"github.com/rajivgeraev/bookstore-api/internal/events"
	"github.com/rajivgeraev/bookstore-api/internal/middleware"
	"github.com/rajivgeraev/bookstore-api/internal/ratelimit"
	"github.com/rajivgeraev/bookstore-api/internal/services/auth"
	"github.com/rajivgeraev/bookstore-api/internal/services/favourite"
	"github.com/rajivgeraev/bookstore-api/internal/services/order"
	"github.com/rajivgeraev/bookstore-api/internal/store"
	"github.com/rajivgeraev/bookstore-api/internal/telemetry"
	"github.com/rajivgeraev/bookstore-api/internal/utils"
)

const (
	serviceName    = "bookstore-api"
	serviceVersion = "0.1.0"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	if cfg.OTLPEndpoint != "" {
		shutdown, err := telemetry.InitTracerProvider(context.Background(), cfg.OTLPEndpoint, serviceName, serviceVersion)
		if err != nil {
			log.Fatalf("❌ Failed to init tracing: %v", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(ctx); err != nil {
				log.Printf("tracer shutdown: %v", err)
			}
		}()
	}

	st := openStore(cfg)
	if cfg.StoreDriver == "postgres" {
		defer db.CloseDB()
	}

	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.KafkaConfig.Brokers) > 0 {
		kafkaPublisher := events.NewKafkaPublisher(cfg.KafkaConfig.Brokers, cfg.KafkaConfig.Topic)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
		log.Printf("Publishing order events to %s", cfg.KafkaConfig.Topic)
	}

	app := fiber.New(fiber.Config{
		AppName:      "Bookstore API",
		ErrorHandler: errorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSAllowOrigins,
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "id", "bookid"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowCredentials: false,
	}))

	if cfg.RedisConfig.Addr != "" {
		limiter, err := ratelimit.NewFixedWindowLimiter(cfg.RedisConfig.Addr, cfg.RedisConfig.Password,
			cfg.RedisConfig.RatePrefix, cfg.RedisConfig.RateLimit, cfg.RedisConfig.RateWindow)
		if err != nil {
			log.Fatalf("❌ Failed to init rate limiter: %v", err)
		}
		defer limiter.Close()
		app.Use(middleware.RateLimit(limiter))
	}

	app.Get("/healthz", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", telemetry.MetricsHandler())

	jwtService := utils.NewJWTService(cfg.JWTSecret)
	authService := auth.NewAuthService(cfg, st, jwtService)
	favouriteService := favourite.NewFavouriteService(cfg, st)
	orderService := order.NewOrderService(cfg, st, publisher)

	// Public routes go first: the /api middleware below would otherwise guard them
	authService.SetupRoutes(app)

	api := app.Group("/api")
	api.Use(middleware.AuthMiddleware(jwtService))
	authService.SetupProtectedRoutes(api)

	v1 := api.Group("/v1")
	favouriteService.SetupRoutes(v1)
	orderService.SetupRoutes(v1)

	go func() {
		log.Printf("✅ Bookstore API listening on port %s", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatalf("❌ Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("server shutdown: %v", err)
	}
}

// openStore picks the storage backend named by STORE_DRIVER
func openStore(cfg *config.Config) store.Store {
	if cfg.StoreDriver == "memory" {
		log.Println("⚠️ Using in-memory store, data is lost on restart")
		return store.NewMemoryStore()
	}
	if err := db.InitDB(cfg); err != nil {
		log.Fatalf("❌ Failed to init database: %v", err)
	}
	return store.NewPostgresStore(db.Pool)
}

// errorHandler renders errors that reach Fiber as JSON
func errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
