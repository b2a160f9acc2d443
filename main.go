package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/spf13/viper"
	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"catalog/internal/config"
	"catalog/internal/handlers"
	"catalog/internal/metrics"
	"catalog/internal/middleware"
	"catalog/internal/models"
	"catalog/internal/repositories"
	"catalog/internal/services"
	"catalog/pkg/rabbitmq"
)

func main() {
	// --- Configuration ---
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zapLogger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	app, cleanup, err := NewApp(cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to create app", zap.Error(err))
	}
	defer cleanup()

	// --- Start HTTP Server ---
	zapLogger.Info("Starting server", zap.String("port", cfg.AppPort))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := app.Listen(cfg.AppPort); err != nil {
			zapLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	<-quit
	zapLogger.Info("Shutting down server...")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		zapLogger.Error("Error during Fiber shutdown", zap.Error(err))
	}
	zapLogger.Info("Server gracefully stopped")
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	if cfg.Development() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// NewApp wires storage, events, services and handlers into a Fiber app.
// The returned cleanup releases the database and broker connections.
func NewApp(cfg config.Config, zapLogger *zap.Logger) (*fiber.App, func(), error) {
	db, err := repositories.OpenDatabase(cfg.DBDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	closers := []func(){func() { sqlDB.Close() }}
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	// --- Product events (optional) ---
	var publisher services.EventPublisher
	if cfg.RabbitMQURL != "" {
		mqClient, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL}, zapLogger)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		closers = append(closers, func() {
			if err := mqClient.Close(); err != nil {
				zapLogger.Warn("Error closing RabbitMQ client", zap.Error(err))
			}
		})
		if err := mqClient.ConsumeProductEvents(auditProductEvent(zapLogger)); err != nil {
			zapLogger.Warn("Failed to start product event consumer", zap.Error(err))
		}
		publisher = mqClient
	} else {
		zapLogger.Info("RABBITMQ_URL is empty, product events are disabled")
	}

	// --- Services ---
	productService := services.NewProductService(repositories.NewGORMProductRepository(db), publisher, zapLogger)
	authService := services.NewAuthService(services.AdminCredentials{
		Username:     cfg.AdminUsername,
		PasswordHash: cfg.AdminPasswordHash,
	}, cfg.JWTSecret, zapLogger)

	// --- Handlers ---
	productHandler := handlers.NewProductHandler(productService, zapLogger)
	authHandler := handlers.NewAuthHandler(authService, zapLogger)

	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": cfg.DBDriver,
			"events":   publisher != nil,
		})
	})
	app.Get("/metrics", metrics.Handler())

	apiV1 := app.Group("/api/v1")
	authHandler.RegisterRoutes(apiV1)
	productHandler.RegisterRoutes(apiV1, middleware.AuthRequired(authService, zapLogger))

	return app, cleanup, nil
}

// auditProductEvent logs every product event taken from the queue.
func auditProductEvent(zapLogger *zap.Logger) func(amqp.Delivery) error {
	return func(msg amqp.Delivery) error {
		var event models.ProductEvent
		if err := json.Unmarshal(msg.Body, &event); err != nil {
			return fmt.Errorf("decode product event %s: %w", msg.MessageId, err)
		}
		zapLogger.Info("Product event",
			zap.String("type", event.Type),
			zap.Uint("product_id", event.Product.ID),
			zap.String("name", event.Product.Name),
			zap.String("message_id", msg.MessageId),
			zap.Time("occurred_at", event.OccurredAt))
		return nil
	}
}
