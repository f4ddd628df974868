package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"niucard/internal/config"
	"niucard/internal/database"
	"niucard/internal/handlers"
	"niucard/internal/repositories"
	"niucard/internal/services"
	"niucard/internal/storage"
	"niucard/pkg/rabbitmq"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/streadway/amqp"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	config.SetupLogging(cfg.LogLevel)

	// --- Repositories ---
	userRepo, cardRepo, err := openRepositories(cfg)
	if err != nil {
		log.Fatalf("Failed to open repositories: %v", err)
	}

	// --- Events (optional) ---
	var publisher services.EventPublisher
	if cfg.RabbitMQURL != "" {
		mqClient, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL})
		if err != nil {
			log.Fatalf("Failed to initialize RabbitMQ client: %v", err)
		}
		defer mqClient.Close()
		publisher = mqClient

		if err := mqClient.ConsumeCardEvents(logCardEvent); err != nil {
			log.Errorf("Failed to start card event consumer: %v", err)
		}
	} else {
		log.Info("RABBITMQ_URL not set, card events are disabled")
	}

	files := storage.NewFileStore(afero.NewOsFs(), cfg.UploadDir)
	authService := services.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTTTL)
	cardService := services.NewCardService(cardRepo, files, publisher)

	app := newApp(cfg, authService, cardService, files)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Infof("Starting server on port %s", cfg.AppPort)
		if err := app.Listen(cfg.AppPort); err != nil {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	<-quit
	log.Info("Shutting down server...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Errorf("Error during Fiber shutdown: %v", err)
	}
	log.Info("Server gracefully stopped")
}

func openRepositories(cfg *config.Config) (repositories.UserRepository, repositories.CardRepository, error) {
	if cfg.DatabaseDriver == "memory" {
		log.Warn("Using in-memory repositories; data is lost on restart")
		return repositories.NewMemoryUserRepository(), repositories.NewMemoryCardRepository(), nil
	}
	db, err := database.Open(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, nil, err
	}
	return repositories.NewGORMUserRepository(db), repositories.NewGORMCardRepository(db), nil
}

// newApp builds the Fiber app with middleware, API routes and the health check.
func newApp(cfg *config.Config, authService *services.AuthService, cardService *services.CardService, files *storage.FileStore) *fiber.App {
	app := fiber.New(fiber.Config{
		BodyLimit: 10 * 1024 * 1024,
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))
	app.Use(logger.New(logger.Config{Output: log.StandardLogger().Writer()}))

	handlers.Mount(app, authService, cardService, files)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	return app
}

// logCardEvent is the consumer for card lifecycle events.
func logCardEvent(msg amqp.Delivery) error {
	var ev services.CardEvent
	if err := json.Unmarshal(msg.Body, &ev); err != nil {
		return fmt.Errorf("malformed card event: %w", err)
	}
	log.WithFields(log.Fields{
		"type":    ev.Type,
		"card_id": ev.CardID,
		"user_id": ev.UserID,
	}).Info("card event received")
	return nil
}
