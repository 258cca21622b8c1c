package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"encorecrm/ai"
	"encorecrm/config"
	"encorecrm/engine"
	"encorecrm/middleware"
	"encorecrm/routes"
	"encorecrm/utils"
	"encorecrm/worker"
)

func main() {
	// Initialize logger
	logger := log.New(os.Stdout, "ENCORE: ", log.Ldate|log.Ltime|log.Lshortfile)

	// Load configuration
	if err := config.LoadConfig(); err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Error reporting, only wired when a DSN is configured
	if dsn := config.AppConfig.SentryDSN; dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: dsn, Environment: config.AppConfig.Environment}); err != nil {
			logger.Printf("Sentry init failed: %v", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	// Initialize database connection
	if err := config.ConnectDB(); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Create Fiber app
	app := fiber.New()

	// Add CORS middleware
	app.Use(middleware.CORS())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Background engagement batches, sharing the same lease as the
	// manual trigger endpoint
	if config.AppConfig.Engagement.WorkerEnabled {
		engineLog := logrus.New().WithField("component", "engagement-worker")
		generator := ai.NewTieredGenerator(ai.Credentials{
			ai.ProviderGemini:   config.AppConfig.GeminiAPIKey,
			ai.ProviderOpenAI:   config.AppConfig.OpenAIAPIKey,
			ai.ProviderDeepSeek: config.AppConfig.DeepSeekAPIKey,
		}, engineLog)
		delivery := engine.NewDeliveryCoordinator(utils.NewMailer(&config.AppConfig), utils.NewSMSClient(&config.AppConfig), engineLog)
		orchestrator := engine.NewOrchestrator(config.DB, delivery, generator, engineLog)
		orchestrator.Selector.Config = engine.SelectorConfig{
			StalenessWindow: time.Duration(config.AppConfig.Engagement.StalenessWindowDays) * 24 * time.Hour,
			MaxFollowUps:    config.AppConfig.Engagement.MaxFollowUps,
		}

		engagementWorker := worker.NewEngagementWorker(
			orchestrator,
			utils.NewBatchLock(&config.AppConfig, 15*time.Minute),
			time.Duration(config.AppConfig.Engagement.BatchIntervalMins)*time.Minute,
			log.New(os.Stdout, "ENGAGE: ", log.LstdFlags),
		)
		go engagementWorker.Start(ctx)
	}

	// Reply detection over IMAP
	replyWorker := worker.NewReplyWorker(config.DB, config.AppConfig.IMAP, log.New(os.Stdout, "REPLY: ", log.LstdFlags))
	go replyWorker.Start(ctx)

	// Setup routes
	routes.SetupRoutes(app, config.DB)

	// Health check endpoint
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "running",
			"version": "1.0.0",
		})
	})

	// Start server
	logger.Printf("🚀 Server starting on port %s", config.AppConfig.ServerPort)
	if err := app.Listen(":" + config.AppConfig.ServerPort); err != nil {
		logger.Fatalf("Failed to start server: %v", err)
	}
}
