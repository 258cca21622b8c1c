package routes

import (
	"log"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"encorecrm/ai"
	"encorecrm/config"
	controller "encorecrm/controllers"
	"encorecrm/engine"
	"encorecrm/middleware"
	"encorecrm/utils"
)

func SetupRoutes(app *fiber.App, db *gorm.DB) {
	// Health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	SetupAPIRoutes(app, db)

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "Not Found",
			"message": "The requested resource was not found",
		})
	})
}

func SetupAPIRoutes(app *fiber.App, db *gorm.DB) {
	cfg := &config.AppConfig

	engineLog := logrus.New().WithField("component", "engagement")
	generator := ai.NewTieredGenerator(ai.Credentials{
		ai.ProviderGemini:   cfg.GeminiAPIKey,
		ai.ProviderOpenAI:   cfg.OpenAIAPIKey,
		ai.ProviderDeepSeek: cfg.DeepSeekAPIKey,
	}, engineLog)

	mailer := utils.NewMailer(cfg)
	smsClient := utils.NewSMSClient(cfg)
	delivery := engine.NewDeliveryCoordinator(mailer, smsClient, engineLog)

	orchestrator := engine.NewOrchestrator(db, delivery, generator, engineLog)
	orchestrator.Selector.Config = engine.SelectorConfig{
		StalenessWindow: time.Duration(cfg.Engagement.StalenessWindowDays) * 24 * time.Hour,
		MaxFollowUps:    cfg.Engagement.MaxFollowUps,
	}

	batchLock := utils.NewBatchLock(cfg, 15*time.Minute)
	progressHub := controller.NewProgressHub()

	// Initialize controllers with their respective loggers
	leadController := controller.NewLeadController(db, log.New(os.Stdout, "LEAD: ", log.LstdFlags))
	quoteController := controller.NewQuoteController(db, mailer, generator, log.New(os.Stdout, "QUOTE: ", log.LstdFlags))
	templateController := controller.NewTemplateController(db, log.New(os.Stdout, "TEMPLATE: ", log.LstdFlags))
	settingsController := controller.NewSettingsController(db, log.New(os.Stdout, "SETTINGS: ", log.LstdFlags))
	engagementController := controller.NewEngagementController(orchestrator, batchLock, progressHub,
		log.New(os.Stdout, "ENGAGE: ", log.Ldate|log.Ltime|log.Lshortfile))
	authController := controller.NewAuthController(log.New(os.Stdout, "AUTH: ", log.LstdFlags))

	// Token minting sits outside the protected group
	app.Post("/api/v1/auth/token", authController.IssueToken)

	// API group with versioning and protection
	api := app.Group("/api/v1", middleware.Protected(), logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Lead routes
	lead := api.Group("/leads")
	lead.Post("/", leadController.CreateLead)
	lead.Get("/", leadController.GetLeads)
	lead.Get("/:id", leadController.GetLead)
	lead.Put("/:id", leadController.UpdateLead)
	lead.Delete("/:id", leadController.DeleteLead)
	lead.Post("/:id/quote", quoteController.SendQuote)

	// Template routes
	tpl := api.Group("/templates")
	tpl.Post("/", templateController.CreateTemplate)
	tpl.Get("/", templateController.GetTemplates)
	tpl.Put("/:id", templateController.UpdateTemplate)
	tpl.Delete("/:id", templateController.DeleteTemplate)

	// Settings routes
	settings := api.Group("/settings")
	settings.Get("/ai", settingsController.GetAISettings)
	settings.Put("/ai", settingsController.UpdateAISettings)

	// Engagement routes
	engagement := api.Group("/engagement")
	engagement.Post("/run", engagementController.RunBatch)
	engagement.Get("/recommendations", engagementController.GetRecommendations)

	// WebSocket route for live batch progress, behind the same token
	// guard as the rest of the API (browser clients send the cookie
	// on the upgrade request)
	engagement.Get("/progress", websocket.New(progressHub.HandleProgressWS))

	log.Println("API routes initialized successfully")
}
