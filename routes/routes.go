package routes

import (
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"gorm.io/gorm"

	"echonotes/config"
	controller "echonotes/controllers"
	"echonotes/dispatch"
	"echonotes/middleware"
)

func SetupRoutes(app *fiber.App, db *gorm.DB, engine *dispatch.Engine, cfg *config.Config) {
	// Initialize controllers with their respective loggers
	sequenceController := controller.NewSequenceController(db, log.New(os.Stdout, "SEQUENCE: ", log.LstdFlags))
	statsController := controller.NewStatsController(db, log.New(os.Stdout, "STATS: ", log.LstdFlags))
	responseController := controller.NewResponseController(db, log.New(os.Stdout, "RESPONSE: ", log.LstdFlags))
	trackingController := controller.NewTrackingController(db, log.New(os.Stdout, "TRACKING: ", log.LstdFlags))
	cronController := controller.NewCronController(engine, log.New(os.Stdout, "CRON: ", log.LstdFlags))

	// Setup health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Management API group
	api := app.Group("/api/v1", middleware.APIRateLimiter(cfg), logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	sequences := api.Group("/sequences")
	sequences.Post("/", sequenceController.CreateSequence)
	sequences.Get("/", sequenceController.GetSequences)
	sequences.Get("/:id", sequenceController.GetSequence)
	sequences.Put("/:id", sequenceController.UpdateSequence)
	sequences.Delete("/:id", sequenceController.DeleteSequence)

	api.Get("/stats", statsController.GetStats)
	api.Get("/responses", responseController.GetResponses)

	// The pixel endpoint sits outside the rate-limited group: a popular
	// sequence produces many legitimate fetches from one mail provider IP.
	app.Get("/api/open", trackingController.HandleOpenPixel)

	// Dispatch trigger for the external scheduler
	app.Get("/cron/send-emails", middleware.CronSecret(cfg.CronSecret), cronController.SendEmails)

	// Setup 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "Not Found",
			"message": "The requested resource was not found",
		})
	})

	log.Println("Routes initialized successfully")
}
