package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	"github.com/jonboulle/clockwork"

	"echonotes/config"
	"echonotes/dispatch"
	"echonotes/middleware"
	"echonotes/routes"
	"echonotes/utils"
	"echonotes/worker"
)

func main() {
	// Initialize logger
	logger := log.New(os.Stdout, "ECHONOTES: ", log.Ldate|log.Ltime|log.Lshortfile)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize Sentry when a DSN is configured
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.SentryDSN,
			Environment: cfg.Environment,
		}); err != nil {
			logger.Printf("Sentry initialization failed: %v", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	// Initialize database connection
	db, err := config.ConnectDB(cfg)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Create Fiber app
	app := fiber.New()

	// Add CORS middleware
	app.Use(middleware.CORS())

	// Initialize mail transport and dispatch engine
	mailer := utils.NewSMTPMailer(cfg.SMTP, cfg.FromName)
	engine := dispatch.NewEngine(db, mailer, clockwork.NewRealClock(),
		log.New(os.Stdout, "DISPATCH: ", log.LstdFlags), cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize and start the dispatch worker
	dispatchWorker := worker.NewDispatchWorker(engine, cfg.DispatchInterval,
		log.New(os.Stdout, "DISPATCH: ", log.LstdFlags))
	go dispatchWorker.Start(ctx)

	// Start the response collector
	responseWorker := worker.NewResponseWorker(db, cfg.IMAP,
		log.New(os.Stdout, "RESPONSE: ", log.LstdFlags))
	go responseWorker.Start(ctx, cfg.IMAPPollInterval)

	// Health check endpoint, registered before the 404 catch-all
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "running",
			"version": "1.0.0",
		})
	})

	// Setup routes
	routes.SetupRoutes(app, db, engine, cfg)

	// Start server
	logger.Printf("Server starting on port %s", cfg.ServerPort)
	if err := app.Listen(":" + cfg.ServerPort); err != nil {
		logger.Fatalf("Failed to start server: %v", err)
	}
}
