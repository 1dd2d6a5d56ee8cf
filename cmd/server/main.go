package main

import (
	"log"
	"time"

	"entitlement-api/internal/api"
	"entitlement-api/internal/config"
	"entitlement-api/internal/database"
	"entitlement-api/internal/repository"
	"entitlement-api/internal/services"
	"entitlement-api/pkg/logging"

	"github.com/gin-gonic/gin"
)

func main() {
	// Initialize configuration
	if err := config.InitConfig(); err != nil {
		log.Fatal("Failed to initialize config:", err)
	}
	cfg := config.AppConfig

	// Initialize logging
	logging.InitLogging(cfg.Mode, cfg.LogLevel)

	// Initialize database
	conns, err := database.InitDatabase(cfg)
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer conns.Close()

	var mailer services.Mailer
	if brevo := services.NewBrevoService(cfg.BrevoAPIKey, cfg.BrevoFromEmail, cfg.BrevoFromName, cfg.ServiceName); brevo != nil {
		mailer = brevo
	} else {
		logging.Warnf("BREVO_API_KEY not set, access codes will not be emailed")
	}
	notifier := services.NewWebhookNotifier(cfg.WebhookURL, cfg.WebhookSecret)

	subscriptions := services.NewSubscriptionService(repository.NewGormRepository(conns.DB), mailer, notifier)
	limiter := services.NewRateLimiter(conns.Redis, cfg.ActivationMaxAttempts, time.Duration(cfg.ActivationWindowMinutes)*time.Minute)

	// Set Gin mode
	gin.SetMode(cfg.Mode)

	// Create Gin engine
	r := gin.Default()

	// Setup routes
	api.SetupRoutes(r, api.NewHandler(subscriptions, limiter, cfg.ServiceName))

	// Start server
	logging.Infof("Starting server on port %s", cfg.Port)

	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
