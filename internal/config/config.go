package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server configuration
	Port        string
	Mode        string
	ServiceName string
	LogLevel    string

	// Database configuration
	DatabaseURL string
	SQLitePath  string

	// Redis configuration (optional)
	RedisURL string

	// Validation marker key; empty falls back to the legacy encoding
	MarkerSecret string

	// Brevo email configuration
	BrevoAPIKey    string
	BrevoFromEmail string
	BrevoFromName  string

	// Subscription event webhook
	WebhookURL    string
	WebhookSecret string

	// Activation rate limiting
	ActivationMaxAttempts   int
	ActivationWindowMinutes int

	// Client entitlement behaviour
	ExpiryWarningDays    int
	AllowUnverifiedCodes bool
	StoreNamespace       string
}

var AppConfig *Config

// InitConfig loads configuration into AppConfig.
func InitConfig() error {
	AppConfig = Load()
	return nil
}

// Load reads .env (when present) and the process environment.
func Load() *Config {
	// A missing .env file is fine; the environment may already be set.
	_ = godotenv.Load()

	return &Config{
		Port:                    getEnv("PORT", "8080"),
		Mode:                    getEnv("GIN_MODE", "debug"),
		ServiceName:             getEnv("SERVICE_NAME", "Entitlement Service"),
		LogLevel:                getEnv("LOG_LEVEL", "info"),
		DatabaseURL:             getEnv("DATABASE_URL", ""),
		SQLitePath:              getEnv("SQLITE_PATH", "entitlement-api.db"),
		RedisURL:                getEnv("REDIS_URL", ""),
		MarkerSecret:            getEnv("MARKER_SECRET", ""),
		BrevoAPIKey:             getEnv("BREVO_API_KEY", ""),
		BrevoFromEmail:          getEnv("BREVO_FROM_EMAIL", ""),
		BrevoFromName:           getEnv("BREVO_FROM_NAME", "Travel Planner"),
		WebhookURL:              getEnv("WEBHOOK_URL", ""),
		WebhookSecret:           getEnv("WEBHOOK_SECRET", ""),
		ActivationMaxAttempts:   getEnvInt("ACTIVATION_MAX_ATTEMPTS", 5),
		ActivationWindowMinutes: getEnvInt("ACTIVATION_WINDOW_MINUTES", 15),
		ExpiryWarningDays:       getEnvInt("EXPIRY_WARNING_DAYS", 7),
		AllowUnverifiedCodes:    getEnvBool("ALLOW_UNVERIFIED_CODES", false),
		StoreNamespace:          getEnv("STORE_NAMESPACE", "subscription"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil && intValue > 0 {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
