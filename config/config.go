// Package config handles loading and managing application configuration.
package config

import (
	"os"
)

// Config holds all configuration for the application.
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// Payment provider credentials
	Stripe   StripeConfig
	YooKassa YooKassaConfig

	// Public base URL used to build payment return URLs
	BaseURL string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port    string
	GinMode string // "debug", "release", or "test"
}

// DatabaseConfig holds the PostgreSQL connection settings.
type DatabaseConfig struct {
	DSN string
}

// StripeConfig holds Stripe API credentials.
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	APIURL        string
}

// YooKassaConfig holds YooKassa shop credentials.
type YooKassaConfig struct {
	ShopID    string
	SecretKey string
	APIURL    string
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:    getEnv("PORT", "8080"),
			GinMode: getEnv("GIN_MODE", "debug"),
		},
		Database: DatabaseConfig{
			DSN: getEnv("DATABASE_URL", ""),
		},
		Stripe: StripeConfig{
			SecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
			WebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
			APIURL:        getEnv("STRIPE_API_URL", ""),
		},
		YooKassa: YooKassaConfig{
			ShopID:    getEnv("YOOKASSA_SHOP_ID", ""),
			SecretKey: getEnv("YOOKASSA_SECRET_KEY", ""),
			APIURL:    getEnv("YOOKASSA_API_URL", ""),
		},
		BaseURL: getEnv("BASE_URL", "http://localhost:3000"),
	}
}

// getEnv retrieves an environment variable with a fallback default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
