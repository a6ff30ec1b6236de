// Numera Payments Service
//
// This is the main entry point for the payment processing service.
// It wires up all dependencies and starts the HTTP server.
package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/numera-app/numera-payments/config"
	"github.com/numera-app/numera-payments/internal/api"
	"github.com/numera-app/numera-payments/internal/payment"
	"github.com/numera-app/numera-payments/internal/platform/postgres"
	"github.com/numera-app/numera-payments/internal/platform/stripe"
	"github.com/numera-app/numera-payments/internal/platform/yookassa"
)

func main() {
	log.Println("Starting Numera Payments Service...")

	// Load configuration
	cfg := config.Load()
	log.Printf("Configuration loaded: Port=%s, BaseURL=%s", cfg.Server.Port, cfg.BaseURL)

	if cfg.Database.DSN == "" {
		log.Fatal("Configuration error: DATABASE_URL is required")
	}

	// Wire up dependencies (manual dependency injection)
	//
	// Infrastructure Layer
	db, err := postgres.Open(cfg.Database.DSN)
	if err != nil {
		log.Fatalf("Database error: %v", err)
	}

	stripeProvider, err := stripe.NewProvider(stripe.Config{
		SecretKey:     cfg.Stripe.SecretKey,
		WebhookSecret: cfg.Stripe.WebhookSecret,
		APIURL:        cfg.Stripe.APIURL,
		BaseURL:       cfg.BaseURL,
	})
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	yookassaProvider, err := yookassa.NewProvider(yookassa.Config{
		ShopID:    cfg.YooKassa.ShopID,
		SecretKey: cfg.YooKassa.SecretKey,
		APIURL:    cfg.YooKassa.APIURL,
		BaseURL:   cfg.BaseURL,
	})
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	// Service Layer
	factory := payment.NewFactory(stripeProvider, yookassaProvider)
	paymentService := payment.NewService(
		factory,
		postgres.NewOrderStore(db),
		postgres.NewPurchaseStore(db),
	)

	// API Layer
	handler := api.NewHandler(paymentService, postgres.NewWebhookEventStore(db))
	router := api.SetupRouter(handler, cfg.Server.GinMode)

	// Start server in a goroutine
	serverAddr := fmt.Sprintf(":%s", cfg.Server.Port)
	go func() {
		log.Printf("Server listening on %s", serverAddr)
		if err := router.Run(serverAddr); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
}
