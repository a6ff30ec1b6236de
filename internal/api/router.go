package api

import (
	"github.com/gin-gonic/gin"
)

// SetupRouter configures the Gin router with all routes and middleware.
func SetupRouter(handler *Handler, ginMode string) *gin.Engine {
	gin.SetMode(ginMode)

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(CORSMiddleware())
	router.Use(RequestIDMiddleware())

	router.GET("/health", handler.Health)

	v1 := router.Group("/api/v1")
	{
		payments := v1.Group("/payments")
		{
			payments.POST("/checkout", handler.CreateCheckout)
		}
	}

	// Webhook endpoint, one route per provider. Called by the providers
	// themselves; trust is established by signature verification (or, for
	// providers without one, transport-level provenance), not by sessions.
	router.POST("/webhooks/:provider", handler.HandleWebhook)

	return router
}
