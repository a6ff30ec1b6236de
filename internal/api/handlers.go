// Package api contains the HTTP handlers and routing for the payments service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/numera-app/numera-payments/internal/domain"
	"github.com/numera-app/numera-payments/internal/payment"
)

// Handler contains the HTTP handlers for the payments API.
type Handler struct {
	paymentService *payment.Service
	events         domain.WebhookEventStore
}

// NewHandler creates a new API handler.
func NewHandler(paymentService *payment.Service, events domain.WebhookEventStore) *Handler {
	return &Handler{
		paymentService: paymentService,
		events:         events,
	}
}

// CheckoutRequest represents the JSON body for the checkout endpoint.
type CheckoutRequest struct {
	Amount      int64  `json:"amount" binding:"required,gt=0"`
	Currency    string `json:"currency" binding:"required,len=3"`
	UserID      string `json:"user_id" binding:"required"`
	OrderID     string `json:"order_id" binding:"required"`
	ServiceID   string `json:"service_id"`
	CountryCode string `json:"country_code"`
	Locale      string `json:"locale"`
}

// CheckoutResponse represents the response from the checkout endpoint.
type CheckoutResponse struct {
	Success   bool      `json:"success"`
	SessionID string    `json:"session_id"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// WebhookResponse is the JSON contract of the webhook endpoint. Providers
// key their retry policy off the status code, so the code classification
// matters more than the wording.
type WebhookResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// CreateCheckout handles POST /api/v1/payments/checkout.
// Selects the provider by the payer's region and returns the redirect URL.
func (h *Handler) CreateCheckout(c *gin.Context) {
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, WebhookResponse{
			Success: false,
			Error:   "Invalid request body: " + err.Error(),
		})
		return
	}

	region := payment.RegionFromCountry(req.CountryCode)
	session, err := h.paymentService.CreateCheckout(c.Request.Context(), region, domain.SessionRequest{
		Amount:    req.Amount,
		Currency:  req.Currency,
		UserID:    req.UserID,
		OrderID:   req.OrderID,
		ServiceID: req.ServiceID,
		Locale:    req.Locale,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, CheckoutResponse{
		Success:   true,
		SessionID: session.ID,
		URL:       session.URL,
		ExpiresAt: session.ExpiresAt,
	})
}

// HandleWebhook handles POST /webhooks/:provider.
//
// The delivery walks a fixed pipeline: read the raw body, check the
// provider's signature header, verify, normalize, reconcile. Trust
// failures answer 401, a missing order answers 400, internal failures
// answer 500 (providers retry on 5xx), and both fresh and redelivered
// reconciliations answer 200.
func (h *Handler) HandleWebhook(c *gin.Context) {
	provider := h.paymentService.Factory().ByName(c.Param("provider"))
	if provider == nil {
		c.JSON(http.StatusNotFound, WebhookResponse{
			Success: false,
			Error:   "Unknown payment provider",
		})
		return
	}

	// The raw bytes are what the provider signed; they must reach the
	// verifier without re-serialization.
	rawBody, err := c.GetRawData()
	if err != nil {
		log.Printf("Failed to read %s webhook body: %v", provider.Name(), err)
		c.JSON(http.StatusInternalServerError, WebhookResponse{
			Success: false,
			Error:   "Internal server error",
		})
		return
	}

	var signature string
	if header := provider.SignatureHeader(); header != "" {
		signature = c.GetHeader(header)
		if signature == "" {
			h.recordEvent(c.Request.Context(), provider.Name(), rawBody, false, "missing signature header")
			c.JSON(http.StatusUnauthorized, WebhookResponse{
				Success: false,
				Error:   "Missing signature header",
			})
			return
		}
	}

	if !provider.VerifyWebhook(rawBody, signature) {
		h.recordEvent(c.Request.Context(), provider.Name(), rawBody, false, "invalid signature")
		c.JSON(http.StatusUnauthorized, WebhookResponse{
			Success: false,
			Error:   "Invalid webhook signature",
		})
		return
	}

	result, err := provider.ProcessWebhook(rawBody)
	if err != nil {
		// The specific cause is logged and audited but never leaked.
		log.Printf("Failed to process %s webhook: %v", provider.Name(), err)
		h.recordEvent(c.Request.Context(), provider.Name(), rawBody, true, err.Error())
		c.JSON(http.StatusInternalServerError, WebhookResponse{
			Success: false,
			Error:   "Internal server error",
		})
		return
	}

	outcome, err := h.paymentService.Reconcile(c.Request.Context(), result)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			h.recordEvent(c.Request.Context(), provider.Name(), rawBody, true, "order not found")
			c.JSON(http.StatusBadRequest, WebhookResponse{
				Success: false,
				Error:   "Order not found",
			})
			return
		}
		log.Printf("Failed to reconcile %s webhook for order %s: %v", provider.Name(), result.OrderID, err)
		h.recordEvent(c.Request.Context(), provider.Name(), rawBody, true, err.Error())
		c.JSON(http.StatusInternalServerError, WebhookResponse{
			Success: false,
			Error:   "Internal server error",
		})
		return
	}

	h.recordEvent(c.Request.Context(), provider.Name(), rawBody, true, "")

	message := "Webhook processed successfully"
	if outcome.AlreadyProcessed {
		message = "Order already processed"
	}
	c.JSON(http.StatusOK, WebhookResponse{
		Success: true,
		Message: message,
	})
}

// Health handles GET /health.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "numera-payments",
	})
}

// recordEvent writes the delivery audit row. Best-effort: reconciliation
// must never fail because auditing did.
func (h *Handler) recordEvent(ctx context.Context, provider string, rawBody []byte, signatureValid bool, processingError string) {
	if h.events == nil {
		return
	}
	event := &domain.WebhookEvent{
		Provider:        provider,
		EventType:       eventType(rawBody),
		Payload:         rawBody,
		SignatureValid:  signatureValid,
		ProcessingError: processingError,
	}
	if err := h.events.Record(ctx, event); err != nil {
		log.Printf("Failed to record %s webhook event: %v", provider, err)
	}
}

// eventType pulls the event discriminator out of the payload for the audit
// row; a payload we cannot parse is recorded with an empty type.
func eventType(rawBody []byte) string {
	var probe struct {
		Type  string `json:"type"`
		Event string `json:"event"`
	}
	if err := json.Unmarshal(rawBody, &probe); err != nil {
		return ""
	}
	if probe.Event != "" {
		return probe.Event
	}
	return probe.Type
}

// handleServiceError maps domain errors to HTTP responses.
func handleServiceError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "Internal server error"

	var paymentErr *domain.PaymentError
	if errors.As(err, &paymentErr) {
		message = paymentErr.Message
		switch {
		case errors.Is(paymentErr.Err, domain.ErrInvalidRequest):
			status = http.StatusBadRequest
		case errors.Is(paymentErr.Err, domain.ErrProviderError):
			status = http.StatusBadGateway
		case errors.Is(paymentErr.Err, domain.ErrStorage), errors.Is(paymentErr.Err, domain.ErrInvalidConfig):
			status = http.StatusInternalServerError
		}
	}

	c.JSON(status, WebhookResponse{
		Success: false,
		Error:   message,
	})
}
