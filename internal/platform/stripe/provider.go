// Package stripe implements the domain.PaymentProvider interface against the
// Stripe Checkout API using its form-encoded HTTP surface.
package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/numera-app/numera-payments/internal/domain"
)

const (
	defaultAPIURL  = "https://api.stripe.com/v1"
	requestTimeout = 15 * time.Second
)

// Config holds the Stripe credentials and endpoints.
type Config struct {
	SecretKey     string
	WebhookSecret string
	APIURL        string // defaults to the public Stripe API
	BaseURL       string // public base URL used to build return URLs
}

// Provider implements domain.PaymentProvider for Stripe.
type Provider struct {
	cfg        Config
	httpClient *http.Client
}

// NewProvider creates a Stripe provider. The API secret key is mandatory.
// A missing webhook secret is tolerated at construction but disables
// webhook verification: every VerifyWebhook call will return false.
func NewProvider(cfg Config) (*Provider, error) {
	if strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, domain.NewPaymentError(domain.ErrInvalidConfig,
			"STRIPE_SECRET_KEY is required", "STRIPE_CONFIG_ERROR")
	}
	if cfg.APIURL == "" {
		cfg.APIURL = defaultAPIURL
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	if strings.TrimSpace(cfg.WebhookSecret) == "" {
		log.Println("Warning: STRIPE_WEBHOOK_SECRET not set, webhook verification disabled")
	}
	return &Provider{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
	}, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return "stripe"
}

// SignatureHeader returns the header Stripe signs its deliveries with.
func (p *Provider) SignatureHeader() string {
	return "Stripe-Signature"
}

// sessionResponse is the subset of the Checkout Session object we consume.
type sessionResponse struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	ExpiresAt int64  `json:"expires_at"` // Unix seconds
}

// errorResponse is Stripe's error envelope.
type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// CreateSession creates a Checkout Session and returns the redirect URL.
// Stripe reports session expiry as Unix seconds; it is normalized to a
// time.Time here, at the boundary, and nowhere else.
func (p *Provider) CreateSession(ctx context.Context, req domain.SessionRequest) (*domain.PaymentSession, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", p.cfg.BaseURL+"/payment/success?order_id="+url.QueryEscape(req.OrderID))
	form.Set("cancel_url", p.cfg.BaseURL+"/payment/cancel?order_id="+url.QueryEscape(req.OrderID))
	form.Set("line_items[0][quantity]", "1")
	form.Set("line_items[0][price_data][currency]", strings.ToLower(req.Currency))
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(req.Amount, 10))
	form.Set("line_items[0][price_data][product_data][name]", productName(req.ServiceID))
	form.Set("metadata[order_id]", req.OrderID)
	form.Set("metadata[user_id]", req.UserID)
	if req.ServiceID != "" {
		form.Set("metadata[service_id]", req.ServiceID)
	}
	if req.Locale != "" {
		form.Set("locale", req.Locale)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.cfg.APIURL+"/checkout/sessions", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.cfg.SecretKey)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, domain.NewPaymentError(domain.ErrProviderError,
			"failed to reach Stripe", "STRIPE_REQUEST_ERROR")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewPaymentError(domain.ErrProviderError,
			"failed to read Stripe response", "STRIPE_RESPONSE_ERROR")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp errorResponse
		msg := fmt.Sprintf("unexpected status %d", resp.StatusCode)
		if json.Unmarshal(body, &errResp) == nil && errResp.Error.Message != "" {
			msg = errResp.Error.Message
		}
		return nil, domain.NewPaymentError(domain.ErrProviderError, msg, "STRIPE_API_ERROR")
	}

	var session sessionResponse
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, domain.NewPaymentError(domain.ErrProviderError,
			"failed to decode Stripe session", "STRIPE_RESPONSE_ERROR")
	}
	if session.ID == "" || session.URL == "" {
		return nil, domain.NewPaymentError(domain.ErrProviderError,
			"Stripe session missing id or url", "STRIPE_RESPONSE_ERROR")
	}

	return &domain.PaymentSession{
		ID:        session.ID,
		URL:       session.URL,
		ExpiresAt: time.Unix(session.ExpiresAt, 0),
	}, nil
}

func productName(serviceID string) string {
	if serviceID == "" {
		return "Numera order"
	}
	return "Numera service: " + serviceID
}
