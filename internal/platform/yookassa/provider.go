// Package yookassa implements the domain.PaymentProvider interface against
// the YooKassa Payments API.
//
// YooKassa embeds no cryptographic signature in its webhook deliveries.
// Trust must be anchored at the transport level by allow-listing YooKassa's
// published IP ranges in front of this service; VerifyWebhook only checks
// structural well-formedness of the payload.
package yookassa

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/numera-app/numera-payments/internal/domain"
)

const (
	defaultAPIURL  = "https://api.yookassa.ru/v3"
	requestTimeout = 15 * time.Second
)

// Config holds the YooKassa shop credentials and endpoints.
type Config struct {
	ShopID    string
	SecretKey string
	APIURL    string // defaults to the public YooKassa API
	BaseURL   string // public base URL used to build the return URL
}

// Provider implements domain.PaymentProvider for YooKassa.
type Provider struct {
	cfg        Config
	httpClient *http.Client
}

// NewProvider creates a YooKassa provider. Shop id and secret key are both
// mandatory; the same secret authenticates API calls, so unlike Stripe
// there is no softer webhook-only degradation.
func NewProvider(cfg Config) (*Provider, error) {
	if strings.TrimSpace(cfg.ShopID) == "" || strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, domain.NewPaymentError(domain.ErrInvalidConfig,
			"YOOKASSA_SHOP_ID and YOOKASSA_SECRET_KEY are required", "YOOKASSA_CONFIG_ERROR")
	}
	if cfg.APIURL == "" {
		cfg.APIURL = defaultAPIURL
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	return &Provider{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
	}, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return "yookassa"
}

// SignatureHeader returns "" - YooKassa sends no signature header and the
// webhook endpoint must not demand one.
func (p *Provider) SignatureHeader() string {
	return ""
}

// createPaymentRequest is the JSON body of POST /payments.
type createPaymentRequest struct {
	Amount       paymentAmount     `json:"amount"`
	Confirmation confirmation      `json:"confirmation"`
	Capture      bool              `json:"capture"`
	Description  string            `json:"description,omitempty"`
	Metadata     map[string]string `json:"metadata"`
}

type paymentAmount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

type confirmation struct {
	Type            string `json:"type"`
	ReturnURL       string `json:"return_url,omitempty"`
	ConfirmationURL string `json:"confirmation_url,omitempty"`
	Locale          string `json:"locale,omitempty"`
}

// createPaymentResponse is the subset of the payment object we consume.
type createPaymentResponse struct {
	ID           string       `json:"id"`
	Confirmation confirmation `json:"confirmation"`
	ExpiresAt    string       `json:"expires_at"` // ISO 8601
}

type apiError struct {
	Description string `json:"description"`
}

// CreateSession creates a redirect payment and returns the confirmation URL.
// YooKassa reports expiry as an ISO 8601 string; it is normalized to a
// time.Time here, at the boundary, and nowhere else.
func (p *Provider) CreateSession(ctx context.Context, req domain.SessionRequest) (*domain.PaymentSession, error) {
	metadata := map[string]string{
		"order_id": req.OrderID,
		"user_id":  req.UserID,
	}
	if req.ServiceID != "" {
		metadata["service_id"] = req.ServiceID
	}

	body := createPaymentRequest{
		Amount: paymentAmount{
			Value:    majorUnits(req.Amount),
			Currency: strings.ToUpper(req.Currency),
		},
		Confirmation: confirmation{
			Type:      "redirect",
			ReturnURL: p.cfg.BaseURL + "/payment/success?order_id=" + req.OrderID,
			Locale:    req.Locale,
		},
		Capture:     true,
		Description: "Numera order " + req.OrderID,
		Metadata:    metadata,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.cfg.APIURL+"/payments", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.SetBasicAuth(p.cfg.ShopID, p.cfg.SecretKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Idempotence-Key", idempotenceKey(req.OrderID))

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, domain.NewPaymentError(domain.ErrProviderError,
			"failed to reach YooKassa", "YOOKASSA_REQUEST_ERROR")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewPaymentError(domain.ErrProviderError,
			"failed to read YooKassa response", "YOOKASSA_RESPONSE_ERROR")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp apiError
		msg := fmt.Sprintf("unexpected status %d", resp.StatusCode)
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Description != "" {
			msg = errResp.Description
		}
		return nil, domain.NewPaymentError(domain.ErrProviderError, msg, "YOOKASSA_API_ERROR")
	}

	var payment createPaymentResponse
	if err := json.Unmarshal(respBody, &payment); err != nil {
		return nil, domain.NewPaymentError(domain.ErrProviderError,
			"failed to decode YooKassa payment", "YOOKASSA_RESPONSE_ERROR")
	}
	if payment.ID == "" || payment.Confirmation.ConfirmationURL == "" {
		return nil, domain.NewPaymentError(domain.ErrProviderError,
			"YooKassa payment missing id or confirmation url", "YOOKASSA_RESPONSE_ERROR")
	}

	var expiresAt time.Time
	if payment.ExpiresAt != "" {
		expiresAt, err = time.Parse(time.RFC3339, payment.ExpiresAt)
		if err != nil {
			return nil, domain.NewPaymentError(domain.ErrProviderError,
				"YooKassa payment has malformed expires_at", "YOOKASSA_RESPONSE_ERROR")
		}
	}

	return &domain.PaymentSession{
		ID:        payment.ID,
		URL:       payment.Confirmation.ConfirmationURL,
		ExpiresAt: expiresAt,
	}, nil
}

// majorUnits renders a minor-unit amount as YooKassa's decimal major-unit
// string ("12345" -> "123.45").
func majorUnits(minor int64) string {
	return decimal.NewFromInt(minor).Shift(-2).StringFixed(2)
}

// idempotenceKey derives a stable-per-attempt key so YooKassa can collapse
// accidental duplicate create calls.
func idempotenceKey(orderID string) string {
	sum := sha256.Sum256([]byte(orderID + strconv.FormatInt(time.Now().UnixNano(), 10)))
	return hex.EncodeToString(sum[:])
}
