package api

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/numera-app/numera-payments/internal/domain"
	"github.com/numera-app/numera-payments/internal/payment"
	"github.com/numera-app/numera-payments/internal/platform/stripe"
)

type fakeProvider struct {
	name          string
	header        string
	verifyResult  bool
	verifyCalled  bool
	processCalled bool
	processResult *domain.PaymentResult
	processErr    error
}

func (f *fakeProvider) Name() string            { return f.name }
func (f *fakeProvider) SignatureHeader() string { return f.header }

func (f *fakeProvider) CreateSession(ctx context.Context, req domain.SessionRequest) (*domain.PaymentSession, error) {
	return &domain.PaymentSession{ID: "sess_1", URL: "https://pay.example/sess_1", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (f *fakeProvider) VerifyWebhook(rawBody []byte, signatureHeader string) bool {
	f.verifyCalled = true
	return f.verifyResult
}

func (f *fakeProvider) ProcessWebhook(rawBody []byte) (*domain.PaymentResult, error) {
	f.processCalled = true
	return f.processResult, f.processErr
}

type fakeOrders struct {
	orders      map[string]*domain.Order
	transitions int
}

func (f *fakeOrders) GetByID(ctx context.Context, orderID string) (*domain.Order, error) {
	if order, ok := f.orders[orderID]; ok {
		copied := *order
		return &copied, nil
	}
	return nil, domain.ErrOrderNotFound
}

func (f *fakeOrders) CreatePending(ctx context.Context, order *domain.Order) error {
	if f.orders == nil {
		f.orders = map[string]*domain.Order{}
	}
	f.orders[order.ID] = order
	return nil
}

func (f *fakeOrders) Transition(ctx context.Context, orderID string, status domain.OrderStatus, externalID string) (bool, error) {
	order, ok := f.orders[orderID]
	if !ok || order.Status == domain.OrderCompleted {
		return false, nil
	}
	f.transitions++
	order.Status = status
	order.ExternalID = &externalID
	order.UpdatedAt = time.Now()
	return true, nil
}

type fakePurchases struct {
	created []*domain.Purchase
}

func (f *fakePurchases) Create(ctx context.Context, p *domain.Purchase) error {
	f.created = append(f.created, p)
	return nil
}

type fakeEvents struct {
	recorded []*domain.WebhookEvent
}

func (f *fakeEvents) Record(ctx context.Context, e *domain.WebhookEvent) error {
	f.recorded = append(f.recorded, e)
	return nil
}

type fixture struct {
	router    *gin.Engine
	provider  *fakeProvider
	orders    *fakeOrders
	purchases *fakePurchases
	events    *fakeEvents
}

func newFixture(provider *fakeProvider, orders *fakeOrders) *fixture {
	purchases := &fakePurchases{}
	events := &fakeEvents{}
	factory := payment.NewFactory(provider, &fakeProvider{name: "yookassa"})
	service := payment.NewService(factory, orders, purchases)
	handler := NewHandler(service, events)
	return &fixture{
		router:    SetupRouter(handler, gin.TestMode),
		provider:  provider,
		orders:    orders,
		purchases: purchases,
		events:    events,
	}
}

func serviceID(s string) *string {
	return &s
}

func postWebhook(router *gin.Engine, path string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) WebhookResponse {
	t.Helper()
	var resp WebhookResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestWebhookSuccessScenario(t *testing.T) {
	orders := &fakeOrders{orders: map[string]*domain.Order{
		"order123": {
			ID:        "order123",
			UserID:    "user123",
			ServiceID: serviceID("full_pythagorean"),
			Amount:    1000,
			Currency:  "usd",
			Status:    domain.OrderPending,
		},
	}}
	provider := &fakeProvider{
		name:         "stripe",
		header:       "Stripe-Signature",
		verifyResult: true,
		processResult: &domain.PaymentResult{
			OrderID:    "order123",
			Status:     domain.ResultCompleted,
			Amount:     1000,
			Currency:   "usd",
			ExternalID: "cs_test_123",
		},
	}
	fx := newFixture(provider, orders)

	rec := postWebhook(fx.router, "/webhooks/stripe", []byte(`{}`),
		map[string]string{"Stripe-Signature": "t=1,v1=abc"})

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, "Webhook processed successfully", resp.Message)

	order := orders.orders["order123"]
	assert.Equal(t, domain.OrderCompleted, order.Status)
	require.NotNil(t, order.ExternalID)
	assert.Equal(t, "cs_test_123", *order.ExternalID)

	require.Len(t, fx.purchases.created, 1)
	purchase := fx.purchases.created[0]
	assert.Equal(t, "user123", purchase.UserID)
	assert.Equal(t, "full_pythagorean", purchase.ServiceID)
	assert.Equal(t, "order123", purchase.OrderID)
}

func TestWebhookIdempotentRedelivery(t *testing.T) {
	externalID := "cs_test_123"
	orders := &fakeOrders{orders: map[string]*domain.Order{
		"order123": {
			ID:         "order123",
			UserID:     "user123",
			ServiceID:  serviceID("full_pythagorean"),
			Status:     domain.OrderCompleted,
			ExternalID: &externalID,
		},
	}}
	provider := &fakeProvider{
		name:         "stripe",
		header:       "Stripe-Signature",
		verifyResult: true,
		processResult: &domain.PaymentResult{
			OrderID:    "order123",
			Status:     domain.ResultCompleted,
			ExternalID: "cs_test_123",
		},
	}
	fx := newFixture(provider, orders)

	rec := postWebhook(fx.router, "/webhooks/stripe", []byte(`{}`),
		map[string]string{"Stripe-Signature": "t=1,v1=abc"})

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, "Order already processed", resp.Message)

	assert.Zero(t, orders.transitions, "redelivery must not mutate the order")
	assert.Empty(t, fx.purchases.created, "redelivery must not create a purchase")
}

func TestWebhookMissingSignatureHeader(t *testing.T) {
	provider := &fakeProvider{name: "stripe", header: "Stripe-Signature", verifyResult: true}
	fx := newFixture(provider, &fakeOrders{})

	rec := postWebhook(fx.router, "/webhooks/stripe", []byte(`{}`), nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	resp := decodeResponse(t, rec)
	assert.False(t, resp.Success)
	assert.Equal(t, "Missing signature header", resp.Error)

	assert.False(t, provider.verifyCalled, "verification must not run without a header")
	assert.False(t, provider.processCalled, "normalization must not run without a header")
}

func TestWebhookInvalidSignature(t *testing.T) {
	provider := &fakeProvider{name: "stripe", header: "Stripe-Signature", verifyResult: false}
	fx := newFixture(provider, &fakeOrders{})

	rec := postWebhook(fx.router, "/webhooks/stripe", []byte(`{}`),
		map[string]string{"Stripe-Signature": "t=1,v1=bogus"})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, "Invalid webhook signature", resp.Error)
	assert.False(t, provider.processCalled)
}

func TestWebhookNormalizationError(t *testing.T) {
	provider := &fakeProvider{
		name:         "stripe",
		header:       "Stripe-Signature",
		verifyResult: true,
		processErr: domain.NewPaymentError(domain.ErrUnsupportedEvent,
			`unsupported Stripe event type "invoice.paid"`, "STRIPE_UNSUPPORTED_EVENT"),
	}
	fx := newFixture(provider, &fakeOrders{})

	rec := postWebhook(fx.router, "/webhooks/stripe", []byte(`{}`),
		map[string]string{"Stripe-Signature": "t=1,v1=abc"})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, "Internal server error", resp.Error,
		"the specific cause is logged, never leaked")

	require.Len(t, fx.events.recorded, 1)
	assert.Contains(t, fx.events.recorded[0].ProcessingError, "invoice.paid")
}

func TestWebhookOrderNotFound(t *testing.T) {
	provider := &fakeProvider{
		name:         "stripe",
		header:       "Stripe-Signature",
		verifyResult: true,
		processResult: &domain.PaymentResult{
			OrderID: "ghost",
			Status:  domain.ResultCompleted,
		},
	}
	fx := newFixture(provider, &fakeOrders{})

	rec := postWebhook(fx.router, "/webhooks/stripe", []byte(`{}`),
		map[string]string{"Stripe-Signature": "t=1,v1=abc"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	assert.False(t, resp.Success)
	assert.Equal(t, "Order not found", resp.Error)
}

func TestWebhookUnknownProvider(t *testing.T) {
	fx := newFixture(&fakeProvider{name: "stripe", header: "Stripe-Signature"}, &fakeOrders{})

	rec := postWebhook(fx.router, "/webhooks/paypal", []byte(`{}`), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWebhookNoHeaderRequiredForYooKassaStyleProvider(t *testing.T) {
	orders := &fakeOrders{orders: map[string]*domain.Order{
		"order456": {ID: "order456", UserID: "user456", Status: domain.OrderPending},
	}}
	provider := &fakeProvider{
		name:         "yookassa",
		header:       "", // no signature header exists for this provider
		verifyResult: true,
		processResult: &domain.PaymentResult{
			OrderID:    "order456",
			Status:     domain.ResultCompleted,
			ExternalID: "p1",
		},
	}
	purchases := &fakePurchases{}
	factory := payment.NewFactory(&fakeProvider{name: "stripe", header: "Stripe-Signature"}, provider)
	service := payment.NewService(factory, orders, purchases)
	router := SetupRouter(NewHandler(service, &fakeEvents{}), gin.TestMode)

	rec := postWebhook(router, "/webhooks/yookassa", []byte(`{}`), nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, provider.verifyCalled, "structural verification still runs")
}

// TestWebhookEndToEndWithStripeVerifier drives a genuinely signed payload
// through the full router with the real Stripe provider in place.
func TestWebhookEndToEndWithStripeVerifier(t *testing.T) {
	stripeProvider, err := stripe.NewProvider(stripe.Config{
		SecretKey:     "sk_test_123",
		WebhookSecret: "whsec_test",
		BaseURL:       "https://numera.example",
	})
	require.NoError(t, err)

	orders := &fakeOrders{orders: map[string]*domain.Order{
		"order123": {
			ID:        "order123",
			UserID:    "user123",
			ServiceID: serviceID("full_pythagorean"),
			Amount:    1000,
			Currency:  "usd",
			Status:    domain.OrderPending,
		},
	}}
	purchases := &fakePurchases{}
	factory := payment.NewFactory(stripeProvider, &fakeProvider{name: "yookassa"})
	service := payment.NewService(factory, orders, purchases)
	router := SetupRouter(NewHandler(service, &fakeEvents{}), gin.TestMode)

	body := []byte(`{
		"id": "evt_1",
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": "cs_test_123",
			"amount_total": 1000,
			"currency": "usd",
			"payment_status": "paid",
			"metadata": {"order_id": "order123", "user_id": "user123"}
		}}
	}`)

	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte("whsec_test"))
	mac.Write([]byte(strconv.FormatInt(ts, 10)))
	mac.Write([]byte("."))
	mac.Write(body)
	header := fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))

	rec := postWebhook(router, "/webhooks/stripe", body,
		map[string]string{"Stripe-Signature": header})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.OrderCompleted, orders.orders["order123"].Status)
	require.Len(t, purchases.created, 1)
}

func TestCreateCheckoutEndpoint(t *testing.T) {
	fx := newFixture(&fakeProvider{name: "stripe", header: "Stripe-Signature"}, &fakeOrders{})

	body := []byte(`{
		"amount": 1999,
		"currency": "USD",
		"user_id": "user123",
		"order_id": "order123",
		"service_id": "full_pythagorean",
		"country_code": "US"
	}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/checkout", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp CheckoutResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "sess_1", resp.SessionID)
	assert.Equal(t, "https://pay.example/sess_1", resp.URL)

	_, ok := fx.orders.orders["order123"]
	assert.True(t, ok, "checkout creates the pending order row")
}

func TestCreateCheckoutRejectsBadBody(t *testing.T) {
	fx := newFixture(&fakeProvider{name: "stripe", header: "Stripe-Signature"}, &fakeOrders{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/checkout",
		bytes.NewReader([]byte(`{"amount": -5}`)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	fx := newFixture(&fakeProvider{name: "stripe", header: "Stripe-Signature"}, &fakeOrders{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
