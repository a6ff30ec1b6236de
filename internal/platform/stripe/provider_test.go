package stripe

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/numera-app/numera-payments/internal/domain"
)

func TestNewProviderRequiresSecretKey(t *testing.T) {
	_, err := NewProvider(Config{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestCreateSession(t *testing.T) {
	expiry := time.Now().Add(30 * time.Minute).Unix()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/checkout/sessions", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_123", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "payment", r.PostFormValue("mode"))
		assert.Equal(t, "usd", r.PostFormValue("line_items[0][price_data][currency]"))
		assert.Equal(t, "1999", r.PostFormValue("line_items[0][price_data][unit_amount]"))
		assert.Equal(t, "order123", r.PostFormValue("metadata[order_id]"))
		assert.Equal(t, "user123", r.PostFormValue("metadata[user_id]"))
		assert.Contains(t, r.PostFormValue("success_url"), "order_id=order123")

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{
			"id": "cs_test_123",
			"url": "https://checkout.stripe.com/c/pay/cs_test_123",
			"expires_at": %d
		}`, expiry)
	}))
	defer server.Close()

	p, err := NewProvider(Config{
		SecretKey: "sk_test_123",
		APIURL:    server.URL,
		BaseURL:   "https://numera.example",
	})
	require.NoError(t, err)

	session, err := p.CreateSession(context.Background(), domain.SessionRequest{
		Amount:   1999,
		Currency: "USD",
		UserID:   "user123",
		OrderID:  "order123",
	})
	require.NoError(t, err)

	assert.Equal(t, "cs_test_123", session.ID)
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_test_123", session.URL)
	assert.Equal(t, time.Unix(expiry, 0), session.ExpiresAt,
		"Unix-seconds expiry must be normalized at the boundary")
}

func TestCreateSessionSurfacesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"Invalid currency: xx"}}`))
	}))
	defer server.Close()

	p, err := NewProvider(Config{SecretKey: "sk_test_123", APIURL: server.URL})
	require.NoError(t, err)

	_, err = p.CreateSession(context.Background(), domain.SessionRequest{
		Amount:   100,
		Currency: "XXX",
		UserID:   "user123",
		OrderID:  "order123",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrProviderError)
	assert.Contains(t, err.Error(), "Invalid currency: xx")
}
