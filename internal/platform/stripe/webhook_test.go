package stripe

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/numera-app/numera-payments/internal/domain"
)

func TestProcessWebhookCompletedSession(t *testing.T) {
	p := testProvider(t, "whsec_test")
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

	result, err := p.ProcessWebhook(body)
	require.NoError(t, err)

	assert.Equal(t, "order123", result.OrderID)
	assert.Equal(t, domain.ResultCompleted, result.Status)
	assert.Equal(t, int64(1000), result.Amount, "Stripe amounts are already minor units")
	assert.Equal(t, "usd", result.Currency, "provider casing preserved verbatim")
	assert.Equal(t, "cs_test_123", result.ExternalID)
}

func TestProcessWebhookExpiredSession(t *testing.T) {
	p := testProvider(t, "whsec_test")
	body := []byte(`{
		"id": "evt_2",
		"type": "checkout.session.expired",
		"data": {"object": {
			"id": "cs_test_456",
			"amount_total": 2500,
			"currency": "eur",
			"metadata": {"order_id": "order456"}
		}}
	}`)

	result, err := p.ProcessWebhook(body)
	require.NoError(t, err)
	assert.Equal(t, domain.ResultFailed, result.Status)
}

func TestProcessWebhookUnsupportedEventType(t *testing.T) {
	p := testProvider(t, "whsec_test")
	body := []byte(`{"id":"evt_3","type":"invoice.paid","data":{"object":{}}}`)

	result, err := p.ProcessWebhook(body)
	assert.Nil(t, result)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnsupportedEvent)
	assert.Contains(t, err.Error(), "invoice.paid", "error must name the received type")
}

func TestProcessWebhookUnpaidStatus(t *testing.T) {
	p := testProvider(t, "whsec_test")
	body := []byte(`{
		"id": "evt_4",
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": "cs_test_789",
			"payment_status": "unpaid",
			"metadata": {"order_id": "order789"}
		}}
	}`)

	result, err := p.ProcessWebhook(body)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, domain.ErrUnhandledStatus)
}

func TestProcessWebhookMissingOrderID(t *testing.T) {
	p := testProvider(t, "whsec_test")
	body := []byte(`{
		"id": "evt_5",
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": "cs_test_999",
			"payment_status": "paid",
			"metadata": {"user_id": "user123"}
		}}
	}`)

	result, err := p.ProcessWebhook(body)
	assert.Nil(t, result)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrMissingOrderID))
	assert.Equal(t, "Order ID not found in webhook metadata", err.Error())
}

func TestProcessWebhookMalformedBody(t *testing.T) {
	p := testProvider(t, "whsec_test")

	result, err := p.ProcessWebhook([]byte(`not json`))
	assert.Nil(t, result)
	assert.Error(t, err)
}
