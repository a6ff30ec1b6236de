package stripe

import (
	"encoding/json"
	"fmt"

	"github.com/numera-app/numera-payments/internal/domain"
)

// checkoutEvent is the subset of a Stripe event we consume:
// {id, type, data: {object: {...}}}.
type checkoutEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID            string            `json:"id"`
			AmountTotal   int64             `json:"amount_total"`
			Currency      string            `json:"currency"`
			PaymentStatus string            `json:"payment_status"`
			Metadata      map[string]string `json:"metadata"`
		} `json:"object"`
	} `json:"data"`
}

// ProcessWebhook maps a verified Stripe event onto the canonical
// PaymentResult. Pure, no I/O; the body must already be verified.
//
// Stripe reports amounts in minor units already, so amount_total passes
// through unchanged; the currency keeps Stripe's lowercase casing.
func (p *Provider) ProcessWebhook(rawBody []byte) (*domain.PaymentResult, error) {
	var event checkoutEvent
	if err := json.Unmarshal(rawBody, &event); err != nil {
		return nil, domain.NewPaymentError(domain.ErrUnsupportedEvent,
			"failed to parse Stripe event", "STRIPE_EVENT_PARSE_ERROR")
	}

	var status domain.ResultStatus
	switch event.Type {
	case "checkout.session.completed":
		// A completed session is only a success when Stripe confirms the
		// money moved; anything else is an intermediate state this handler
		// must not guess about.
		switch event.Data.Object.PaymentStatus {
		case "paid", "no_payment_required":
			status = domain.ResultCompleted
		default:
			return nil, domain.NewPaymentError(domain.ErrUnhandledStatus,
				fmt.Sprintf("unhandled Stripe payment status %q", event.Data.Object.PaymentStatus),
				"STRIPE_UNHANDLED_STATUS")
		}
	case "checkout.session.expired":
		status = domain.ResultFailed
	default:
		return nil, domain.NewPaymentError(domain.ErrUnsupportedEvent,
			fmt.Sprintf("unsupported Stripe event type %q", event.Type),
			"STRIPE_UNSUPPORTED_EVENT")
	}

	orderID := event.Data.Object.Metadata["order_id"]
	if orderID == "" {
		return nil, domain.ErrMissingOrderID
	}

	return &domain.PaymentResult{
		OrderID:    orderID,
		Status:     status,
		Amount:     event.Data.Object.AmountTotal,
		Currency:   event.Data.Object.Currency,
		ExternalID: event.Data.Object.ID,
	}, nil
}
