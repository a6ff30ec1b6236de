package yookassa

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/numera-app/numera-payments/internal/domain"
)

// VerifyWebhook checks the structural well-formedness of a YooKassa
// notification: a JSON object carrying type, event and object fields.
//
// This is not cryptographic authentication. YooKassa does not sign its
// deliveries; the caller is expected to establish provenance at the
// transport level.
// TODO: reject deliveries outside YooKassa's published IP ranges
// (185.71.76.0/27, 185.71.77.0/27, 77.75.153.0/25, 77.75.154.128/25)
// once the ingress layer exposes the client address.
func (p *Provider) VerifyWebhook(rawBody []byte, signatureHeader string) bool {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		return false
	}
	for _, field := range []string{"type", "event", "object"} {
		raw, ok := payload[field]
		if !ok || string(raw) == "null" {
			return false
		}
	}
	return true
}

// notification is the YooKassa webhook body: {type, event, object: {...}}.
type notification struct {
	Type   string `json:"type"`
	Event  string `json:"event"`
	Object struct {
		ID     string `json:"id"`
		Status string `json:"status"`
		Amount struct {
			Value    string `json:"value"`
			Currency string `json:"currency"`
		} `json:"amount"`
		Metadata map[string]string `json:"metadata"`
	} `json:"object"`
}

// ProcessWebhook maps a verified YooKassa notification onto the canonical
// PaymentResult. Pure, no I/O.
//
// YooKassa reports amounts as decimal major-unit strings ("123.45"); they
// are converted to integer minor units with half-away-from-zero rounding.
// The currency keeps YooKassa's uppercase casing.
func (p *Provider) ProcessWebhook(rawBody []byte) (*domain.PaymentResult, error) {
	var event notification
	if err := json.Unmarshal(rawBody, &event); err != nil {
		return nil, domain.NewPaymentError(domain.ErrUnsupportedEvent,
			"failed to parse YooKassa notification", "YOOKASSA_EVENT_PARSE_ERROR")
	}

	if event.Type != "notification" {
		return nil, domain.NewPaymentError(domain.ErrUnsupportedEvent,
			fmt.Sprintf("unsupported YooKassa notification type %q", event.Type),
			"YOOKASSA_UNSUPPORTED_TYPE")
	}

	var status domain.ResultStatus
	switch event.Event {
	case "payment.succeeded":
		status = domain.ResultCompleted
	case "payment.canceled":
		status = domain.ResultFailed
	case "payment.waiting_for_capture", "payment.pending":
		// Intermediate states must never be reported as final.
		return nil, domain.NewPaymentError(domain.ErrUnhandledStatus,
			fmt.Sprintf("unhandled YooKassa event %q", event.Event),
			"YOOKASSA_UNHANDLED_STATUS")
	default:
		return nil, domain.NewPaymentError(domain.ErrUnsupportedEvent,
			fmt.Sprintf("unsupported YooKassa event type %q", event.Event),
			"YOOKASSA_UNSUPPORTED_EVENT")
	}

	orderID := event.Object.Metadata["order_id"]
	if orderID == "" {
		return nil, domain.ErrMissingOrderID
	}

	amount, err := minorUnits(event.Object.Amount.Value)
	if err != nil {
		return nil, domain.NewPaymentError(domain.ErrUnhandledStatus,
			fmt.Sprintf("malformed YooKassa amount %q", event.Object.Amount.Value),
			"YOOKASSA_AMOUNT_ERROR")
	}

	return &domain.PaymentResult{
		OrderID:    orderID,
		Status:     status,
		Amount:     amount,
		Currency:   event.Object.Amount.Currency,
		ExternalID: event.Object.ID,
	}, nil
}

// minorUnits converts a decimal major-unit string to integer minor units,
// rounding half away from zero ("123.45" -> 12345).
func minorUnits(value string) (int64, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return 0, err
	}
	return d.Shift(2).Round(0).IntPart(), nil
}
