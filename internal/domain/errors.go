package domain

import "errors"

// Domain errors - represent business rule violations.
var (
	// ErrInvalidConfig is returned when a provider is constructed without
	// its mandatory credentials.
	ErrInvalidConfig = errors.New("invalid provider configuration")

	// ErrInvalidRequest is returned for malformed checkout requests.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrProviderError is returned when an outbound provider call fails.
	ErrProviderError = errors.New("payment provider error")

	// ErrUnsupportedEvent is returned by normalization for event types
	// outside the supported set.
	ErrUnsupportedEvent = errors.New("unsupported webhook event type")

	// ErrMissingOrderID is returned when a webhook's metadata carries no
	// order correlation id.
	ErrMissingOrderID = errors.New("Order ID not found in webhook metadata")

	// ErrUnhandledStatus is returned when a provider reports a status that
	// does not map onto a terminal canonical outcome.
	ErrUnhandledStatus = errors.New("unhandled payment status")

	// ErrOrderNotFound is returned when a webhook references an order that
	// does not exist in this system.
	ErrOrderNotFound = errors.New("order not found")

	// ErrStorage is returned for persistence failures during reconciliation.
	ErrStorage = errors.New("storage error")
)

// PaymentError wraps a domain error with additional context.
type PaymentError struct {
	Err     error
	Message string
	Code    string
}

func (e *PaymentError) Error() string {
	if e.Message != "" {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

func (e *PaymentError) Unwrap() error {
	return e.Err
}

// NewPaymentError creates a new PaymentError.
func NewPaymentError(err error, message, code string) *PaymentError {
	return &PaymentError{Err: err, Message: message, Code: code}
}
