// Package domain contains the core business entities and interfaces for the
// payments service. This is the innermost layer of the Clean Architecture -
// it has no dependencies on external frameworks or infrastructure.
package domain

import "time"

// Region identifies which payment provider serves a user.
type Region string

const (
	// RegionRU is served by YooKassa.
	RegionRU Region = "RU"
	// RegionOther is served by Stripe.
	RegionOther Region = "OTHER"
)

// ResultStatus is the canonical, provider-independent payment outcome.
// Only terminal outcomes exist here: intermediate provider states
// ("pending", "waiting_for_capture", ...) must never be normalized into
// a PaymentResult.
type ResultStatus string

const (
	ResultCompleted ResultStatus = "completed"
	ResultFailed    ResultStatus = "failed"
)

// OrderStatus is the persisted status vocabulary of an Order.
type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderCompleted OrderStatus = "COMPLETED"
	OrderFailed    OrderStatus = "FAILED"
)

// SessionRequest describes a checkout attempt to be created with a provider.
// Amount is a positive integer in minor currency units (cents, kopecks).
// UserID and OrderID are embedded into the provider's metadata so the later
// webhook can be traced back to the order.
type SessionRequest struct {
	Amount    int64
	Currency  string // 3-letter ISO 4217 code
	UserID    string
	OrderID   string
	ServiceID string // optional
	Locale    string // optional, provider hint only
}

// PaymentSession is the ephemeral result of creating a checkout session.
// It is consumed immediately to redirect the payer and never persisted.
type PaymentSession struct {
	ID        string    // provider-assigned session/payment identifier
	URL       string    // redirect target for the payer
	ExpiresAt time.Time // after this the session is void
}

// PaymentResult is the canonical outcome of a verified webhook event.
// It is constructed once per delivery by a provider's normalizer and
// consumed synchronously by order reconciliation.
type PaymentResult struct {
	OrderID    string
	Status     ResultStatus
	Amount     int64  // minor currency units
	Currency   string // provider casing preserved verbatim
	ExternalID string // provider-side transaction/session identifier
}

// Order is the persisted order record that reconciliation operates on.
// An order already in OrderCompleted is never re-transitioned by a later
// webhook delivery; that is the idempotency guarantee.
type Order struct {
	ID         string
	UserID     string
	ServiceID  *string
	Amount     int64
	Currency   string
	Status     OrderStatus
	ExternalID *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Terminal reports whether the order has reached a state that webhook
// redelivery must not mutate.
func (o *Order) Terminal() bool {
	return o.Status == OrderCompleted
}

// Purchase links a user to a service they paid for. Created exactly once,
// when an order carrying a service transitions to OrderCompleted.
type Purchase struct {
	ID        string
	UserID    string
	ServiceID string
	OrderID   string
	CreatedAt time.Time
}

// WebhookEvent is the audit record of a single inbound webhook delivery.
type WebhookEvent struct {
	ID              uint
	Provider        string
	EventType       string
	Payload         []byte
	SignatureValid  bool
	ProcessingError string
	CreatedAt       time.Time
}
