package domain

import "context"

// PaymentProvider is the capability set every payment provider implements.
// This is a "port" in hexagonal architecture - the domain defines what it
// needs, and infrastructure provides the implementation. Adding a provider
// means implementing this interface and extending the factory's selection
// function; no other component changes.
type PaymentProvider interface {
	// Name returns the provider's short identifier ("stripe", "yookassa").
	Name() string

	// SignatureHeader returns the HTTP header carrying the webhook
	// signature, or "" when the provider embeds no signature and the
	// endpoint must not demand one.
	SignatureHeader() string

	// CreateSession creates a redirect-based checkout session with the
	// provider. One outbound HTTP call; a non-2xx response surfaces the
	// provider's error message.
	CreateSession(ctx context.Context, req SessionRequest) (*PaymentSession, error)

	// VerifyWebhook checks the authenticity/freshness of an inbound
	// delivery. It operates on the exact raw bytes the provider signed;
	// the body must never be re-serialized before this call.
	VerifyWebhook(rawBody []byte, signatureHeader string) bool

	// ProcessWebhook maps a verified delivery onto the canonical
	// PaymentResult. Pure, no I/O.
	ProcessWebhook(rawBody []byte) (*PaymentResult, error)
}

// OrderStore is the persistence port for orders.
type OrderStore interface {
	// GetByID returns ErrOrderNotFound when no order exists.
	GetByID(ctx context.Context, orderID string) (*Order, error)

	// CreatePending inserts a new order in the PENDING state.
	CreatePending(ctx context.Context, order *Order) error

	// Transition conditionally moves an order out of its non-terminal
	// state, setting status and external id. It returns false when the
	// order was already terminal (or another delivery claimed it first);
	// a false return performs no mutation.
	Transition(ctx context.Context, orderID string, status OrderStatus, externalID string) (bool, error)
}

// PurchaseStore is the persistence port for purchases.
type PurchaseStore interface {
	Create(ctx context.Context, p *Purchase) error
}

// WebhookEventStore records inbound deliveries for audit. Implementations
// must not make reconciliation depend on audit success.
type WebhookEventStore interface {
	Record(ctx context.Context, e *WebhookEvent) error
}
