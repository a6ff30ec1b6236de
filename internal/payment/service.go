// Package payment implements the core business logic for payment processing.
// This is the service/use-case layer in Clean Architecture.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/numera-app/numera-payments/internal/domain"
)

// Service implements the payment business logic. It orchestrates between
// the provider factory (to create checkout sessions) and the order store
// (to reconcile webhook results).
type Service struct {
	factory   *Factory
	orders    domain.OrderStore
	purchases domain.PurchaseStore
}

// NewService creates a new payment service with the required dependencies.
func NewService(factory *Factory, orders domain.OrderStore, purchases domain.PurchaseStore) *Service {
	return &Service{
		factory:   factory,
		orders:    orders,
		purchases: purchases,
	}
}

// Factory exposes the provider factory for webhook routing.
func (s *Service) Factory() *Factory {
	return s.factory
}

// CreateCheckout validates the request, makes sure a pending order row
// exists for the later webhook to reconcile against, then selects the
// provider for the region and creates a redirect-based payment session.
func (s *Service) CreateCheckout(ctx context.Context, region domain.Region, req domain.SessionRequest) (*domain.PaymentSession, error) {
	if err := validateSessionRequest(req); err != nil {
		return nil, err
	}

	if err := s.ensureOrder(ctx, req); err != nil {
		return nil, err
	}

	provider := s.factory.ForRegion(region)
	session, err := provider.CreateSession(ctx, req)
	if err != nil {
		log.Printf("Failed to create %s session for order %s: %v", provider.Name(), req.OrderID, err)
		return nil, err
	}

	log.Printf("Created %s session %s for order %s, amount: %d %s",
		provider.Name(), session.ID, req.OrderID, req.Amount, req.Currency)

	return session, nil
}

// ensureOrder creates the pending order row when the surrounding platform
// has not created it yet. An existing order is left untouched.
func (s *Service) ensureOrder(ctx context.Context, req domain.SessionRequest) error {
	_, err := s.orders.GetByID(ctx, req.OrderID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrOrderNotFound) {
		return domain.NewPaymentError(domain.ErrStorage,
			fmt.Sprintf("failed to load order %s", req.OrderID), "ORDER_LOAD_ERROR")
	}

	order := &domain.Order{
		ID:       req.OrderID,
		UserID:   req.UserID,
		Amount:   req.Amount,
		Currency: req.Currency,
		Status:   domain.OrderPending,
	}
	if req.ServiceID != "" {
		serviceID := req.ServiceID
		order.ServiceID = &serviceID
	}
	if err := s.orders.CreatePending(ctx, order); err != nil {
		return domain.NewPaymentError(domain.ErrStorage,
			fmt.Sprintf("failed to create order %s", req.OrderID), "ORDER_CREATE_ERROR")
	}
	return nil
}

// Outcome describes what reconciliation did with a webhook result.
type Outcome struct {
	// AlreadyProcessed is true when the order was terminal before this
	// delivery (or another delivery claimed it first) and nothing was
	// mutated.
	AlreadyProcessed bool
}

// Reconcile applies a canonical webhook result to the referenced order.
//
// Redelivery is safe: an order already in a terminal state is never
// re-transitioned, and the store's conditional transition guarantees only
// one of two concurrent deliveries claims a pending order. A Purchase is
// created exactly once, when an order carrying a service id lands on
// COMPLETED.
func (s *Service) Reconcile(ctx context.Context, result *domain.PaymentResult) (Outcome, error) {
	order, err := s.orders.GetByID(ctx, result.OrderID)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			return Outcome{}, err
		}
		return Outcome{}, domain.NewPaymentError(domain.ErrStorage,
			fmt.Sprintf("failed to load order %s", result.OrderID), "ORDER_LOAD_ERROR")
	}

	if order.Terminal() {
		log.Printf("Order %s already processed, ignoring redelivery (external id %s)",
			order.ID, result.ExternalID)
		return Outcome{AlreadyProcessed: true}, nil
	}

	status := orderStatus(result.Status)

	if status == domain.OrderCompleted {
		auditResultMismatch(order, result)
	}

	claimed, err := s.orders.Transition(ctx, order.ID, status, result.ExternalID)
	if err != nil {
		return Outcome{}, domain.NewPaymentError(domain.ErrStorage,
			fmt.Sprintf("failed to transition order %s", order.ID), "ORDER_UPDATE_ERROR")
	}
	if !claimed {
		// Lost the race against a concurrent delivery of the same event.
		log.Printf("Order %s claimed by a concurrent delivery", order.ID)
		return Outcome{AlreadyProcessed: true}, nil
	}

	log.Printf("Order %s transitioned to %s (external id %s)", order.ID, status, result.ExternalID)

	if status == domain.OrderCompleted && order.ServiceID != nil {
		purchase := &domain.Purchase{
			ID:        uuid.NewString(),
			UserID:    order.UserID,
			ServiceID: *order.ServiceID,
			OrderID:   order.ID,
		}
		if err := s.purchases.Create(ctx, purchase); err != nil {
			return Outcome{}, domain.NewPaymentError(domain.ErrStorage,
				fmt.Sprintf("failed to create purchase for order %s", order.ID), "PURCHASE_CREATE_ERROR")
		}
		log.Printf("Created purchase %s: user %s, service %s, order %s",
			purchase.ID, purchase.UserID, purchase.ServiceID, purchase.OrderID)
	}

	return Outcome{}, nil
}

// orderStatus maps the canonical result status onto the order vocabulary.
func orderStatus(status domain.ResultStatus) domain.OrderStatus {
	if status == domain.ResultCompleted {
		return domain.OrderCompleted
	}
	return domain.OrderFailed
}

// auditResultMismatch logs when the provider reports an amount or currency
// that differs from the order. The order row stays the source of truth;
// this exists so operators notice schema or integration drift.
func auditResultMismatch(order *domain.Order, result *domain.PaymentResult) {
	if result.Amount != order.Amount {
		log.Printf("Order %s amount mismatch: order has %d, webhook reports %d",
			order.ID, order.Amount, result.Amount)
	}
	if !strings.EqualFold(result.Currency, order.Currency) {
		log.Printf("Order %s currency mismatch: order has %s, webhook reports %s",
			order.ID, order.Currency, result.Currency)
	}
}

func validateSessionRequest(req domain.SessionRequest) error {
	if req.Amount <= 0 {
		return domain.NewPaymentError(domain.ErrInvalidRequest,
			"amount must be greater than 0", "VALIDATION_ERROR")
	}
	if len(req.Currency) != 3 {
		return domain.NewPaymentError(domain.ErrInvalidRequest,
			"currency must be a 3-letter code", "VALIDATION_ERROR")
	}
	if req.OrderID == "" {
		return domain.NewPaymentError(domain.ErrInvalidRequest,
			"order_id is required", "VALIDATION_ERROR")
	}
	if req.UserID == "" {
		return domain.NewPaymentError(domain.ErrInvalidRequest,
			"user_id is required", "VALIDATION_ERROR")
	}
	return nil
}
