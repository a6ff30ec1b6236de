package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/numera-app/numera-payments/internal/domain"
)

type orderRecord struct {
	ID         string  `gorm:"primaryKey"`
	UserID     string  `gorm:"index;not null"`
	ServiceID  *string `gorm:"type:varchar(100)"`
	Amount     int64   `gorm:"not null"`
	Currency   string  `gorm:"type:varchar(3);not null"`
	Status     string  `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	ExternalID *string `gorm:"type:varchar(191)"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (orderRecord) TableName() string {
	return "orders"
}

// OrderStore implements domain.OrderStore over PostgreSQL.
type OrderStore struct {
	db *gorm.DB
}

// NewOrderStore creates an order store.
func NewOrderStore(db *gorm.DB) *OrderStore {
	return &OrderStore{db: db}
}

// GetByID loads an order, returning domain.ErrOrderNotFound when absent.
func (s *OrderStore) GetByID(ctx context.Context, orderID string) (*domain.Order, error) {
	var rec orderRecord
	err := s.db.WithContext(ctx).First(&rec, "id = ?", orderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	return rec.toDomain(), nil
}

// Transition conditionally moves an order out of its non-terminal state.
// The condition is enforced in the UPDATE itself, not by a prior read, so
// two concurrent deliveries for the same order cannot both claim it: the
// loser matches zero rows and gets claimed=false.
func (s *OrderStore) Transition(ctx context.Context, orderID string, status domain.OrderStatus, externalID string) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&orderRecord{}).
		Where("id = ? AND status <> ?", orderID, string(domain.OrderCompleted)).
		Updates(map[string]interface{}{
			"status":      string(status),
			"external_id": externalID,
			"updated_at":  time.Now(),
		})
	if res.Error != nil {
		return false, fmt.Errorf("failed to update order: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// CreatePending inserts a new pending order. Used by the checkout path.
func (s *OrderStore) CreatePending(ctx context.Context, order *domain.Order) error {
	rec := orderRecord{
		ID:        order.ID,
		UserID:    order.UserID,
		ServiceID: order.ServiceID,
		Amount:    order.Amount,
		Currency:  order.Currency,
		Status:    string(domain.OrderPending),
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

func (r *orderRecord) toDomain() *domain.Order {
	return &domain.Order{
		ID:         r.ID,
		UserID:     r.UserID,
		ServiceID:  r.ServiceID,
		Amount:     r.Amount,
		Currency:   r.Currency,
		Status:     domain.OrderStatus(r.Status),
		ExternalID: r.ExternalID,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}
