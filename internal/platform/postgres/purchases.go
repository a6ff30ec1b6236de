package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/numera-app/numera-payments/internal/domain"
)

// purchaseRecord has a unique index on order_id as the schema-level
// backstop against double-creation under redelivery.
type purchaseRecord struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	UserID    string `gorm:"index;not null"`
	ServiceID string `gorm:"type:varchar(100);not null"`
	OrderID   string `gorm:"uniqueIndex;not null"`
	CreatedAt time.Time
}

func (purchaseRecord) TableName() string {
	return "purchases"
}

// PurchaseStore implements domain.PurchaseStore over PostgreSQL.
type PurchaseStore struct {
	db *gorm.DB
}

// NewPurchaseStore creates a purchase store.
func NewPurchaseStore(db *gorm.DB) *PurchaseStore {
	return &PurchaseStore{db: db}
}

// Create inserts a purchase record.
func (s *PurchaseStore) Create(ctx context.Context, p *domain.Purchase) error {
	rec := purchaseRecord{
		ID:        p.ID,
		UserID:    p.UserID,
		ServiceID: p.ServiceID,
		OrderID:   p.OrderID,
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("failed to create purchase: %w", err)
	}
	return nil
}
