package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/numera-app/numera-payments/internal/domain"
)

// webhookEventRecord keeps the raw payload of every inbound delivery for
// audit and cross-referencing against provider dashboards.
type webhookEventRecord struct {
	ID              uint           `gorm:"primaryKey"`
	Provider        string         `gorm:"type:varchar(20);not null;index"`
	EventType       string         `gorm:"type:varchar(100);not null;index"`
	Payload         datatypes.JSON `gorm:"not null"`
	SignatureValid  bool           `gorm:"default:false"`
	ProcessingError string         `gorm:"type:text"`
	CreatedAt       time.Time      `gorm:"autoCreateTime;index"`
}

func (webhookEventRecord) TableName() string {
	return "webhook_events"
}

// WebhookEventStore implements domain.WebhookEventStore over PostgreSQL.
type WebhookEventStore struct {
	db *gorm.DB
}

// NewWebhookEventStore creates a webhook event store.
func NewWebhookEventStore(db *gorm.DB) *WebhookEventStore {
	return &WebhookEventStore{db: db}
}

// Record inserts an audit row for a delivery.
func (s *WebhookEventStore) Record(ctx context.Context, e *domain.WebhookEvent) error {
	rec := webhookEventRecord{
		Provider:        e.Provider,
		EventType:       e.EventType,
		Payload:         datatypes.JSON(e.Payload),
		SignatureValid:  e.SignatureValid,
		ProcessingError: e.ProcessingError,
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("failed to record webhook event: %w", err)
	}
	return nil
}
