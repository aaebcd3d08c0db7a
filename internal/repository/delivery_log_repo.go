package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/kuyruklab/notify-engine/internal/domain"
	"gorm.io/gorm"
)

// DeliveryLogRepository appends audit records for delivery attempts.
// Entries are never updated or deleted by the pipeline.
type DeliveryLogRepository interface {
	Create(ctx context.Context, e *domain.DeliveryLogEntry) error
}

type GormDeliveryLogRepo struct {
	db *gorm.DB
}

func NewGormDeliveryLogRepo(db *gorm.DB) *GormDeliveryLogRepo {
	return &GormDeliveryLogRepo{db: db}
}

func (r *GormDeliveryLogRepo) Create(ctx context.Context, e *domain.DeliveryLogEntry) error {
	model := deliveryLogModelFromDomain(e)
	if model == nil {
		return nil
	}
	if model.ID == "" {
		model.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return classifyStoreError(err)
	}
	if e != nil {
		e.ID = model.ID
		e.CreatedAt = model.CreatedAt
	}
	return nil
}
