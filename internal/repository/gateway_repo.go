package repository

import (
	"context"
	"errors"
	"time"

	"github.com/kuyruklab/notify-engine/internal/domain"
	"gorm.io/gorm"
)

type GatewayConfigRepository interface {
	GetByOrganization(ctx context.Context, organizationID string) (*domain.GatewayConfig, error)
	UpdateStatus(ctx context.Context, organizationID string, status domain.GatewayStatus) error
}

type GormGatewayConfigRepo struct {
	db *gorm.DB
}

func NewGormGatewayConfigRepo(db *gorm.DB) *GormGatewayConfigRepo {
	return &GormGatewayConfigRepo{db: db}
}

func (r *GormGatewayConfigRepo) GetByOrganization(ctx context.Context, organizationID string) (*domain.GatewayConfig, error) {
	var model GatewayConfigModel
	err := r.db.WithContext(ctx).
		Where("organization_id = ?", organizationID).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, classifyStoreError(err)
	}

	return gatewayConfigModelToDomain(&model), nil
}

func (r *GormGatewayConfigRepo) UpdateStatus(ctx context.Context, organizationID string, status domain.GatewayStatus) error {
	now := time.Now().UTC()
	result := r.db.WithContext(ctx).
		Model(&GatewayConfigModel{}).
		Where("organization_id = ?", organizationID).
		Updates(map[string]any{
			"status":          status,
			"last_checked_at": now,
			"updated_at":      now,
		})
	if result.Error != nil {
		return classifyStoreError(result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
