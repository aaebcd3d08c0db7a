package repository

import (
	"context"
	"errors"

	"github.com/kuyruklab/notify-engine/internal/domain"
	"gorm.io/gorm"
)

// OrgTemplate is an organization's custom template for one
// notification-type/channel combination.
type OrgTemplate struct {
	Title string
	Body  string
	Icon  string
}

type TemplateRepository interface {
	// Find returns (nil, nil) when the organization has no override.
	Find(ctx context.Context, organizationID string, t domain.NotificationType, ch domain.Channel) (*OrgTemplate, error)
}

type GormTemplateRepo struct {
	db *gorm.DB
}

func NewGormTemplateRepo(db *gorm.DB) *GormTemplateRepo {
	return &GormTemplateRepo{db: db}
}

func (r *GormTemplateRepo) Find(ctx context.Context, organizationID string, t domain.NotificationType, ch domain.Channel) (*OrgTemplate, error) {
	var model TemplateModel
	err := r.db.WithContext(ctx).
		Where("organization_id = ? AND notification_type = ? AND channel = ?", organizationID, t, ch).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, classifyStoreError(err)
	}

	return &OrgTemplate{
		Title: model.Title,
		Body:  model.Body,
		Icon:  model.Icon,
	}, nil
}
