package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/kuyruklab/notify-engine/internal/domain"
	"github.com/kuyruklab/notify-engine/internal/phone"
	"gorm.io/gorm"
)

type PreferenceRepository interface {
	// Resolve returns the most recently updated preference for any known
	// phone form of the pair, or (nil, nil) when none exists.
	Resolve(ctx context.Context, organizationID, rawPhone string) (*domain.Preference, error)
	Upsert(ctx context.Context, p *domain.Preference) error
}

type GormPreferenceRepo struct {
	db *gorm.DB
}

func NewGormPreferenceRepo(db *gorm.DB) *GormPreferenceRepo {
	return &GormPreferenceRepo{db: db}
}

func (r *GormPreferenceRepo) Resolve(ctx context.Context, organizationID, rawPhone string) (*domain.Preference, error) {
	candidates := phone.LookupCandidates(rawPhone)
	if len(candidates) == 0 {
		return nil, nil
	}

	var model PreferenceModel
	err := r.db.WithContext(ctx).
		Where("organization_id = ? AND phone IN ?", organizationID, candidates).
		Order("updated_at DESC").
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, classifyStoreError(err)
	}

	return preferenceModelToDomain(&model), nil
}

func (r *GormPreferenceRepo) Upsert(ctx context.Context, p *domain.Preference) error {
	if p == nil {
		return nil
	}
	p.Phone = phone.Normalize(p.Phone)

	var existing PreferenceModel
	err := r.db.WithContext(ctx).
		Where("organization_id = ? AND phone = ?", p.OrganizationID, p.Phone).
		First(&existing).Error

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		model := preferenceModelFromDomain(p)
		if model.ID == "" {
			model.ID = uuid.NewString()
		}
		if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
			return classifyStoreError(err)
		}
		*p = *preferenceModelToDomain(model)
		return nil
	case err != nil:
		return classifyStoreError(err)
	}

	result := r.db.WithContext(ctx).
		Model(&PreferenceModel{}).
		Where("id = ?", existing.ID).
		Updates(map[string]any{
			"push_enabled":      p.PushEnabled,
			"push_denied":       p.PushDenied,
			"whatsapp_fallback": p.WhatsAppFallback,
			"updated_at":        time.Now().UTC(),
		})
	if result.Error != nil {
		return classifyStoreError(result.Error)
	}

	p.ID = existing.ID
	p.CreatedAt = existing.CreatedAt
	return nil
}
