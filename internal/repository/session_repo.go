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

type SessionRepository interface {
	FindActive(ctx context.Context, rawPhone string) (*domain.MessagingSession, error)
	// Create deactivates any active session for the phone before inserting,
	// keeping the single-active-session invariant.
	Create(ctx context.Context, s *domain.MessagingSession) error
	// Extend resets the expiry on the existing active session without
	// creating a row. Returns false when there is nothing to extend.
	Extend(ctx context.Context, rawPhone string, expiresAt time.Time) (bool, error)
	DeactivateExpired(ctx context.Context) (int64, error)
}

type GormSessionRepo struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormSessionRepo(db *gorm.DB) *GormSessionRepo {
	return &GormSessionRepo{db: db, now: time.Now}
}

func (r *GormSessionRepo) FindActive(ctx context.Context, rawPhone string) (*domain.MessagingSession, error) {
	normalized := phone.Normalize(rawPhone)
	if normalized == "" {
		return nil, nil
	}

	var model MessagingSessionModel
	err := r.db.WithContext(ctx).
		Where("phone = ? AND is_active = ? AND expires_at > ?", normalized, true, r.now().UTC()).
		Order("expires_at DESC").
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, classifyStoreError(err)
	}

	return sessionModelToDomain(&model), nil
}

func (r *GormSessionRepo) Create(ctx context.Context, s *domain.MessagingSession) error {
	if s == nil {
		return nil
	}
	s.Phone = phone.Normalize(s.Phone)

	err := r.db.WithContext(ctx).
		Model(&MessagingSessionModel{}).
		Where("phone = ? AND is_active = ?", s.Phone, true).
		Update("is_active", false).Error
	if err != nil {
		return classifyStoreError(err)
	}

	model := sessionModelFromDomain(s)
	if model.ID == "" {
		model.ID = uuid.NewString()
	}
	model.IsActive = true
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return classifyStoreError(err)
	}

	*s = *sessionModelToDomain(model)
	return nil
}

func (r *GormSessionRepo) Extend(ctx context.Context, rawPhone string, expiresAt time.Time) (bool, error) {
	normalized := phone.Normalize(rawPhone)
	if normalized == "" {
		return false, nil
	}

	result := r.db.WithContext(ctx).
		Model(&MessagingSessionModel{}).
		Where("phone = ? AND is_active = ? AND expires_at > ?", normalized, true, r.now().UTC()).
		Updates(map[string]any{
			"expires_at": expiresAt,
			"updated_at": r.now().UTC(),
		})
	if result.Error != nil {
		return false, classifyStoreError(result.Error)
	}

	return result.RowsAffected > 0, nil
}

func (r *GormSessionRepo) DeactivateExpired(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&MessagingSessionModel{}).
		Where("is_active = ? AND expires_at < ?", true, r.now().UTC()).
		Update("is_active", false)
	if result.Error != nil {
		return 0, classifyStoreError(result.Error)
	}

	return result.RowsAffected, nil
}
