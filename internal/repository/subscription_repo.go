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

type SubscriptionRepository interface {
	FindActiveByPhone(ctx context.Context, organizationID, rawPhone string) ([]domain.PushSubscription, error)
	FindActiveByTicket(ctx context.Context, organizationID, ticketID string) ([]domain.PushSubscription, error)
	// UpsertByEndpoint dedups on (organization, phone, endpoint). Re-subscribing
	// with a known endpoint reactivates the row and refreshes its keys.
	UpsertByEndpoint(ctx context.Context, s *domain.PushSubscription) error
	Deactivate(ctx context.Context, id string) error
	TouchLastUsed(ctx context.Context, id string) error
}

type GormSubscriptionRepo struct {
	db *gorm.DB
}

func NewGormSubscriptionRepo(db *gorm.DB) *GormSubscriptionRepo {
	return &GormSubscriptionRepo{db: db}
}

func (r *GormSubscriptionRepo) FindActiveByPhone(ctx context.Context, organizationID, rawPhone string) ([]domain.PushSubscription, error) {
	candidates := phone.LookupCandidates(rawPhone)
	if len(candidates) == 0 {
		return nil, nil
	}

	var models []PushSubscriptionModel
	err := r.db.WithContext(ctx).
		Where("organization_id = ? AND phone IN ? AND is_active = ?", organizationID, candidates, true).
		Find(&models).Error
	if err != nil {
		return nil, classifyStoreError(err)
	}

	return subscriptionsToDomain(models), nil
}

func (r *GormSubscriptionRepo) FindActiveByTicket(ctx context.Context, organizationID, ticketID string) ([]domain.PushSubscription, error) {
	var models []PushSubscriptionModel
	err := r.db.WithContext(ctx).
		Where("organization_id = ? AND ticket_id = ? AND is_active = ?", organizationID, ticketID, true).
		Find(&models).Error
	if err != nil {
		return nil, classifyStoreError(err)
	}

	return subscriptionsToDomain(models), nil
}

func (r *GormSubscriptionRepo) UpsertByEndpoint(ctx context.Context, s *domain.PushSubscription) error {
	if s == nil {
		return nil
	}
	s.Phone = phone.Normalize(s.Phone)

	var existing PushSubscriptionModel
	err := r.db.WithContext(ctx).
		Where("organization_id = ? AND phone = ? AND endpoint = ?", s.OrganizationID, s.Phone, s.Endpoint).
		First(&existing).Error

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		model := subscriptionModelFromDomain(s)
		if model.ID == "" {
			model.ID = uuid.NewString()
		}
		model.IsActive = true
		if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
			return classifyStoreError(err)
		}
		*s = *subscriptionModelToDomain(model)
		return nil
	case err != nil:
		return classifyStoreError(err)
	}

	result := r.db.WithContext(ctx).
		Model(&PushSubscriptionModel{}).
		Where("id = ?", existing.ID).
		Updates(map[string]any{
			"p256dh":     s.P256dh,
			"auth":       s.Auth,
			"user_agent": s.UserAgent,
			"ticket_id":  s.TicketID,
			"is_active":  true,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return classifyStoreError(result.Error)
	}

	s.ID = existing.ID
	s.IsActive = true
	s.CreatedAt = existing.CreatedAt
	return nil
}

func (r *GormSubscriptionRepo) Deactivate(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Model(&PushSubscriptionModel{}).
		Where("id = ?", id).
		Update("is_active", false)
	if result.Error != nil {
		return classifyStoreError(result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormSubscriptionRepo) TouchLastUsed(ctx context.Context, id string) error {
	now := time.Now().UTC()
	return classifyStoreError(r.db.WithContext(ctx).
		Model(&PushSubscriptionModel{}).
		Where("id = ?", id).
		Update("last_used_at", now).Error)
}

func subscriptionsToDomain(models []PushSubscriptionModel) []domain.PushSubscription {
	subscriptions := make([]domain.PushSubscription, 0, len(models))
	for i := range models {
		subscriptions = append(subscriptions, *subscriptionModelToDomain(&models[i]))
	}
	return subscriptions
}
