package push

import (
	"context"

	"github.com/kuyruklab/notify-engine/internal/domain"
	"github.com/kuyruklab/notify-engine/internal/repository"
	"go.uber.org/zap"
)

// Registry resolves which push subscriptions a dispatch may target.
// Phone-scoped subscriptions are primary and respect the organization-wide
// preference; ticket-scoped rows are the legacy fallback, filtered one by
// one because they may belong to different customers historically tied to
// the same ticket.
type Registry struct {
	subscriptions repository.SubscriptionRepository
	preferences   repository.PreferenceRepository
	logger        *zap.Logger
}

func NewRegistry(
	subscriptions repository.SubscriptionRepository,
	preferences repository.PreferenceRepository,
	logger *zap.Logger,
) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Registry{
		subscriptions: subscriptions,
		preferences:   preferences,
		logger:        logger,
	}
}

// FindActive returns the deliverable subscriptions for the target. A resolved
// preference with push disabled or denied empties the phone-scoped result
// regardless of how many subscriptions exist.
func (r *Registry) FindActive(ctx context.Context, organizationID, customerPhone, ticketID string) ([]domain.PushSubscription, error) {
	if customerPhone != "" {
		subs, err := r.subscriptions.FindActiveByPhone(ctx, organizationID, customerPhone)
		if err != nil {
			return nil, err
		}

		if len(subs) > 0 {
			pref, err := r.preferences.Resolve(ctx, organizationID, customerPhone)
			if err != nil {
				r.logger.Warn("preference lookup failed, treating as no preference",
					zap.String("organizationId", organizationID),
					zap.Error(err),
				)
				pref = nil
			}
			if pref != nil && !pref.PushAllowed() {
				return nil, nil
			}
			return subs, nil
		}
	}

	if ticketID == "" {
		return nil, nil
	}

	legacy, err := r.subscriptions.FindActiveByTicket(ctx, organizationID, ticketID)
	if err != nil {
		return nil, err
	}

	allowed := make([]domain.PushSubscription, 0, len(legacy))
	for _, sub := range legacy {
		// A legacy row with no phone, or whose preference lookup finds
		// nothing, is allowed through: these rows predate preference
		// records and blocking them would silently drop notifications.
		if sub.Phone == "" {
			allowed = append(allowed, sub)
			continue
		}

		pref, err := r.preferences.Resolve(ctx, organizationID, sub.Phone)
		if err != nil {
			r.logger.Warn("legacy subscription preference lookup failed, allowing",
				zap.String("subscriptionId", sub.ID),
				zap.Error(err),
			)
			allowed = append(allowed, sub)
			continue
		}
		if pref == nil || pref.PushAllowed() {
			allowed = append(allowed, sub)
		}
	}

	return allowed, nil
}
