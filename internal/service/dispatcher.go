package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/kuyruklab/notify-engine/internal/audit"
	"github.com/kuyruklab/notify-engine/internal/domain"
	"github.com/kuyruklab/notify-engine/internal/messaging"
	"github.com/kuyruklab/notify-engine/internal/observability"
	"github.com/kuyruklab/notify-engine/internal/phone"
	"github.com/kuyruklab/notify-engine/internal/push"
	"github.com/kuyruklab/notify-engine/internal/repository"
	"github.com/kuyruklab/notify-engine/internal/template"
	"go.uber.org/zap"
)

// SubscriptionFinder resolves the deliverable push subscriptions for a target.
type SubscriptionFinder interface {
	FindActive(ctx context.Context, organizationID, customerPhone, ticketID string) ([]domain.PushSubscription, error)
}

// PushSender fans a payload out to a set of subscriptions.
type PushSender interface {
	Send(ctx context.Context, subscriptions []domain.PushSubscription, payload push.Payload) (*push.Result, error)
}

// MessagingSender delivers one templated message over the messaging channel.
type MessagingSender interface {
	Send(ctx context.Context, rawPhone string, notificationType domain.NotificationType, organizationID, ticketID string) messaging.SendOutcome
}

// SessionChecker reports whether an open messaging window exists for a phone.
type SessionChecker interface {
	HasActiveSession(ctx context.Context, phone string) bool
}

// PayloadRenderer produces the notification content for a channel.
type PayloadRenderer interface {
	Render(ctx context.Context, in template.Input) template.Message
}

// DispatchResult is the aggregated outcome of one dispatch across channels.
type DispatchResult struct {
	Notified        bool
	Push            *push.Result
	Messaging       *messaging.SendOutcome
	MessagingReason string
}

// Dispatcher orchestrates one notification: push fan-out first, then the
// channel policy decides whether the messaging fallback runs.
type Dispatcher struct {
	preferences   *PreferenceService
	sessions      SessionChecker
	subscriptions SubscriptionFinder
	pushSender    PushSender
	messaging     MessagingSender
	renderer      PayloadRenderer
	tickets       repository.TicketContextRepository
	auditor       audit.Recorder
	logger        *zap.Logger
	metrics       *observability.Metrics
}

func NewDispatcher(
	preferences *PreferenceService,
	sessions SessionChecker,
	subscriptions SubscriptionFinder,
	pushSender PushSender,
	messagingSender MessagingSender,
	renderer PayloadRenderer,
	tickets repository.TicketContextRepository,
	auditor audit.Recorder,
	logger *zap.Logger,
) (*Dispatcher, error) {
	if preferences == nil || subscriptions == nil || pushSender == nil {
		return nil, fmt.Errorf("preferences, subscriptions, and push sender are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Dispatcher{
		preferences:   preferences,
		sessions:      sessions,
		subscriptions: subscriptions,
		pushSender:    pushSender,
		messaging:     messagingSender,
		renderer:      renderer,
		tickets:       tickets,
		auditor:       auditor,
		logger:        logger,
	}, nil
}

func (d *Dispatcher) SetMetrics(metrics *observability.Metrics) {
	if d == nil {
		return
	}
	d.metrics = metrics
}

// Dispatch runs the full pipeline for one notification. It returns an error
// only for invalid requests and for stores whose schema has not been
// migrated; delivery failures are reported inside the result.
func (d *Dispatcher) Dispatch(ctx context.Context, req domain.DispatchRequest) (*DispatchResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	normalizedPhone := phone.Normalize(req.CustomerPhone)
	preference := d.preferences.Resolve(ctx, req.OrganizationID, req.CustomerPhone)

	subscriptions, err := d.subscriptions.FindActive(ctx, req.OrganizationID, req.CustomerPhone, req.TicketID)
	if err != nil {
		if errors.Is(err, domain.ErrMigrationRequired) {
			return nil, err
		}
		d.logger.Warn("subscription lookup failed, continuing without push targets",
			zap.String("organizationId", req.OrganizationID),
			zap.Error(err),
		)
		subscriptions = nil
	}

	ticketCtx := d.loadTicketContext(ctx, req.TicketID)

	pushResult := d.sendPush(ctx, req, subscriptions, ticketCtx)

	decision := ShouldSendMessaging(preference, pushResult.SuccessCount, req.Type)

	result := &DispatchResult{
		Push:            pushResult,
		MessagingReason: decision.Reason,
	}

	if decision.Should {
		result.Messaging = d.sendMessaging(ctx, req, normalizedPhone, decision)
	}

	result.Notified = pushResult.SuccessCount > 0 ||
		(result.Messaging != nil && result.Messaging.Success)

	d.metrics.IncDispatch(req.Type.String(), result.Notified)

	observability.WithContextLogger(d.logger, ctx).Info("dispatch completed",
		zap.String("organizationId", req.OrganizationID),
		zap.String("ticketId", req.TicketID),
		zap.String("type", req.Type.String()),
		zap.Int("pushSuccess", pushResult.SuccessCount),
		zap.Int("pushFailed", pushResult.FailureCount),
		zap.Bool("notified", result.Notified),
		zap.String("messagingReason", decision.Reason),
	)

	return result, nil
}

func (d *Dispatcher) loadTicketContext(ctx context.Context, ticketID string) *repository.TicketContext {
	if d.tickets == nil {
		return nil
	}

	tc, err := d.tickets.FindContext(ctx, ticketID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			d.logger.Warn("ticket context lookup failed, rendering with placeholders",
				zap.String("ticketId", ticketID),
				zap.Error(err),
			)
		}
		return nil
	}
	return tc
}

func (d *Dispatcher) sendPush(
	ctx context.Context,
	req domain.DispatchRequest,
	subscriptions []domain.PushSubscription,
	ticketCtx *repository.TicketContext,
) *push.Result {
	if len(subscriptions) == 0 {
		return &push.Result{}
	}

	msg := d.renderPush(ctx, req, ticketCtx)

	result, err := d.pushSender.Send(ctx, subscriptions, push.Payload{
		Title:    msg.Title,
		Body:     msg.Body,
		Icon:     msg.Icon,
		Type:     req.Type.String(),
		TicketID: req.TicketID,
	})
	if err != nil {
		d.logger.Error("push fan-out failed",
			zap.String("ticketId", req.TicketID),
			zap.Error(err),
		)
		return &push.Result{FailureCount: len(subscriptions)}
	}

	d.auditPush(req, result, ticketCtx)
	return result
}

func (d *Dispatcher) renderPush(ctx context.Context, req domain.DispatchRequest, ticketCtx *repository.TicketContext) template.Message {
	if d.renderer == nil {
		return template.Message{Title: req.Type.String()}
	}

	in := template.Input{
		Type:           req.Type,
		Channel:        domain.ChannelPush,
		OrganizationID: req.OrganizationID,
		TicketID:       req.TicketID,
		Overrides:      req.Payload,
	}
	if ticketCtx != nil {
		in.Vars = &template.Vars{
			OrganizationName: ticketCtx.OrganizationName,
			OrganizationLogo: ticketCtx.OrganizationLogo,
			TicketNumber:     ticketCtx.TicketNumber,
			DepartmentName:   ticketCtx.DepartmentName,
			ServiceName:      ticketCtx.ServiceName,
			Position:         ticketCtx.Position,
			WaitEstimateMin:  ticketCtx.WaitEstimateMin,
			NowServing:       ticketCtx.NowServing,
			CustomerName:     ticketCtx.CustomerName,
		}
	}

	return d.renderer.Render(ctx, in)
}

func (d *Dispatcher) auditPush(req domain.DispatchRequest, result *push.Result, ticketCtx *repository.TicketContext) {
	if d.auditor == nil || ticketCtx == nil || len(result.Results) == 0 {
		return
	}

	d.auditor.Record(domain.DeliveryLogEntry{
		OrganizationID: req.OrganizationID,
		TicketID:       req.TicketID,
		Phone:          phone.Normalize(req.CustomerPhone),
		TicketNumber:   ticketCtx.TicketNumber,
		Type:           req.Type,
		Channel:        domain.ChannelPush,
		Success:        result.SuccessCount > 0,
	})
}

func (d *Dispatcher) sendMessaging(
	ctx context.Context,
	req domain.DispatchRequest,
	normalizedPhone string,
	decision MessagingDecision,
) *messaging.SendOutcome {
	if d.messaging == nil {
		return nil
	}

	// Template messages outside a customer-initiated window are rejected by
	// the gateway, so a missing session short-circuits to a recorded outcome.
	if d.sessions == nil || !d.sessions.HasActiveSession(ctx, normalizedPhone) {
		return &messaging.SendOutcome{
			Attempted: false,
			Phone:     normalizedPhone,
			Reason:    ReasonNoActiveSession,
		}
	}

	outcome := d.messaging.Send(ctx, req.CustomerPhone, req.Type, req.OrganizationID, req.TicketID)
	if outcome.Reason == "" {
		outcome.Reason = decision.Reason
	}
	return &outcome
}
