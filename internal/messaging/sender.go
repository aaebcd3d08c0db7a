package messaging

import (
	"context"
	"errors"
	"fmt"

	"github.com/kuyruklab/notify-engine/internal/audit"
	"github.com/kuyruklab/notify-engine/internal/domain"
	"github.com/kuyruklab/notify-engine/internal/observability"
	"github.com/kuyruklab/notify-engine/internal/phone"
	"github.com/kuyruklab/notify-engine/internal/repository"
	"github.com/kuyruklab/notify-engine/internal/template"
	"go.uber.org/zap"
)

// ReasonQuotaExceeded is the user-visible reason for locally rejected sends.
const ReasonQuotaExceeded = "Daily message limit exceeded"

// SendOutcome is the structured result of one messaging attempt. The sender
// never returns an error to its caller; failures are captured here.
type SendOutcome struct {
	Attempted    bool   `json:"attempted"`
	Success      bool   `json:"success"`
	Phone        string `json:"phone,omitempty"`
	MessageID    string `json:"messageId,omitempty"`
	Error        string `json:"error,omitempty"`
	Reason       string `json:"reason,omitempty"`
	FallbackUsed bool   `json:"fallbackUsed,omitempty"`
}

// Quota is the per-organization daily send budget.
type Quota interface {
	Allow(ctx context.Context, organizationID string) (bool, error)
}

// CredentialResolver yields verified gateway credentials for an organization.
type CredentialResolver interface {
	Resolve(ctx context.Context, organizationID string) (*domain.GatewayConfig, error)
}

// TextSender posts one message through a gateway instance.
type TextSender interface {
	SendText(ctx context.Context, instanceID, token, phone, body string) (string, error)
}

// MessageRenderer produces the message text for a notification.
type MessageRenderer interface {
	Render(ctx context.Context, in template.Input) template.Message
}

// Sender is the messaging delivery engine.
type Sender struct {
	renderer MessageRenderer
	resolver CredentialResolver
	gateway  TextSender
	quota    Quota
	tickets  repository.TicketContextRepository
	auditor  audit.Recorder
	logger   *zap.Logger
	metrics  *observability.Metrics
}

func NewSender(
	renderer MessageRenderer,
	resolver CredentialResolver,
	gateway TextSender,
	quota Quota,
	tickets repository.TicketContextRepository,
	auditor audit.Recorder,
	logger *zap.Logger,
) (*Sender, error) {
	if renderer == nil || resolver == nil || gateway == nil {
		return nil, fmt.Errorf("renderer, resolver, and gateway are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Sender{
		renderer: renderer,
		resolver: resolver,
		gateway:  gateway,
		quota:    quota,
		tickets:  tickets,
		auditor:  auditor,
		logger:   logger,
	}, nil
}

func (s *Sender) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// Send delivers one templated message. It always returns a structured
// outcome; gateway and store failures are captured, never propagated.
func (s *Sender) Send(ctx context.Context, rawPhone string, notificationType domain.NotificationType, organizationID, ticketID string) SendOutcome {
	outcome := SendOutcome{
		Attempted: true,
		Phone:     phone.Normalize(rawPhone),
	}

	if s.quota != nil {
		allowed, err := s.quota.Allow(ctx, organizationID)
		if err != nil {
			s.logger.Warn("daily quota check failed, allowing send",
				zap.String("organizationId", organizationID),
				zap.Error(err),
			)
		} else if !allowed {
			s.metrics.IncQuotaRejected(organizationID)
			outcome.Error = ReasonQuotaExceeded
			outcome.Reason = ReasonQuotaExceeded
			return outcome
		}
	}

	var ticketCtx *repository.TicketContext
	var err error
	if s.tickets != nil {
		ticketCtx, err = s.tickets.FindContext(ctx, ticketID)
	}
	if err != nil || ticketCtx == nil {
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("ticket context lookup failed, using fallback message",
				zap.String("ticketId", ticketID),
				zap.Error(err),
			)
		}
		outcome.FallbackUsed = true
	}

	msg := s.renderMessage(ctx, notificationType, organizationID, ticketID, ticketCtx)
	if msg.Empty() {
		outcome.Attempted = false
		outcome.Reason = "empty_template"
		return outcome
	}

	cfg, err := s.resolver.Resolve(ctx, organizationID)
	if err != nil {
		outcome.Error = err.Error()
		s.record(notificationType, organizationID, ticketID, outcome, ticketCtx)
		return outcome
	}

	messageID, err := s.gateway.SendText(ctx, cfg.InstanceID, cfg.Token, outcome.Phone, msg.Body)
	if err != nil {
		outcome.Error = err.Error()
	} else {
		outcome.Success = true
		outcome.MessageID = messageID
	}

	s.record(notificationType, organizationID, ticketID, outcome, ticketCtx)
	return outcome
}

func (s *Sender) renderMessage(
	ctx context.Context,
	notificationType domain.NotificationType,
	organizationID, ticketID string,
	ticketCtx *repository.TicketContext,
) template.Message {
	in := template.Input{
		Type:           notificationType,
		Channel:        domain.ChannelWhatsApp,
		OrganizationID: organizationID,
	}

	if ticketCtx != nil {
		in.TicketID = ticketID
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

	return s.renderer.Render(ctx, in)
}

func (s *Sender) record(
	notificationType domain.NotificationType,
	organizationID, ticketID string,
	outcome SendOutcome,
	ticketCtx *repository.TicketContext,
) {
	s.metrics.IncDelivery(domain.ChannelWhatsApp.String(), outcome.Success)

	// Only attempts with real ticket context are worth auditing; synthetic
	// tickets would pollute the per-ticket analytics.
	if s.auditor == nil || ticketCtx == nil {
		return
	}

	s.auditor.Record(domain.DeliveryLogEntry{
		OrganizationID: organizationID,
		TicketID:       ticketID,
		Phone:          outcome.Phone,
		TicketNumber:   ticketCtx.TicketNumber,
		Type:           notificationType,
		Channel:        domain.ChannelWhatsApp,
		Success:        outcome.Success,
	})
}
