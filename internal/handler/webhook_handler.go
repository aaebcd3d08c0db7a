package handler

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/kuyruklab/notify-engine/internal/domain"
	"github.com/kuyruklab/notify-engine/internal/phone"
	"github.com/kuyruklab/notify-engine/internal/repository"
	"go.uber.org/zap"
)

const webhookTokenHeader = "X-Webhook-Token"

// SessionManager opens and extends messaging windows for inbound senders.
type SessionManager interface {
	ActiveSession(ctx context.Context, phone string) *domain.MessagingSession
	CreateSession(ctx context.Context, phone, organizationID, ticketID, customerName string) (*domain.MessagingSession, error)
	ExtendSession(ctx context.Context, phone string) (bool, error)
}

// AckSender delivers the welcome/extension acknowledgment back to the sender.
type AckSender interface {
	SendText(ctx context.Context, instanceID, token, phone, body string) (string, error)
}

// AckCredentialResolver yields gateway credentials for the ack send.
type AckCredentialResolver interface {
	Resolve(ctx context.Context, organizationID string) (*domain.GatewayConfig, error)
}

// WebhookHandler ingests inbound customer messages from the messaging
// gateway. Every inbound message opens or extends the sender's 24h window.
type WebhookHandler struct {
	sessions SessionManager
	tickets  repository.TicketContextRepository
	resolver AckCredentialResolver
	gateway  AckSender
	token    string
	logger   *zap.Logger
}

func NewWebhookHandler(
	sessions SessionManager,
	tickets repository.TicketContextRepository,
	resolver AckCredentialResolver,
	gateway AckSender,
	token string,
	logger *zap.Logger,
) (*WebhookHandler, error) {
	if sessions == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	if token == "" {
		return nil, fmt.Errorf("webhook token is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &WebhookHandler{
		sessions: sessions,
		tickets:  tickets,
		resolver: resolver,
		gateway:  gateway,
		token:    token,
		logger:   logger,
	}, nil
}

func RegisterWebhookRoutes(
	router fiber.Router,
	sessions SessionManager,
	tickets repository.TicketContextRepository,
	resolver AckCredentialResolver,
	gateway AckSender,
	token string,
	logger *zap.Logger,
) error {
	h, err := NewWebhookHandler(sessions, tickets, resolver, gateway, token, logger)
	if err != nil {
		return err
	}

	router.Post("/v1/webhooks/inbound", h.HandleInbound)
	return nil
}

type inboundMessage struct {
	From      string `json:"from"`
	Recipient string `json:"recipient"`
	Body      string `json:"body"`
	Name      string `json:"name"`
	Timestamp int64  `json:"timestamp"`
}

type inboundWebhookRequest struct {
	Token     string           `json:"token"`
	From      string           `json:"from"`
	Recipient string           `json:"recipient"`
	Body      string           `json:"body"`
	Name      string           `json:"name"`
	Timestamp int64            `json:"timestamp"`
	Messages  []inboundMessage `json:"messages"`
}

type sessionActionResponse struct {
	Phone  string `json:"phone"`
	Action string `json:"action"`
}

type inboundWebhookResponse struct {
	Success   bool                    `json:"success"`
	Processed int                     `json:"processed"`
	Skipped   int                     `json:"skipped,omitempty"`
	Sessions  []sessionActionResponse `json:"sessions"`
}

func (h *WebhookHandler) HandleInbound(c *fiber.Ctx) error {
	var req inboundWebhookRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if !h.authorized(c, req.Token) {
		return fiber.NewError(fiber.StatusUnauthorized, "invalid webhook token")
	}

	messages := req.Messages
	if len(messages) == 0 && strings.TrimSpace(req.From) != "" {
		messages = []inboundMessage{{
			From:      req.From,
			Recipient: req.Recipient,
			Body:      req.Body,
			Name:      req.Name,
			Timestamp: req.Timestamp,
		}}
	}
	if len(messages) == 0 {
		return fmt.Errorf("%w: webhook payload carries no messages", domain.ErrValidation)
	}

	resp := inboundWebhookResponse{Success: true, Sessions: []sessionActionResponse{}}
	for _, msg := range messages {
		action, ok := h.processMessage(c.Context(), msg)
		if !ok {
			resp.Skipped++
			continue
		}
		resp.Processed++
		resp.Sessions = append(resp.Sessions, action)
	}

	return c.Status(fiber.StatusOK).JSON(resp)
}

func (h *WebhookHandler) authorized(c *fiber.Ctx, bodyToken string) bool {
	token := strings.TrimSpace(c.Get(webhookTokenHeader))
	if token == "" {
		token = strings.TrimSpace(bodyToken)
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.token)) == 1
}

// processMessage opens or extends the sender's window and acknowledges it.
// Gateway sender IDs arrive suffixed (e.g. "905551234567@c.us"); only the
// number part matters.
func (h *WebhookHandler) processMessage(ctx context.Context, msg inboundMessage) (sessionActionResponse, bool) {
	sender, _, _ := strings.Cut(msg.From, "@")
	normalized := phone.Normalize(sender)
	if normalized == "" {
		h.logger.Warn("inbound message has no usable sender, skipping",
			zap.String("from", msg.From),
		)
		return sessionActionResponse{}, false
	}

	h.logger.Info("inbound message received",
		zap.String("phone", normalized),
		zap.String("recipient", msg.Recipient),
		zap.Int64("timestamp", msg.Timestamp),
		zap.Int("bodyLength", len(msg.Body)),
	)

	if active := h.sessions.ActiveSession(ctx, normalized); active != nil {
		extended, err := h.sessions.ExtendSession(ctx, normalized)
		if err != nil {
			h.logger.Error("failed to extend messaging session",
				zap.String("phone", normalized),
				zap.Error(err),
			)
			return sessionActionResponse{}, false
		}
		if extended {
			h.sendAck(ctx, normalized, active.OrganizationID, extensionAckText())
			return sessionActionResponse{Phone: normalized, Action: "extended"}, true
		}
	}

	ticket := h.findWaitingTicket(ctx, normalized)

	var organizationID, ticketID, customerName string
	if ticket != nil {
		organizationID = ticket.OrganizationID
		ticketID = ticket.TicketID
		customerName = ticket.CustomerName
	}
	if customerName == "" {
		customerName = strings.TrimSpace(msg.Name)
	}

	if _, err := h.sessions.CreateSession(ctx, normalized, organizationID, ticketID, customerName); err != nil {
		h.logger.Error("failed to create messaging session",
			zap.String("phone", normalized),
			zap.Error(err),
		)
		return sessionActionResponse{}, false
	}

	h.sendAck(ctx, normalized, organizationID, welcomeText(customerName, ticket))
	return sessionActionResponse{Phone: normalized, Action: "created"}, true
}

// findWaitingTicket best-effort associates the sender with their newest
// waiting ticket. Failures degrade to an unassociated session.
func (h *WebhookHandler) findWaitingTicket(ctx context.Context, normalizedPhone string) *repository.TicketContext {
	if h.tickets == nil {
		return nil
	}

	ticket, err := h.tickets.FindMostRecentWaiting(ctx, normalizedPhone)
	if err != nil {
		h.logger.Warn("waiting ticket lookup failed",
			zap.String("phone", normalizedPhone),
			zap.Error(err),
		)
		return nil
	}
	return ticket
}

// sendAck replies through the gateway when per-organization credentials can
// be resolved. The ack is best-effort: the session is already recorded.
func (h *WebhookHandler) sendAck(ctx context.Context, normalizedPhone, organizationID, body string) {
	if h.resolver == nil || h.gateway == nil || organizationID == "" {
		return
	}

	cfg, err := h.resolver.Resolve(ctx, organizationID)
	if err != nil {
		h.logger.Warn("skipping inbound acknowledgment, gateway unavailable",
			zap.String("organizationId", organizationID),
			zap.Error(err),
		)
		return
	}

	if _, err := h.gateway.SendText(ctx, cfg.InstanceID, cfg.Token, normalizedPhone, body); err != nil {
		h.logger.Warn("failed to send inbound acknowledgment",
			zap.String("phone", normalizedPhone),
			zap.Error(err),
		)
	}
}

func welcomeText(customerName string, ticket *repository.TicketContext) string {
	greeting := "Hello"
	if customerName != "" {
		greeting = "Hello " + customerName
	}

	if ticket != nil {
		return fmt.Sprintf(
			"%s! Your ticket %s is in the queue at %s. We will send your queue updates here for the next 24 hours.",
			greeting, ticket.TicketNumber, ticket.OrganizationName,
		)
	}
	return greeting + "! Your messaging notifications are now active for the next 24 hours."
}

func extensionAckText() string {
	return "Thanks for your message. Your notification window has been extended for another 24 hours."
}
