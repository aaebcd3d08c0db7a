package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/kuyruklab/notify-engine/internal/domain"
	"github.com/kuyruklab/notify-engine/internal/phone"
	"github.com/kuyruklab/notify-engine/internal/repository"
	"github.com/kuyruklab/notify-engine/internal/service"
)

// PreferenceWriter records a customer's channel choice.
type PreferenceWriter interface {
	SetPreference(ctx context.Context, organizationID, phoneNumber string, pushEnabled, pushDenied bool, choice domain.ChannelChoice)
	Resolve(ctx context.Context, organizationID, phoneNumber string) *domain.Preference
}

type SubscriptionHandler struct {
	subscriptions repository.SubscriptionRepository
	preferences   PreferenceWriter
	tickets       repository.TicketContextRepository
}

func NewSubscriptionHandler(
	subscriptions repository.SubscriptionRepository,
	preferences PreferenceWriter,
	tickets repository.TicketContextRepository,
) (*SubscriptionHandler, error) {
	if subscriptions == nil || preferences == nil {
		return nil, fmt.Errorf("subscription repository and preference service are required")
	}

	return &SubscriptionHandler{
		subscriptions: subscriptions,
		preferences:   preferences,
		tickets:       tickets,
	}, nil
}

func RegisterSubscriptionRoutes(
	router fiber.Router,
	subscriptions repository.SubscriptionRepository,
	preferences *service.PreferenceService,
	tickets repository.TicketContextRepository,
) error {
	h, err := NewSubscriptionHandler(subscriptions, preferences, tickets)
	if err != nil {
		return err
	}

	router.Post("/v1/notifications/subscribe", h.Subscribe)
	router.Put("/v1/notifications/subscribe", h.UpdatePreference)
	router.Get("/v1/notifications/subscribe", h.SubscriptionStatus)
	return nil
}

type subscriptionKeys struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}

type subscriptionPayload struct {
	Endpoint string           `json:"endpoint"`
	Keys     subscriptionKeys `json:"keys"`
}

type subscribeRequest struct {
	OrganizationID         string               `json:"organizationId"`
	TicketID               string               `json:"ticketId"`
	CustomerPhone          string               `json:"customerPhone"`
	NotificationPreference string               `json:"notificationPreference"`
	PushDenied             bool                 `json:"pushDenied"`
	UserAgent              string               `json:"userAgent"`
	Subscription           *subscriptionPayload `json:"subscription"`
}

type subscribeResponse struct {
	Success        bool   `json:"success"`
	SubscriptionID string `json:"subscriptionId"`
	Choice         string `json:"choice"`
}

func (h *SubscriptionHandler) Subscribe(c *fiber.Ctx) error {
	var req subscribeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := validateSubscribeRequest(req); err != nil {
		return err
	}

	choice := domain.ChoicePush
	if raw := strings.TrimSpace(req.NotificationPreference); raw != "" {
		parsed, err := domain.ParseChannelChoice(raw)
		if err != nil {
			return err
		}
		choice = parsed
	}

	sub := &domain.PushSubscription{
		OrganizationID: strings.TrimSpace(req.OrganizationID),
		Phone:          req.CustomerPhone,
		TicketID:       strings.TrimSpace(req.TicketID),
		Endpoint:       strings.TrimSpace(req.Subscription.Endpoint),
		P256dh:         req.Subscription.Keys.P256dh,
		Auth:           req.Subscription.Keys.Auth,
		UserAgent:      strings.TrimSpace(req.UserAgent),
	}

	if err := h.subscriptions.UpsertByEndpoint(c.Context(), sub); err != nil {
		return err
	}

	// A browser subscription implies push capability unless the customer
	// explicitly denied it; the choice governs the fallback flag.
	if sub.Phone != "" {
		h.preferences.SetPreference(c.Context(), sub.OrganizationID, sub.Phone, !req.PushDenied, req.PushDenied, choice)
	}

	return c.Status(fiber.StatusCreated).JSON(subscribeResponse{
		Success:        true,
		SubscriptionID: sub.ID,
		Choice:         choice.String(),
	})
}

type updatePreferenceRequest struct {
	OrganizationID         string `json:"organizationId"`
	CustomerPhone          string `json:"customerPhone"`
	NotificationPreference string `json:"notificationPreference"`
	PushDenied             bool   `json:"pushDenied"`
}

func (h *SubscriptionHandler) UpdatePreference(c *fiber.Ctx) error {
	var req updatePreferenceRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	organizationID := strings.TrimSpace(req.OrganizationID)
	if organizationID == "" || phone.Normalize(req.CustomerPhone) == "" {
		return fmt.Errorf("%w: organizationId and customerPhone are required", domain.ErrValidation)
	}

	choice, err := domain.ParseChannelChoice(req.NotificationPreference)
	if err != nil {
		return err
	}

	h.preferences.SetPreference(c.Context(), organizationID, req.CustomerPhone, !req.PushDenied, req.PushDenied, choice)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"choice":  choice.String(),
	})
}

type subscriptionStatusResponse struct {
	Subscribed    bool   `json:"subscribed"`
	Subscriptions int    `json:"subscriptions"`
	Choice        string `json:"choice,omitempty"`
	PushDenied    bool   `json:"pushDenied"`
	TicketExists  bool   `json:"ticketExists"`
}

// SubscriptionStatus reports the preference state for the customer behind a
// ticket, and whether that ticket exists at all. Widgets poll this before
// offering the subscribe prompt.
func (h *SubscriptionHandler) SubscriptionStatus(c *fiber.Ctx) error {
	organizationID := strings.TrimSpace(c.Query("organizationId"))
	ticketID := strings.TrimSpace(c.Query("ticketId"))
	if organizationID == "" || ticketID == "" {
		return fmt.Errorf("%w: organizationId and ticketId are required", domain.ErrValidation)
	}

	var ticket *repository.TicketContext
	if h.tickets != nil {
		tc, err := h.tickets.FindContext(c.Context(), ticketID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		ticket = tc
	}

	resp := subscriptionStatusResponse{TicketExists: ticket != nil}
	if ticket == nil || phone.Normalize(ticket.CustomerPhone) == "" {
		return c.Status(fiber.StatusOK).JSON(resp)
	}

	subs, err := h.subscriptions.FindActiveByPhone(c.Context(), organizationID, ticket.CustomerPhone)
	if err != nil {
		return err
	}
	resp.Subscribed = len(subs) > 0
	resp.Subscriptions = len(subs)

	if pref := h.preferences.Resolve(c.Context(), organizationID, ticket.CustomerPhone); pref != nil {
		resp.Choice = pref.Choice().String()
		resp.PushDenied = pref.PushDenied
	}

	return c.Status(fiber.StatusOK).JSON(resp)
}

func validateSubscribeRequest(req subscribeRequest) error {
	var missing []string
	if strings.TrimSpace(req.OrganizationID) == "" {
		missing = append(missing, "organizationId")
	}
	if req.Subscription == nil || strings.TrimSpace(req.Subscription.Endpoint) == "" {
		missing = append(missing, "subscription.endpoint")
	}
	if req.Subscription != nil && (req.Subscription.Keys.P256dh == "" || req.Subscription.Keys.Auth == "") {
		missing = append(missing, "subscription.keys")
	}
	if phone.Normalize(req.CustomerPhone) == "" && strings.TrimSpace(req.TicketID) == "" {
		missing = append(missing, "customerPhone or ticketId")
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required fields: %s", domain.ErrValidation, strings.Join(missing, ", "))
	}
	return nil
}
