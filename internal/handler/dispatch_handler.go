package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/kuyruklab/notify-engine/internal/domain"
	"github.com/kuyruklab/notify-engine/internal/messaging"
	"github.com/kuyruklab/notify-engine/internal/observability"
	"github.com/kuyruklab/notify-engine/internal/push"
	"github.com/kuyruklab/notify-engine/internal/service"
)

// Dispatcher runs the notification pipeline for one request.
type Dispatcher interface {
	Dispatch(ctx context.Context, req domain.DispatchRequest) (*service.DispatchResult, error)
}

type DispatchHandler struct {
	dispatcher Dispatcher
}

func NewDispatchHandler(dispatcher Dispatcher) (*DispatchHandler, error) {
	if dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	return &DispatchHandler{dispatcher: dispatcher}, nil
}

func RegisterDispatchRoutes(router fiber.Router, dispatcher Dispatcher) error {
	h, err := NewDispatchHandler(dispatcher)
	if err != nil {
		return err
	}

	router.Post("/v1/notifications/push", h.DispatchNotification)
	return nil
}

type dispatchRequest struct {
	OrganizationID   string                   `json:"organizationId"`
	TicketID         string                   `json:"ticketId"`
	CustomerPhone    string                   `json:"customerPhone"`
	NotificationType string                   `json:"notificationType"`
	Payload          *domain.PayloadOverrides `json:"payload"`
}

type validationErrorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

type pushResultsResponse struct {
	Total   int               `json:"total"`
	Success int               `json:"success"`
	Failed  int               `json:"failed"`
	Details []push.SendResult `json:"details"`
}

type dispatchResponse struct {
	Success          bool                   `json:"success"`
	Message          string                 `json:"message"`
	Results          pushResultsResponse    `json:"results"`
	WhatsAppFallback *messaging.SendOutcome `json:"whatsappFallback,omitempty"`
}

func (h *DispatchHandler) DispatchNotification(c *fiber.Ctx) error {
	var req dispatchRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(validationErrorResponse{
			Error: "invalid request body",
		})
	}

	domainReq := domain.DispatchRequest{
		OrganizationID: strings.TrimSpace(req.OrganizationID),
		TicketID:       strings.TrimSpace(req.TicketID),
		CustomerPhone:  strings.TrimSpace(req.CustomerPhone),
		Type:           domain.NotificationType(strings.ToLower(strings.TrimSpace(req.NotificationType))),
		Payload:        req.Payload,
	}

	if missing := domainReq.MissingFields(); len(missing) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(validationErrorResponse{
			Error:   "missing required fields",
			Details: missing,
		})
	}

	ctx := context.Context(c.Context())
	if correlationID := requestCorrelationID(c); correlationID != "" {
		ctx = observability.WithCorrelationID(ctx, correlationID)
	}

	result, err := h.dispatcher.Dispatch(ctx, domainReq)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			return c.Status(fiber.StatusBadRequest).JSON(validationErrorResponse{
				Error: err.Error(),
			})
		}
		return err
	}

	return c.Status(fiber.StatusOK).JSON(toDispatchResponse(result))
}

func requestCorrelationID(c *fiber.Ctx) string {
	if value := strings.TrimSpace(c.Get(fiber.HeaderXRequestID)); value != "" {
		return value
	}
	if value, ok := c.Locals("requestid").(string); ok {
		return strings.TrimSpace(value)
	}
	return ""
}

func toDispatchResponse(result *service.DispatchResult) dispatchResponse {
	resp := dispatchResponse{
		Success:          result.Notified,
		Message:          dispatchMessage(result),
		WhatsAppFallback: result.Messaging,
	}

	if result.Push != nil {
		details := result.Push.Results
		if details == nil {
			details = []push.SendResult{}
		}
		resp.Results = pushResultsResponse{
			Total:   len(result.Push.Results),
			Success: result.Push.SuccessCount,
			Failed:  result.Push.FailureCount,
			Details: details,
		}
	}

	return resp
}

// dispatchMessage always explains the outcome, in particular why nothing was
// sent when that is the result.
func dispatchMessage(result *service.DispatchResult) string {
	if result.Notified {
		return "notification delivered"
	}
	if result.Messaging != nil {
		if result.Messaging.Reason != "" {
			return result.Messaging.Reason
		}
		if result.Messaging.Error != "" {
			return result.Messaging.Error
		}
	}
	if result.Push != nil && result.Push.FailureCount > 0 {
		return "push delivery failed for all subscriptions"
	}
	if result.MessagingReason != "" {
		return result.MessagingReason
	}
	return "no notification sent"
}
