package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/kuyruklab/notify-engine/internal/domain"
	"github.com/kuyruklab/notify-engine/internal/messaging"
	"github.com/kuyruklab/notify-engine/internal/push"
	"github.com/kuyruklab/notify-engine/internal/service"
	"github.com/kuyruklab/notify-engine/internal/transport"
	"go.uber.org/zap"
)

type fakeDispatcher struct {
	dispatchFn func(ctx context.Context, req domain.DispatchRequest) (*service.DispatchResult, error)
	calls      int
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, req domain.DispatchRequest) (*service.DispatchResult, error) {
	f.calls++
	if f.dispatchFn == nil {
		return &service.DispatchResult{Push: &push.Result{}}, nil
	}
	return f.dispatchFn(ctx, req)
}

func newDispatchTestApp(t *testing.T, dispatcher Dispatcher) *fiber.App {
	t.Helper()

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(zap.NewNop()),
	})
	if err := RegisterDispatchRoutes(app, dispatcher); err != nil {
		t.Fatalf("RegisterDispatchRoutes() error = %v", err)
	}
	return app
}

func postJSON(t *testing.T, app *fiber.App, path string, body any) *http.Response {
	t.Helper()

	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal body: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

func TestDispatchNotificationMissingFieldsListed(t *testing.T) {
	t.Parallel()

	dispatcher := &fakeDispatcher{}
	app := newDispatchTestApp(t, dispatcher)

	resp := postJSON(t, app, "/v1/notifications/push", map[string]any{
		"organizationId":   "org-1",
		"ticketId":         "ticket-1",
		"notificationType": "your_turn",
		"payload":          map[string]any{},
	})

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}

	var body validationErrorResponse
	decodeJSON(t, resp, &body)

	found := false
	for _, field := range body.Details {
		if field == "customerPhone" {
			found = true
		}
	}
	if !found {
		t.Fatalf("details = %v, want customerPhone listed", body.Details)
	}
	if dispatcher.calls != 0 {
		t.Fatalf("dispatcher called %d times, want 0", dispatcher.calls)
	}
}

func TestDispatchNotificationMigrationRequiredReturns503(t *testing.T) {
	t.Parallel()

	dispatcher := &fakeDispatcher{
		dispatchFn: func(ctx context.Context, req domain.DispatchRequest) (*service.DispatchResult, error) {
			return nil, fmt.Errorf("%w: relation \"push_subscriptions\" does not exist", domain.ErrMigrationRequired)
		},
	}
	app := newDispatchTestApp(t, dispatcher)

	resp := postJSON(t, app, "/v1/notifications/push", map[string]any{
		"organizationId":   "org-1",
		"ticketId":         "ticket-1",
		"customerPhone":    "905551112233",
		"notificationType": "your_turn",
		"payload":          map[string]any{},
	})

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}
}

func TestDispatchNotificationSuccessResponseShape(t *testing.T) {
	t.Parallel()

	dispatcher := &fakeDispatcher{
		dispatchFn: func(ctx context.Context, req domain.DispatchRequest) (*service.DispatchResult, error) {
			if req.Type != domain.TypeYourTurn {
				t.Fatalf("type = %s, want your_turn", req.Type)
			}
			return &service.DispatchResult{
				Notified: true,
				Push: &push.Result{
					Results: []push.SendResult{
						{Endpoint: "https://push.example/1", Success: true},
						{Endpoint: "https://push.example/2", Error: "timeout"},
					},
					SuccessCount: 1,
					FailureCount: 1,
				},
			}, nil
		},
	}
	app := newDispatchTestApp(t, dispatcher)

	resp := postJSON(t, app, "/v1/notifications/push", map[string]any{
		"organizationId":   "org-1",
		"ticketId":         "ticket-1",
		"customerPhone":    "905551112233",
		"notificationType": "your_turn",
		"payload":          map[string]any{"title": "custom"},
	})

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body dispatchResponse
	decodeJSON(t, resp, &body)

	if !body.Success {
		t.Fatal("success = false, want true")
	}
	if body.Results.Total != 2 || body.Results.Success != 1 || body.Results.Failed != 1 {
		t.Fatalf("results = %+v, want total=2 success=1 failed=1", body.Results)
	}
	if body.WhatsAppFallback != nil {
		t.Fatalf("whatsappFallback = %+v, want omitted", body.WhatsAppFallback)
	}
}

func TestDispatchNotificationBlockedFallbackExplained(t *testing.T) {
	t.Parallel()

	dispatcher := &fakeDispatcher{
		dispatchFn: func(ctx context.Context, req domain.DispatchRequest) (*service.DispatchResult, error) {
			return &service.DispatchResult{
				Push: &push.Result{
					Results:      []push.SendResult{{Endpoint: "https://push.example/1", Error: "timeout"}},
					FailureCount: 1,
				},
				MessagingReason: "push reached no one, falling back so the customer is not left uninformed",
				Messaging: &messaging.SendOutcome{
					Attempted: false,
					Phone:     "905551112233",
					Reason:    "no_active_session",
				},
			}, nil
		},
	}
	app := newDispatchTestApp(t, dispatcher)

	resp := postJSON(t, app, "/v1/notifications/push", map[string]any{
		"organizationId":   "org-1",
		"ticketId":         "ticket-1",
		"customerPhone":    "905551112233",
		"notificationType": "your_turn",
		"payload":          map[string]any{},
	})

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body dispatchResponse
	decodeJSON(t, resp, &body)

	if body.Success {
		t.Fatal("success = true, want false")
	}
	if body.WhatsAppFallback == nil || body.WhatsAppFallback.Reason != "no_active_session" {
		t.Fatalf("whatsappFallback = %+v, want reason no_active_session", body.WhatsAppFallback)
	}
	if body.Message != "no_active_session" {
		t.Fatalf("message = %q, want no_active_session", body.Message)
	}
}

func TestDispatchNotificationInvalidTypeRejected(t *testing.T) {
	t.Parallel()

	dispatcher := &fakeDispatcher{
		dispatchFn: func(ctx context.Context, req domain.DispatchRequest) (*service.DispatchResult, error) {
			return nil, req.Validate()
		},
	}
	app := newDispatchTestApp(t, dispatcher)

	resp := postJSON(t, app, "/v1/notifications/push", map[string]any{
		"organizationId":   "org-1",
		"ticketId":         "ticket-1",
		"customerPhone":    "905551112233",
		"notificationType": "carrier_pigeon",
		"payload":          map[string]any{},
	})

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}
