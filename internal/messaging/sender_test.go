package messaging

import (
	"context"
	"errors"
	"testing"

	"github.com/kuyruklab/notify-engine/internal/domain"
	"github.com/kuyruklab/notify-engine/internal/repository"
	"github.com/kuyruklab/notify-engine/internal/template"
)

type fakeQuota struct {
	allowFn func(ctx context.Context, organizationID string) (bool, error)
}

func (f *fakeQuota) Allow(ctx context.Context, organizationID string) (bool, error) {
	if f.allowFn == nil {
		return true, nil
	}
	return f.allowFn(ctx, organizationID)
}

type fakeResolver struct {
	resolveFn func(ctx context.Context, organizationID string) (*domain.GatewayConfig, error)
}

func (f *fakeResolver) Resolve(ctx context.Context, organizationID string) (*domain.GatewayConfig, error) {
	if f.resolveFn == nil {
		return completeConfig(), nil
	}
	return f.resolveFn(ctx, organizationID)
}

type fakeTextSender struct {
	sendFn func(ctx context.Context, instanceID, token, phone, body string) (string, error)
	calls  int
}

func (f *fakeTextSender) SendText(ctx context.Context, instanceID, token, phone, body string) (string, error) {
	f.calls++
	if f.sendFn == nil {
		return "msg-1", nil
	}
	return f.sendFn(ctx, instanceID, token, phone, body)
}

type fakeMessageRenderer struct {
	renderFn func(ctx context.Context, in template.Input) template.Message
}

func (f *fakeMessageRenderer) Render(ctx context.Context, in template.Input) template.Message {
	if f.renderFn == nil {
		return template.Message{Body: "rendered body"}
	}
	return f.renderFn(ctx, in)
}

type fakeTicketContextRepo struct {
	findContextFn func(ctx context.Context, ticketID string) (*repository.TicketContext, error)
}

func (f *fakeTicketContextRepo) FindContext(ctx context.Context, ticketID string) (*repository.TicketContext, error) {
	if f.findContextFn == nil {
		return &repository.TicketContext{
			TicketID:     ticketID,
			TicketNumber: "A-042",
		}, nil
	}
	return f.findContextFn(ctx, ticketID)
}

func (f *fakeTicketContextRepo) FindMostRecentWaiting(ctx context.Context, phone string) (*repository.TicketContext, error) {
	return nil, nil
}

type fakeAuditor struct {
	entries []domain.DeliveryLogEntry
}

func (f *fakeAuditor) Record(entry domain.DeliveryLogEntry) {
	f.entries = append(f.entries, entry)
}

func newTestSender(t *testing.T, renderer MessageRenderer, resolver CredentialResolver, gateway TextSender, quota Quota, tickets repository.TicketContextRepository, auditor *fakeAuditor) *Sender {
	t.Helper()

	sender, err := NewSender(renderer, resolver, gateway, quota, tickets, auditor, nil)
	if err != nil {
		t.Fatalf("NewSender() error = %v", err)
	}
	return sender
}

func TestSendHappyPathRecordsAudit(t *testing.T) {
	t.Parallel()

	gateway := &fakeTextSender{}
	auditor := &fakeAuditor{}
	sender := newTestSender(t, &fakeMessageRenderer{}, &fakeResolver{}, gateway, &fakeQuota{}, &fakeTicketContextRepo{}, auditor)

	outcome := sender.Send(context.Background(), "+905551112233", domain.TypeYourTurn, "org-1", "ticket-1")

	if !outcome.Attempted || !outcome.Success {
		t.Fatalf("outcome = %+v, want an attempted success", outcome)
	}
	if outcome.Phone != "905551112233" {
		t.Fatalf("phone = %q, want normalized 905551112233", outcome.Phone)
	}
	if outcome.MessageID != "msg-1" {
		t.Fatalf("message id = %q, want msg-1", outcome.MessageID)
	}
	if len(auditor.entries) != 1 {
		t.Fatalf("audit entries = %d, want 1", len(auditor.entries))
	}
	entry := auditor.entries[0]
	if entry.Channel != domain.ChannelWhatsApp || !entry.Success || entry.TicketNumber != "A-042" {
		t.Fatalf("audit entry = %+v", entry)
	}
}

func TestSendQuotaExceededRejectsWithReason(t *testing.T) {
	t.Parallel()

	gateway := &fakeTextSender{}
	quota := &fakeQuota{
		allowFn: func(ctx context.Context, organizationID string) (bool, error) {
			return false, nil
		},
	}
	sender := newTestSender(t, &fakeMessageRenderer{}, &fakeResolver{}, gateway, quota, &fakeTicketContextRepo{}, &fakeAuditor{})

	outcome := sender.Send(context.Background(), "905551112233", domain.TypeYourTurn, "org-1", "ticket-1")

	if outcome.Success {
		t.Fatal("quota-rejected send should not succeed")
	}
	if outcome.Reason != ReasonQuotaExceeded {
		t.Fatalf("reason = %q, want %q", outcome.Reason, ReasonQuotaExceeded)
	}
	if gateway.calls != 0 {
		t.Fatalf("gateway called %d times, want 0", gateway.calls)
	}
}

func TestSendQuotaCheckFailureFailsOpen(t *testing.T) {
	t.Parallel()

	gateway := &fakeTextSender{}
	quota := &fakeQuota{
		allowFn: func(ctx context.Context, organizationID string) (bool, error) {
			return false, errors.New("redis unavailable")
		},
	}
	sender := newTestSender(t, &fakeMessageRenderer{}, &fakeResolver{}, gateway, quota, &fakeTicketContextRepo{}, &fakeAuditor{})

	outcome := sender.Send(context.Background(), "905551112233", domain.TypeYourTurn, "org-1", "ticket-1")

	if !outcome.Success {
		t.Fatalf("outcome = %+v, want success when the quota check itself fails", outcome)
	}
	if gateway.calls != 1 {
		t.Fatalf("gateway called %d times, want 1", gateway.calls)
	}
}

func TestSendEmptyTemplateSkipsSend(t *testing.T) {
	t.Parallel()

	gateway := &fakeTextSender{}
	renderer := &fakeMessageRenderer{
		renderFn: func(ctx context.Context, in template.Input) template.Message {
			return template.Message{}
		},
	}
	sender := newTestSender(t, renderer, &fakeResolver{}, gateway, &fakeQuota{}, &fakeTicketContextRepo{}, &fakeAuditor{})

	outcome := sender.Send(context.Background(), "905551112233", domain.TypeTicketCreated, "org-1", "ticket-1")

	if outcome.Attempted {
		t.Fatal("empty template should skip the send, not attempt it")
	}
	if outcome.Reason != "empty_template" {
		t.Fatalf("reason = %q, want empty_template", outcome.Reason)
	}
	if gateway.calls != 0 {
		t.Fatalf("gateway called %d times, want 0", gateway.calls)
	}
}

func TestSendMissingTicketContextUsesFallback(t *testing.T) {
	t.Parallel()

	tickets := &fakeTicketContextRepo{
		findContextFn: func(ctx context.Context, ticketID string) (*repository.TicketContext, error) {
			return nil, domain.ErrNotFound
		},
	}
	auditor := &fakeAuditor{}
	sender := newTestSender(t, &fakeMessageRenderer{}, &fakeResolver{}, &fakeTextSender{}, &fakeQuota{}, tickets, auditor)

	outcome := sender.Send(context.Background(), "905551112233", domain.TypeYourTurn, "org-1", "missing-ticket")

	if !outcome.Success {
		t.Fatalf("outcome = %+v, want success with fallback message", outcome)
	}
	if !outcome.FallbackUsed {
		t.Fatal("expected fallbackUsed=true without ticket context")
	}
	if len(auditor.entries) != 0 {
		t.Fatalf("audit entries = %d, want 0 without real ticket context", len(auditor.entries))
	}
}

func TestSendGatewayNotConfiguredCapturedInOutcome(t *testing.T) {
	t.Parallel()

	resolver := &fakeResolver{
		resolveFn: func(ctx context.Context, organizationID string) (*domain.GatewayConfig, error) {
			return nil, ErrGatewayNotConfigured
		},
	}
	gateway := &fakeTextSender{}
	sender := newTestSender(t, &fakeMessageRenderer{}, resolver, gateway, &fakeQuota{}, &fakeTicketContextRepo{}, &fakeAuditor{})

	outcome := sender.Send(context.Background(), "905551112233", domain.TypeYourTurn, "org-1", "ticket-1")

	if outcome.Success {
		t.Fatal("send should fail without gateway credentials")
	}
	if outcome.Error == "" {
		t.Fatal("outcome should carry the error")
	}
	if gateway.calls != 0 {
		t.Fatalf("gateway called %d times, want 0", gateway.calls)
	}
}
