package push

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/kuyruklab/notify-engine/internal/domain"
	"github.com/kuyruklab/notify-engine/internal/observability"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	sendTimeout       = 10 * time.Second
	endpointMaxLen    = 50
	defaultTTLSeconds = 60 * 60 * 24
)

// Deactivator invalidates a dead subscription endpoint.
type Deactivator interface {
	Deactivate(ctx context.Context, id string) error
}

// Payload is the JSON document delivered to the service worker.
type Payload struct {
	Title    string `json:"title"`
	Body     string `json:"body"`
	Icon     string `json:"icon,omitempty"`
	Type     string `json:"type,omitempty"`
	TicketID string `json:"ticketId,omitempty"`
}

// SendResult is the per-subscription outcome. Endpoint is truncated so full
// subscription URLs never leak into logs or responses.
type SendResult struct {
	Endpoint string `json:"endpoint"`
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
}

// Result aggregates one fan-out.
type Result struct {
	Results      []SendResult
	SuccessCount int
	FailureCount int
}

type sendFunc func(ctx context.Context, payload []byte, sub *webpush.Subscription, opts *webpush.Options) (*http.Response, error)

// Engine delivers a payload to every subscription of a target concurrently
// and deactivates endpoints the gateway reports gone.
type Engine struct {
	deactivator Deactivator
	logger      *zap.Logger
	metrics     *observability.Metrics
	subscriber  string
	publicKey   string
	privateKey  string
	send        sendFunc
}

func NewEngine(deactivator Deactivator, subscriber, vapidPublicKey, vapidPrivateKey string, logger *zap.Logger) (*Engine, error) {
	if vapidPublicKey == "" || vapidPrivateKey == "" {
		return nil, fmt.Errorf("VAPID keys are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Engine{
		deactivator: deactivator,
		logger:      logger,
		subscriber:  subscriber,
		publicKey:   vapidPublicKey,
		privateKey:  vapidPrivateKey,
		send:        webpush.SendNotificationWithContext,
	}, nil
}

func (e *Engine) SetMetrics(metrics *observability.Metrics) {
	if e == nil {
		return
	}
	e.metrics = metrics
}

// Send fans out to all subscriptions and waits for every outcome. Failures
// are isolated per subscription and never abort siblings.
func (e *Engine) Send(ctx context.Context, subscriptions []domain.PushSubscription, payload Payload) (*Result, error) {
	if e == nil {
		return nil, fmt.Errorf("push engine is not initialized")
	}

	result := &Result{Results: make([]SendResult, len(subscriptions))}
	if len(subscriptions) == 0 {
		return result, nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal push payload: %w", err)
	}

	g, groupCtx := errgroup.WithContext(ctx)
	for i := range subscriptions {
		sub := subscriptions[i]
		idx := i

		g.Go(func() error {
			result.Results[idx] = e.sendOne(groupCtx, sub, body)
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range result.Results {
		if r.Success {
			result.SuccessCount++
		} else {
			result.FailureCount++
		}
	}

	return result, nil
}

func (e *Engine) sendOne(ctx context.Context, sub domain.PushSubscription, body []byte) SendResult {
	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	start := time.Now()
	resp, err := e.send(sendCtx, body, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dh,
			Auth:   sub.Auth,
		},
	}, &webpush.Options{
		Subscriber:      e.subscriber,
		VAPIDPublicKey:  e.publicKey,
		VAPIDPrivateKey: e.privateKey,
		TTL:             defaultTTLSeconds,
	})
	e.metrics.ObserveDeliveryDuration(domain.ChannelPush.String(), time.Since(start))

	truncated := TruncateEndpoint(sub.Endpoint)

	if err != nil {
		e.metrics.IncDelivery(domain.ChannelPush.String(), false)
		if isGoneError(0, err.Error()) {
			e.deactivateAsync(sub.ID, truncated)
		}
		return SendResult{Endpoint: truncated, Error: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		e.metrics.IncDelivery(domain.ChannelPush.String(), true)
		return SendResult{Endpoint: truncated, Success: true}
	}

	e.metrics.IncDelivery(domain.ChannelPush.String(), false)
	errMsg := fmt.Sprintf("push endpoint returned status %d", resp.StatusCode)
	if isGoneError(resp.StatusCode, errMsg) {
		e.deactivateAsync(sub.ID, truncated)
	}

	return SendResult{Endpoint: truncated, Error: errMsg}
}

// deactivateAsync invalidates a dead endpoint without blocking the fan-out.
func (e *Engine) deactivateAsync(subscriptionID, truncatedEndpoint string) {
	if e.deactivator == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()

		if err := e.deactivator.Deactivate(ctx, subscriptionID); err != nil {
			e.logger.Warn("failed to deactivate dead push subscription",
				zap.String("subscriptionId", subscriptionID),
				zap.String("endpoint", truncatedEndpoint),
				zap.Error(err),
			)
			return
		}

		e.logger.Info("deactivated dead push subscription",
			zap.String("subscriptionId", subscriptionID),
			zap.String("endpoint", truncatedEndpoint),
		)
	}()
}

// isGoneError reports whether a delivery failure means the endpoint no
// longer exists and the subscription should stop being attempted.
func isGoneError(statusCode int, message string) bool {
	if statusCode == http.StatusGone || statusCode == http.StatusNotFound {
		return true
	}
	lower := strings.ToLower(message)
	return strings.Contains(lower, "410") || strings.Contains(lower, "invalid")
}

// TruncateEndpoint shortens a subscription URL for logs and responses.
func TruncateEndpoint(endpoint string) string {
	if len(endpoint) <= endpointMaxLen {
		return endpoint
	}
	return endpoint[:endpointMaxLen] + "..."
}
