package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultGatewayTimeout = 10 * time.Second

type sendTextRequest struct {
	Token string `json:"token"`
	To    string `json:"to"`
	Body  string `json:"body"`
}

type sendTextResponse struct {
	Sent    bool            `json:"sent"`
	ID      json.RawMessage `json:"id"`
	Message string          `json:"message"`
}

// GatewayClient talks to the WhatsApp-style messaging gateway. Every
// organization has its own instance and token; the client itself is shared.
type GatewayClient struct {
	client  *resty.Client
	baseURL string
}

func NewGatewayClient(baseURL string) (*GatewayClient, error) {
	client := resty.New()
	client.SetTimeout(defaultGatewayTimeout)
	client.SetRetryCount(0)

	return NewGatewayClientWithResty(baseURL, client)
}

func NewGatewayClientWithResty(baseURL string, client *resty.Client) (*GatewayClient, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, fmt.Errorf("gateway base url is required")
	}
	if _, err := url.ParseRequestURI(trimmed); err != nil {
		return nil, fmt.Errorf("invalid gateway base url: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultGatewayTimeout)
	}
	client.SetRetryCount(0)

	return &GatewayClient{
		client:  client,
		baseURL: trimmed,
	}, nil
}

// SendText posts one text message through the organization's gateway
// instance and returns the gateway message ID.
func (c *GatewayClient) SendText(ctx context.Context, instanceID, token, phone, body string) (string, error) {
	if c == nil || c.client == nil {
		return "", fmt.Errorf("gateway client is not initialized")
	}
	if instanceID == "" || token == "" {
		return "", fmt.Errorf("gateway credentials are required")
	}

	endpoint := fmt.Sprintf("%s/%s/messages/chat", c.baseURL, instanceID)

	response, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(sendTextRequest{Token: token, To: phone, Body: body}).
		Post(endpoint)
	if err != nil {
		return "", &GatewayError{
			Message:   "gateway request failed",
			Transient: true,
			Cause:     err,
		}
	}

	statusCode := response.StatusCode()
	responseBody := strings.TrimSpace(response.String())

	var parsed sendTextResponse
	_ = json.Unmarshal(response.Body(), &parsed)

	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices && parsed.Sent {
		return messageIDString(parsed.ID), nil
	}

	message := parsed.Message
	if message == "" {
		message = fmt.Sprintf("gateway returned status %d", statusCode)
		if responseBody != "" {
			message = fmt.Sprintf("%s: %s", message, responseBody)
		}
	}

	return "", &GatewayError{
		StatusCode: statusCode,
		Message:    message,
		Transient:  isTransientHTTPStatus(statusCode),
	}
}

func isTransientHTTPStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || (statusCode >= http.StatusInternalServerError && statusCode <= 599)
}

func messageIDString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString
	}

	var asNumber json.Number
	if err := json.Unmarshal(raw, &asNumber); err == nil {
		return asNumber.String()
	}

	return strings.Trim(string(raw), `"`)
}
