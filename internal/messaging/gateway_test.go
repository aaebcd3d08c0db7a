package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSendTextSuccessReturnsMessageID(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/instance-1/messages/chat" {
			t.Fatalf("path = %s, want /instance-1/messages/chat", r.URL.Path)
		}

		var req sendTextRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req.Token != "secret-token" {
			t.Fatalf("token = %s, want secret-token", req.Token)
		}
		if req.To != "905551112233" {
			t.Fatalf("to = %s, want 905551112233", req.To)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"sent": true, "id": 4711}`))
	}))
	defer server.Close()

	client, err := NewGatewayClient(server.URL)
	if err != nil {
		t.Fatalf("NewGatewayClient() error = %v", err)
	}

	id, err := client.SendText(context.Background(), "instance-1", "secret-token", "905551112233", "hello")
	if err != nil {
		t.Fatalf("SendText() error = %v", err)
	}
	if id != "4711" {
		t.Fatalf("message id = %q, want 4711", id)
	}
}

func TestSendTextStringMessageID(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"sent": true, "id": "abc-123"}`))
	}))
	defer server.Close()

	client, err := NewGatewayClient(server.URL)
	if err != nil {
		t.Fatalf("NewGatewayClient() error = %v", err)
	}

	id, err := client.SendText(context.Background(), "instance-1", "token", "905551112233", "hello")
	if err != nil {
		t.Fatalf("SendText() error = %v", err)
	}
	if id != "abc-123" {
		t.Fatalf("message id = %q, want abc-123", id)
	}
}

func TestSendTextRejectionReturnsGatewayError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"sent": false, "message": "invalid number"}`))
	}))
	defer server.Close()

	client, err := NewGatewayClient(server.URL)
	if err != nil {
		t.Fatalf("NewGatewayClient() error = %v", err)
	}

	_, err = client.SendText(context.Background(), "instance-1", "token", "0000000000", "test")
	if err == nil {
		t.Fatal("expected an error")
	}

	var gatewayErr *GatewayError
	if !errors.As(err, &gatewayErr) {
		t.Fatalf("error = %T, want *GatewayError", err)
	}
	if gatewayErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", gatewayErr.StatusCode)
	}
	if gatewayErr.Message != "invalid number" {
		t.Fatalf("message = %q, want invalid number", gatewayErr.Message)
	}
	if gatewayErr.Transient {
		t.Fatal("a 400 rejection is not transient")
	}
}

func TestSendTextServerErrorIsTransient(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client, err := NewGatewayClient(server.URL)
	if err != nil {
		t.Fatalf("NewGatewayClient() error = %v", err)
	}

	_, err = client.SendText(context.Background(), "instance-1", "token", "905551112233", "hello")

	var gatewayErr *GatewayError
	if !errors.As(err, &gatewayErr) {
		t.Fatalf("error = %T, want *GatewayError", err)
	}
	if !gatewayErr.Transient {
		t.Fatal("a 502 should be classified as transient")
	}
}

func TestSendTextRequiresCredentials(t *testing.T) {
	t.Parallel()

	client, err := NewGatewayClient("https://gateway.example")
	if err != nil {
		t.Fatalf("NewGatewayClient() error = %v", err)
	}

	if _, err := client.SendText(context.Background(), "", "token", "905551112233", "hi"); err == nil {
		t.Fatal("expected an error for a missing instance id")
	}
	if _, err := client.SendText(context.Background(), "instance-1", "", "905551112233", "hi"); err == nil {
		t.Fatal("expected an error for a missing token")
	}
}

func TestProvesConnectivity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil error", err: nil, want: true},
		{name: "invalid number rejection", err: &GatewayError{StatusCode: 400, Message: "Invalid Number provided"}, want: true},
		{name: "daily limit rejection", err: &GatewayError{StatusCode: 429, Message: "daily limit exceeded"}, want: true},
		{name: "auth failure", err: &GatewayError{StatusCode: 401, Message: "invalid token"}, want: false},
		{name: "network failure", err: errors.New("connection refused"), want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ProvesConnectivity(tt.err); got != tt.want {
				t.Fatalf("ProvesConnectivity(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
