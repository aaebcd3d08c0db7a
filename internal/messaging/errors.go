package messaging

import (
	"errors"
	"fmt"
	"strings"
)

// ErrGatewayNotConfigured marks organizations with missing or incomplete
// gateway credentials. Their sends fail closed with a clear reason; other
// organizations are unaffected.
var ErrGatewayNotConfigured = errors.New("messaging gateway is not configured for this organization")

// GatewayError classifies gateway call failures.
type GatewayError struct {
	StatusCode int
	Message    string
	Transient  bool
	Cause      error
}

func (e *GatewayError) Error() string {
	if e == nil {
		return "<nil>"
	}

	parts := make([]string, 0, 4)
	parts = append(parts, "gateway error")

	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.StatusCode))
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		parts = append(parts, msg)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}

	return strings.Join(parts, ": ")
}

func (e *GatewayError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Error substrings that prove the gateway authenticated and processed a
// request even though it rejected the message itself.
var connectivityProofSubstrings = []string{
	"invalid number",
	"daily limit exceeded",
}

// ProvesConnectivity reports whether a rejected test send still demonstrates
// a working, authenticated gateway instance.
func ProvesConnectivity(err error) bool {
	if err == nil {
		return true
	}

	var gatewayErr *GatewayError
	if !errors.As(err, &gatewayErr) {
		return false
	}

	lower := strings.ToLower(gatewayErr.Message)
	for _, substr := range connectivityProofSubstrings {
		if strings.Contains(lower, substr) {
			return true
		}
	}
	return false
}
