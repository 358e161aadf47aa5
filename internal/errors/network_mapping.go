package errors

import (
	"context"
	"net/http"
	"strings"
)

// MapNetworkError classifies transport-level failures. These never carry an
// upstream body, so classification runs on the error text.
func MapNetworkError(err error) *APIError {
	if err == nil {
		return nil
	}
	if err == context.Canceled {
		return New(499, "request_cancelled", "cancelled_error", "Request cancelled by client")
	}
	if err == context.DeadlineExceeded {
		return New(http.StatusGatewayTimeout, "timeout", "timeout_error", "Upstream request timed out")
	}

	msg := err.Error()
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "context canceled"):
		return New(499, "request_cancelled", "cancelled_error", "Request cancelled by client")
	case strings.Contains(lower, "timeout"), strings.Contains(lower, "deadline exceeded"):
		return New(http.StatusGatewayTimeout, "timeout", "timeout_error", "Upstream request timed out")
	case strings.Contains(lower, "no such host"), strings.Contains(lower, "dns"):
		return New(http.StatusBadGateway, "dns_error", "network_error", "Cannot resolve upstream host")
	case strings.Contains(lower, "connection refused"):
		return New(http.StatusBadGateway, "connection_error", "network_error", "Upstream refused connection")
	case strings.Contains(lower, "connection reset"), strings.Contains(lower, "broken pipe"):
		return New(http.StatusBadGateway, "connection_error", "network_error", "Upstream connection dropped")
	case strings.Contains(lower, "tls"), strings.Contains(lower, "certificate"):
		return New(http.StatusBadGateway, "tls_error", "network_error", "TLS handshake with upstream failed")
	case strings.Contains(lower, "proxy"):
		return New(http.StatusBadGateway, "proxy_error", "network_error", "Proxy connection failed")
	default:
		return New(http.StatusBadGateway, "network_error", "network_error", "Network error: "+msg)
	}
}
