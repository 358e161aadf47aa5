package errors

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/tidwall/gjson"
)

// MapHTTPError converts an upstream HTTP status and response body into an
// APIError suitable for rendering in any client dialect. The upstream message
// is preserved when it can be extracted; otherwise a stable default is used.
func MapHTTPError(statusCode int, body []byte, headers http.Header) *APIError {
	msg := extractUpstreamMessage(body)

	switch statusCode {
	case http.StatusBadRequest:
		return New(statusCode, "invalid_request", "invalid_request_error",
			firstNonEmpty(msg, "Invalid request to upstream"))
	case http.StatusUnauthorized:
		return New(statusCode, "invalid_credentials", "authentication_error",
			firstNonEmpty(msg, "Upstream credentials rejected"))
	case http.StatusForbidden:
		return New(statusCode, "permission_denied", "permission_error",
			firstNonEmpty(msg, "No usage permission for this resource"))
	case http.StatusNotFound:
		return New(statusCode, "not_found", "invalid_request_error",
			firstNonEmpty(msg, "Requested resource not found upstream"))
	case http.StatusTooManyRequests:
		err := New(statusCode, "rate_limit_exceeded", "rate_limit_error",
			firstNonEmpty(msg, "Upstream quota exhausted"))
		if ra := parseRetryAfter(headers); ra > 0 {
			err.RetryAfter = ra
		}
		return err
	case http.StatusInternalServerError:
		return New(statusCode, "upstream_error", "api_error",
			firstNonEmpty(msg, "Upstream internal error"))
	case http.StatusBadGateway, http.StatusServiceUnavailable:
		return New(statusCode, "upstream_unavailable", "api_error",
			firstNonEmpty(msg, "Upstream temporarily unavailable"))
	case http.StatusGatewayTimeout:
		return New(statusCode, "upstream_timeout", "api_error",
			firstNonEmpty(msg, "Upstream request timed out"))
	default:
		if statusCode >= 500 {
			return New(statusCode, "upstream_error", "api_error",
				firstNonEmpty(msg, fmt.Sprintf("Upstream returned status %d", statusCode)))
		}
		return New(statusCode, "upstream_error", "invalid_request_error",
			firstNonEmpty(msg, fmt.Sprintf("Upstream returned status %d", statusCode)))
	}
}

// extractUpstreamMessage pulls error.message out of a JSON error body.
// Non-JSON bodies are passed through truncated so callers still see
// something actionable in logs and client responses.
func extractUpstreamMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	if m := gjson.GetBytes(body, "error.message"); m.Exists() {
		return m.String()
	}
	// 数组包裹的错误体（批量接口）取第一个元素
	if m := gjson.GetBytes(body, "0.error.message"); m.Exists() {
		return m.String()
	}
	s := string(body)
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}

// parseRetryAfter handles both delta-seconds and HTTP-date forms.
func parseRetryAfter(headers http.Header) time.Duration {
	if headers == nil {
		return 0
	}
	v := headers.Get("Retry-After")
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
