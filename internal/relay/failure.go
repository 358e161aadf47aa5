package relay

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"

	"antigravity2api-go/internal/constants"
	apperrors "antigravity2api-go/internal/errors"
	"antigravity2api-go/internal/models"
)

// errorBodyLimit bounds how much of an upstream error body gets read for
// classification and the client message.
const errorBodyLimit = 64 * 1024

// failFromResponse reads the error body and classifies a non-2xx upstream
// answer. 403 bifurcates: the context-overflow text is a user error and
// must not cost the account, everything else is a permission failure.
// Quota markers in 429/403 bodies tag the error so Outcome flips hasQuota.
func failFromResponse(resp *http.Response) *apperrors.APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))

	apiErr := apperrors.MapHTTPError(resp.StatusCode, body, resp.Header)
	switch {
	case resp.StatusCode == http.StatusForbidden && bytes.Contains(body, []byte(constants.ContextOverflowMarker)):
		apiErr.HTTPStatus = http.StatusBadRequest
		apiErr.Code = "context_length_exceeded"
		apiErr.Type = "invalid_request_error"
	case quotaMarked(resp.StatusCode, body):
		apiErr.Code = "quota_exhausted"
	}
	return apiErr
}

func quotaMarked(status int, body []byte) bool {
	if status != http.StatusForbidden && status != http.StatusTooManyRequests {
		return false
	}
	for _, marker := range constants.QuotaExhaustedMarkers {
		if bytes.Contains(body, []byte(marker)) {
			return true
		}
	}
	return false
}

// Outcome maps a dispatch error onto the account release label. The pool
// turns quota_exhausted into hasQuota=false and auth_invalid into a
// disable; everything else is neutral bookkeeping.
func Outcome(err error) string {
	if err == nil {
		return models.OutcomeOK
	}
	if errors.Is(err, context.Canceled) {
		return models.OutcomeCancelled
	}

	var apiErr *apperrors.APIError
	if !errors.As(err, &apiErr) {
		return models.OutcomeTransportError
	}
	switch apiErr.Code {
	case "quota_exhausted":
		return models.OutcomeQuotaExhausted
	case "invalid_credentials", "permission_denied":
		return models.OutcomeAuthInvalid
	case "context_length_exceeded":
		return models.OutcomeContextOverflow
	case "request_cancelled":
		return models.OutcomeCancelled
	}
	switch apiErr.Type {
	case "network_error", "timeout_error":
		return models.OutcomeTransportError
	}
	return models.OutcomeUpstreamError
}
