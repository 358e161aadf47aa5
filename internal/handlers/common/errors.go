// Package common carries the pieces every dialect handler shares: SSE
// writing with heartbeats, bounded request reading, error rendering in the
// caller's dialect, and history recording.
package common

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "antigravity2api-go/internal/errors"
	"antigravity2api-go/internal/httpformat"
)

// AbortWithAPIError renders err in the dialect pinned on the context and
// aborts. Safe for nil.
func AbortWithAPIError(c *gin.Context, err *apperrors.APIError) {
	if err == nil {
		err = apperrors.New(http.StatusInternalServerError, "server_error", "api_error", "unknown error")
	}

	format := httpformat.DetectFromContext(c)
	payload, marshalErr := err.ToJSON(format)
	if marshalErr != nil {
		c.JSON(safeStatus(err.HTTPStatus), gin.H{
			"error": gin.H{"message": err.Message, "type": err.Type, "code": err.Code},
		})
		c.Abort()
		return
	}
	c.Data(safeStatus(err.HTTPStatus), "application/json", payload)
	c.Abort()
}

// AbortWithError builds an APIError from loose fields and aborts.
func AbortWithError(c *gin.Context, status int, typ, message string) {
	if strings.TrimSpace(typ) == "" {
		typ = "api_error"
	}
	if strings.TrimSpace(message) == "" {
		message = "internal error"
	}
	AbortWithAPIError(c, apperrors.New(safeStatus(status), typ, typ, message))
}

// InvalidRequest wraps a translation/validation failure as a 400.
func InvalidRequest(err error) *apperrors.APIError {
	msg := "invalid request"
	if err != nil {
		msg = err.Error()
	}
	return apperrors.New(http.StatusBadRequest, "invalid_request", "invalid_request_error", msg)
}

// NoAccountsError maps an empty or unready pool to the client-facing 503.
func NoAccountsError(err error) *apperrors.APIError {
	msg := "no usable accounts in the pool"
	if err != nil {
		msg = err.Error()
	}
	return apperrors.New(http.StatusServiceUnavailable, "no_accounts", "api_error", msg)
}

// AsAPIError normalizes any dispatch error for rendering. Context errors
// should be filtered by the caller first; everything unknown becomes a 500.
func AsAPIError(err error) *apperrors.APIError {
	if err == nil {
		return nil
	}
	if apiErr, ok := err.(*apperrors.APIError); ok {
		return apiErr
	}
	return apperrors.New(http.StatusInternalServerError, "server_error", "api_error", err.Error())
}

// StreamError emits an in-stream error frame in the caller's dialect.
// Anthropic uses a named error event; the JSON dialects get a data frame.
func StreamError(w *SSEWriter, format apperrors.ErrorFormat, apiErr *apperrors.APIError) {
	if apiErr == nil {
		return
	}
	payload, err := apiErr.ToJSON(format)
	if err != nil {
		return
	}
	if format == apperrors.FormatClaude {
		_ = w.Event("error", rawJSON(payload))
		return
	}
	_ = w.Data(rawJSON(payload))
}

func safeStatus(status int) int {
	if status >= 400 && status <= 599 {
		return status
	}
	return http.StatusInternalServerError
}
