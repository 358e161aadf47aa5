package common

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	apperrors "antigravity2api-go/internal/errors"
)

func TestAbortWithAPIErrorRendersPerDialect(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		check  func(t *testing.T, body string)
		status int
	}{
		{
			name:   "openai envelope",
			path:   "/v1/chat/completions",
			status: http.StatusBadRequest,
			check: func(t *testing.T, body string) {
				require.Equal(t, "missing model", gjson.Get(body, "error.message").String())
				require.Equal(t, "invalid_request_error", gjson.Get(body, "error.type").String())
			},
		},
		{
			name:   "claude envelope",
			path:   "/v1/messages",
			status: http.StatusBadRequest,
			check: func(t *testing.T, body string) {
				require.Equal(t, "error", gjson.Get(body, "type").String())
				require.Equal(t, "missing model", gjson.Get(body, "error.message").String())
			},
		},
		{
			name:   "gemini envelope",
			path:   "/v1beta/models/gemini-2.5-flash:generateContent",
			status: http.StatusBadRequest,
			check: func(t *testing.T, body string) {
				require.Equal(t, int64(http.StatusBadRequest), gjson.Get(body, "error.code").Int())
				require.Equal(t, "missing model", gjson.Get(body, "error.message").String())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest("POST", tt.path, nil)

			AbortWithAPIError(c, apperrors.New(http.StatusBadRequest, "invalid_request", "invalid_request_error", "missing model"))

			require.Equal(t, tt.status, w.Code)
			require.True(t, c.IsAborted())
			tt.check(t, w.Body.String())
		})
	}
}

func TestAbortWithAPIErrorNil(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/v1/models", nil)

	AbortWithAPIError(c, nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestAsAPIError(t *testing.T) {
	orig := apperrors.New(http.StatusForbidden, "permission_denied", "permission_error", "nope")
	require.Same(t, orig, AsAPIError(orig))

	wrapped := AsAPIError(errors.New("boom"))
	require.Equal(t, http.StatusInternalServerError, wrapped.HTTPStatus)
	require.Equal(t, "server_error", wrapped.Code)
	require.Nil(t, AsAPIError(nil))
}

func TestStreamErrorDialects(t *testing.T) {
	sw, w := newTestWriter(t)
	apiErr := apperrors.New(http.StatusTooManyRequests, "rate_limit_exceeded", "rate_limit_error", "slow down")

	StreamError(sw, apperrors.FormatClaude, apiErr)
	require.Contains(t, w.Body.String(), "event: error\n")

	StreamError(sw, apperrors.FormatOpenAI, apiErr)
	require.Contains(t, w.Body.String(), `"type":"rate_limit_error"`)
}
