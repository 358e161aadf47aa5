package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestStatusClass(t *testing.T) {
	tests := []struct {
		name     string
		code     int
		expected string
	}{
		{"2xx success", 200, "2xx"},
		{"2xx created", 201, "2xx"},
		{"3xx not modified", 304, "3xx"},
		{"4xx bad request", 400, "4xx"},
		{"4xx too many requests", 429, "4xx"},
		{"5xx server error", 500, "5xx"},
		{"zero means aborted", 0, "error"},
		{"negative", -1, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, statusClass(tt.code))
		})
	}
}

func TestMetricsMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Metrics())
	router.POST("/v1/chat/completions", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})
	router.POST("/v1beta/models/:model", func(c *gin.Context) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "boom"})
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("POST", "/v1/chat/completions", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("POST", "/v1beta/models/gemini-2.5-flash:generateContent", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRecordStreamHelpers(t *testing.T) {
	// 只验证不 panic；具体数值由 Prometheus 端到端采集覆盖。
	RecordSSELines("openai", "/v1/chat/completions", 10)
	RecordSSELines("openai", "/v1/chat/completions", 0)
	RecordToolCalls("claude", "/v1/messages", 2)
	RecordToolCalls("claude", "/v1/messages", -1)
	RecordSSEClose("gemini", "/v1beta/models/:model", "done")
	RecordSSEClose("gemini", "/v1beta/models/:model", "")
	RecordTokens("gemini-2.5-flash", 10, 5, 2, 17)
	RecordTokens("", 0, 0, 0, 0)
}

func TestRecordUpstreamHelpers(t *testing.T) {
	RecordUpstream("stream", 120, http.StatusOK, false)
	RecordUpstream("generate", 0, 0, true)
	RecordUpstreamRetry("stream", 2, true)
	RecordUpstreamRetry("stream", 0, false)
	RecordUpstreamError("models", "")
	RecordUpstreamModel("gemini-2.5-flash", http.StatusTooManyRequests, false)
	RecordUpstreamModel("", 0, true)
}
