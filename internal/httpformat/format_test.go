package httpformat

import (
	"net/http/httptest"
	"testing"

	"antigravity2api-go/internal/errors"
)

func TestDetectFromPath(t *testing.T) {
	cases := []struct {
		path string
		want errors.ErrorFormat
	}{
		{"/v1/chat/completions", errors.FormatOpenAI},
		{"/v1/models", errors.FormatOpenAI},
		{"/v1/messages", errors.FormatClaude},
		{"/v1/messages/count_tokens", errors.FormatClaude},
		{"/v1beta/models", errors.FormatGemini},
		{"/v1beta/models/gemini-2.5-pro:generateContent", errors.FormatGemini},
		{"/v1beta/models/gemini-2.5-pro:streamGenerateContent", errors.FormatGemini},
		{"/v1internal:generateContent", errors.FormatGemini},
		{"/health", errors.FormatOpenAI},
	}
	for _, tc := range cases {
		if got := DetectFromPath(tc.path); got != tc.want {
			t.Fatalf("DetectFromPath(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}

func TestDetectFromRequestHeaders(t *testing.T) {
	r := httptest.NewRequest("POST", "/v1/models", nil)
	r.Header.Set("anthropic-version", "2023-06-01")
	if got := DetectFromRequest(r); got != errors.FormatClaude {
		t.Fatalf("anthropic-version header should force Claude, got %v", got)
	}

	r2 := httptest.NewRequest("POST", "/v1/models", nil)
	r2.Header.Set("x-api-key", "sk-test")
	if got := DetectFromRequest(r2); got != errors.FormatClaude {
		t.Fatalf("x-api-key header should force Claude, got %v", got)
	}
}
