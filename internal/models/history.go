package models

import "time"

// DefaultHistoryLimit bounds the request-history log.
const DefaultHistoryLimit = 500

// HistoryRecord is one completed gateway request. Only the access-token
// suffix is recorded.
type HistoryRecord struct {
	Time             time.Time `json:"time"`
	Method           string    `json:"method"`
	Path             string    `json:"path"`
	Model            string    `json:"model,omitempty"`
	Status           int       `json:"status"`
	DurationMS       int64     `json:"duration_ms"`
	Outcome          string    `json:"outcome"`
	TokenSuffix      string    `json:"token_suffix,omitempty"`
	PromptTokens     int64     `json:"prompt_tokens,omitempty"`
	CompletionTokens int64     `json:"completion_tokens,omitempty"`
}

// Outcome labels for history records.
const (
	OutcomeOK              = "ok"
	OutcomeQuotaExhausted  = "quota_exhausted"
	OutcomeAuthInvalid     = "auth_invalid"
	OutcomeTransportError  = "transport_error"
	OutcomeCancelled       = "cancelled"
	OutcomeUpstreamError   = "upstream_error"
	OutcomeContextOverflow = "context_overflow"
)
