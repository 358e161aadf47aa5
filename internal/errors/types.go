package errors

import "time"

// ErrorFormat selects the wire shape an error is rendered in.
type ErrorFormat string

const (
	FormatOpenAI ErrorFormat = "openai"
	FormatClaude ErrorFormat = "claude"
	FormatGemini ErrorFormat = "gemini"
)

// APIError is the gateway-wide error carrier. It keeps enough structure to
// render the OpenAI, Anthropic, and Gemini envelopes without re-deriving
// anything at the write site.
type APIError struct {
	HTTPStatus int
	Code       string
	Message    string
	Type       string
	Details    map[string]interface{}
	RetryAfter time.Duration
}

func (e *APIError) Error() string { return e.Message }

// OpenAIError mirrors OpenAI's error envelope.
type OpenAIError struct {
	Error struct {
		Message string                 `json:"message"`
		Type    string                 `json:"type"`
		Code    string                 `json:"code,omitempty"`
		Details map[string]interface{} `json:"details,omitempty"`
	} `json:"error"`
}

// ClaudeError mirrors Anthropic's error envelope.
type ClaudeError struct {
	Type  string `json:"type"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// GeminiError mirrors the generative-language error structure.
type GeminiError struct {
	Error struct {
		Code    int                    `json:"code"`
		Message string                 `json:"message"`
		Status  string                 `json:"status"`
		Details map[string]interface{} `json:"details,omitempty"`
	} `json:"error"`
}
