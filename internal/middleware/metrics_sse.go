package middleware

import (
	"antigravity2api-go/internal/monitoring"
)

// RecordSSELines adds to the SSE frame counter for a dialect/path.
func RecordSSELines(dialect, path string, n int) {
	if n <= 0 {
		return
	}
	monitoring.SSELinesTotal.WithLabelValues(dialect, path).Add(float64(n))
}

// RecordToolCalls adds to the tool calls counter for a dialect/path.
func RecordToolCalls(dialect, path string, n int) {
	if n <= 0 {
		return
	}
	monitoring.ToolCallsTotal.WithLabelValues(dialect, path).Add(float64(n))
}

// RecordSSEClose increments an SSE disconnect reason counter.
func RecordSSEClose(dialect, path, reason string) {
	if reason == "" {
		reason = "other"
	}
	monitoring.SSEDisconnectsTotal.WithLabelValues(dialect, path, reason).Inc()
}

// RecordTokens adds token usage counters for a model.
func RecordTokens(model string, prompt, completion, thoughts, total int64) {
	if model == "" {
		model = "unknown"
	}
	add := func(kind string, n int64) {
		if n > 0 {
			monitoring.TokensUsed.WithLabelValues(model, kind).Add(float64(n))
		}
	}
	add("prompt", prompt)
	add("completion", completion)
	add("thoughts", thoughts)
	add("total", total)
}
