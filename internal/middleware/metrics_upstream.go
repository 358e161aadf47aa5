package middleware

import (
	"math"
	"time"

	"antigravity2api-go/internal/monitoring"
)

// RecordUpstream records upstream request duration and status classification
// by endpoint (stream/generate/models).
func RecordUpstream(endpoint string, dur time.Duration, status int, networkErr bool) {
	cls := statusClass(status)
	if networkErr {
		cls = "network_error"
	}
	durSec := dur.Seconds()
	if math.IsNaN(durSec) || math.IsInf(durSec, 0) {
		durSec = 0
	}
	monitoring.UpstreamRequestsTotal.WithLabelValues(endpoint, cls).Inc()
	monitoring.UpstreamRequestDuration.WithLabelValues(endpoint).Observe(durSec)
}

// RecordUpstreamRetry adds retry attempt counts (attempts beyond the first) by endpoint/outcome.
func RecordUpstreamRetry(endpoint string, attempts int, success bool) {
	if attempts <= 0 {
		return
	}
	outcome := "error"
	if success {
		outcome = "success"
	}
	monitoring.UpstreamRetryAttempts.WithLabelValues(endpoint, outcome).Add(float64(attempts))
}

// RecordUpstreamError increments upstream error by reason
func RecordUpstreamError(endpoint, reason string) {
	if reason == "" {
		reason = "other"
	}
	monitoring.UpstreamErrors.WithLabelValues(endpoint, reason).Inc()
}

// RecordUpstreamModel increments per-model upstream counters by model/status class.
func RecordUpstreamModel(model string, status int, networkErr bool) {
	if model == "" {
		model = "unknown"
	}
	cls := statusClass(status)
	if networkErr {
		cls = "network_error"
	}
	monitoring.UpstreamModelRequests.WithLabelValues(model, cls).Inc()
}
