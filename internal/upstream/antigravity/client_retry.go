package antigravity

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"antigravity2api-go/internal/constants"
)

// shouldRetry applies the retry policy: only 429 responses retry, honoring
// Retry-After when the upstream sends one. Network failures and every other
// status surface immediately.
func shouldRetry(resp *http.Response, err error, attempt int) (bool, time.Duration) {
	if err != nil {
		return false, 0
	}
	if resp == nil {
		return false, 0
	}
	if resp.StatusCode != http.StatusTooManyRequests {
		return false, 0
	}
	if d, ok := parseRetryAfter(resp.Header.Get("Retry-After")); ok {
		return true, d
	}
	return true, nextBackoff(attempt)
}

// nextBackoff is exponential with jitter: base·2^attempt capped at the max
// delay, plus up to half that again, jitter itself capped.
func nextBackoff(attempt int) time.Duration {
	dur := float64(constants.RetryBaseDelay) * math.Pow(constants.RetryBackoffFactor, float64(attempt))
	if max := float64(constants.RetryMaxDelay); dur > max {
		dur = max
	}
	jitter := rand.Float64() * dur * 0.5
	if cap := float64(constants.RetryAfterJitterCap); jitter > cap {
		jitter = cap
	}
	return time.Duration(dur + jitter)
}

func parseRetryAfter(v string) (time.Duration, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			secs = 0
		}
		return time.Duration(secs) * time.Second, true
	}
	layouts := []string{time.RFC1123, time.RFC1123Z, time.RFC850, time.ANSIC}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, v); err == nil {
			d := time.Until(t)
			if d < 0 {
				d = 0
			}
			return d, true
		}
	}
	return 0, false
}

func classifyErr(err error) string {
	if err == nil {
		return ""
	}
	if ue, ok := err.(*url.Error); ok {
		if ue.Timeout() {
			return "timeout"
		}
		if ue.Err != nil {
			s := ue.Err.Error()
			if strings.Contains(s, "no such host") {
				return "dns"
			}
			if strings.Contains(s, "connection reset") {
				return "conn_reset"
			}
			if strings.Contains(s, "broken pipe") {
				return "conn_broken_pipe"
			}
			if strings.Contains(s, "i/o timeout") {
				return "timeout"
			}
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "deadline"
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	s := err.Error()
	if strings.Contains(s, "no such host") {
		return "dns"
	}
	if strings.Contains(s, "connection reset") {
		return "conn_reset"
	}
	if strings.Contains(s, "broken pipe") {
		return "conn_broken_pipe"
	}
	if strings.Contains(s, "timeout") {
		return "timeout"
	}
	return "other"
}
