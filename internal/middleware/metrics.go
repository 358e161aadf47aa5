package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"antigravity2api-go/internal/httpformat"
	"antigravity2api-go/internal/monitoring"
)

func statusClass(code int) string {
	if code <= 0 {
		return "error"
	}
	return fmt.Sprintf("%dxx", code/100)
}

// Metrics tracks per-route request counts and latency. The dialect label
// comes from the format pinned on the context by the handler, so one
// middleware instance serves every route group.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		monitoring.HTTPInFlight.Inc()
		c.Next()
		monitoring.HTTPInFlight.Dec()

		dialect := string(httpformat.DetectFromContext(c))
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		sc := statusClass(c.Writer.Status())

		monitoring.HTTPRequestsTotal.WithLabelValues(dialect, c.Request.Method, path, sc).Inc()
		monitoring.HTTPRequestDuration.WithLabelValues(dialect, c.Request.Method, path, sc).Observe(time.Since(start).Seconds())
	}
}

// SetRateLimitKeyGauge sets the current per-key limiter count.
func SetRateLimitKeyGauge(n int) {
	monitoring.RateLimitKeysGauge.Set(float64(n))
}

// RecordRateLimitSweep increments the sweep counter for the limiter TTL cache.
func RecordRateLimitSweep() {
	monitoring.RateLimitSweepsTotal.Inc()
}
