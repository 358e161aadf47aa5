package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP请求指标
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "antigravity2api_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"dialect", "method", "path", "status_class"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "antigravity2api_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"dialect", "method", "path", "status_class"},
	)

	// HTTP 并发请求数
	HTTPInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "antigravity2api_http_inflight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	// 上游API调用指标
	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "antigravity2api_upstream_requests_total",
			Help: "Total number of upstream API requests",
		},
		[]string{"endpoint", "status_class"},
	)

	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "antigravity2api_upstream_request_duration_seconds",
			Help:    "Upstream API request latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"endpoint"},
	)

	UpstreamErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "antigravity2api_upstream_errors_total",
			Help: "Total number of upstream errors by reason",
		},
		[]string{"endpoint", "reason"},
	)

	UpstreamRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "antigravity2api_upstream_retry_attempts_total",
			Help: "Total number of upstream retry attempts",
		},
		[]string{"endpoint", "outcome"},
	)

	UpstreamModelRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "antigravity2api_upstream_model_requests_total",
			Help: "Total number of upstream requests by model",
		},
		[]string{"model", "status_class"},
	)

	// 流式传输指标
	SSELinesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "antigravity2api_sse_lines_total",
			Help: "Total number of SSE frames sent",
		},
		[]string{"dialect", "path"},
	)

	SSEDisconnectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "antigravity2api_sse_disconnects_total",
			Help: "Total number of SSE disconnects by reason",
		},
		[]string{"dialect", "path", "reason"},
	)

	ToolCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "antigravity2api_tool_calls_total",
			Help: "Total number of tool calls emitted",
		},
		[]string{"dialect", "path"},
	)

	// 账号池指标
	AccountRotationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "antigravity2api_account_rotations_total",
			Help: "Total number of account acquisitions",
		},
		[]string{"account"},
	)

	AccountRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "antigravity2api_account_refreshes_total",
			Help: "Total number of OAuth token refreshes",
		},
		[]string{"account", "status"},
	)

	ActiveAccounts = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "antigravity2api_active_accounts",
			Help: "Number of enabled accounts in the pool",
		},
	)

	DisabledAccounts = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "antigravity2api_disabled_accounts",
			Help: "Number of disabled accounts in the pool",
		},
	)

	QuotaExhaustedAccounts = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "antigravity2api_quota_exhausted_accounts",
			Help: "Number of accounts currently marked quota-exhausted",
		},
	)

	// Token使用指标
	TokensUsed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "antigravity2api_tokens_used_total",
			Help: "Total number of tokens used",
		},
		[]string{"model", "type"}, // type: prompt, completion, thoughts, total
	)

	// 限流指标
	RateLimitKeysGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "antigravity2api_ratelimit_keys",
			Help: "Current number of per-key rate limiters",
		},
	)

	RateLimitSweepsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "antigravity2api_ratelimit_sweeps_total",
			Help: "Total number of rate limiter TTL cache sweeps",
		},
	)

	// 内存压力指标
	PressureLevel = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "antigravity2api_pressure_level",
			Help: "Current memory pressure level (0=low 3=critical)",
		},
	)
)
