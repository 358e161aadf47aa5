package constants

import "time"

// 重试策略常量
const (
	// 上游 429 重试
	DefaultRetryTimes   = 3
	RetryBaseDelay      = 1 * time.Second
	RetryMaxDelay       = 30 * time.Second
	RetryAfterJitterCap = 10 * time.Second
	RetryBackoffFactor  = 2.0
)

// 上游 403 上下文溢出的识别子串（上游以 403 返回超过模型上下文的请求）。
const ContextOverflowMarker = "exceeded model max context"

// 配额耗尽的识别子串，出现在 429/403 响应体的 status/reason 字段。
var QuotaExhaustedMarkers = []string{"RESOURCE_EXHAUSTED", "QUOTA_EXHAUSTED"}
