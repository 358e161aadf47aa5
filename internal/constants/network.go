package constants

import "time"

// HTTP Client 连接池配置
const (
	MaxIdleConns        = 4096
	MaxIdleConnsPerHost = 512
	IdleConnTimeout     = 90 * time.Second

	// Keep-Alive 设置
	DefaultKeepAlive = 30 * time.Second
)

// HTTP 超时配置
const (
	DefaultDialTimeout           = 10 * time.Second
	DefaultTLSHandshakeTimeout   = 10 * time.Second
	DefaultResponseHeaderTimeout = 60 * time.Second
	DefaultExpectContinueTimeout = 2 * time.Second
)

// 上游端点默认值（Cloud Code v1internal）
const (
	DefaultStreamURL   = "https://cloudcode-pa.googleapis.com/v1internal:streamGenerateContent?alt=sse"
	DefaultNoStreamURL = "https://cloudcode-pa.googleapis.com/v1internal:generateContent"
	DefaultModelsURL   = "https://cloudcode-pa.googleapis.com/v1internal:fetchAvailableModels"
	DefaultAPIHost     = "cloudcode-pa.googleapis.com"

	// LoadCodeAssistPath 相对 https://<host>/v1internal 的项目发现动作。
	LoadCodeAssistAction = "loadCodeAssist"
)
