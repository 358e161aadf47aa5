package constants

// Version information (injected at build time)
var (
	// Version 应用版本号（通过 -ldflags 注入）
	Version = "dev"

	// BuildTime 构建时间（通过 -ldflags 注入）
	BuildTime = "unknown"

	// GitCommit Git 提交哈希（通过 -ldflags 注入）
	GitCommit = "unknown"
)

const (
	// DefaultUserAgent 上游要求的客户端标识。
	DefaultUserAgent = "antigravity/1.11.3 windows/amd64"

	// InternalUserAgentField 内部请求信封中的 userAgent 字段值。
	InternalUserAgentField = "antigravity"
)

// OAuth client of the Cloud Code surface (public installed-app credentials).
const (
	DefaultOAuthClientID     = "681255809395-oo8ft2oprdrnp9e3aqf6av3hmdib135j.apps.googleusercontent.com"
	DefaultOAuthClientSecret = "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"
)

// GetFullVersion 获取完整版本信息
func GetFullVersion() string {
	return Version + " (" + GitCommit + ") built at " + BuildTime
}
