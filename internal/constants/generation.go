package constants

const (
	// DefaultTemperature 是生成请求的默认采样温度。
	DefaultTemperature = 1.0
	// DefaultTopP 是默认核采样参数。
	DefaultTopP = 0.95
	// DefaultTopK 是生成请求的默认 topK。
	DefaultTopK = 64
	// DefaultMaxTokens 是默认最大输出 token 数。
	DefaultMaxTokens = 32000
	// DefaultThinkingBudget 是默认思考预算（-1 表示由上游决定）。
	DefaultThinkingBudget = -1
	// MaxOutputTokens 是生成响应允许的最大输出 token 数。
	MaxOutputTokens = 65535
)

// Reasoning-effort 映射到思考预算（OpenAI 扩展字段）。
const (
	ReasoningEffortLowBudget    = 1024
	ReasoningEffortMediumBudget = 16000
	ReasoningEffortHighBudget   = 32000
)

// DefaultModels 始终出现在模型目录中的已知模型。
var DefaultModels = []string{
	"claude-sonnet-4-5",
	"claude-sonnet-4-5-thinking",
	"claude-opus-4-5",
	"claude-opus-4-5-thinking",
	"gemini-2.5-flash",
	"gemini-2.5-flash-thinking",
	"gemini-2.5-pro",
	"gemini-3-pro-preview",
	"gemini-3-pro-image",
	"gpt-oss-120b-medium",
	"rev19-uic3-1p",
}
