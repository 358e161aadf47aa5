package translator

import (
	"strings"

	log "github.com/sirupsen/logrus"
)

// modelOverrides rewrites a requested model onto the name the upstream
// actually serves. 注意 opus 的方向与直觉相反：请求裸名会路由到 thinking 目录项。
var modelOverrides = map[string]string{
	"claude-sonnet-4-5-thinking": "claude-sonnet-4-5",
	"claude-opus-4-5":            "claude-opus-4-5-thinking",
	"gemini-2.5-flash-thinking":  "gemini-2.5-flash",
}

// thinkingModels get reasoning output without a -thinking suffix in the name.
var thinkingModels = map[string]bool{
	"gemini-2.5-pro":      true,
	"rev19-uic3-1p":       true,
	"gpt-oss-120b-medium": true,
}

// MapModel translates the model the client asked for into the upstream name.
func MapModel(requested string) string {
	if mapped, ok := modelOverrides[requested]; ok {
		return mapped
	}
	return requested
}

// ThinkingEnabled derives reasoning support from the model name as the
// client sent it, before any mapping.
func ThinkingEnabled(requested string) bool {
	if strings.Contains(requested, "-thinking") {
		return true
	}
	if thinkingModels[requested] {
		return true
	}
	return strings.HasPrefix(requested, "gemini-3-pro-")
}

// IsClaudeModel reports whether the upstream model is Claude-family. Those
// reject topP when thinking is on.
func IsClaudeModel(model string) bool {
	return strings.HasPrefix(model, "claude-")
}

// LogModelOverrides prints the rewrite table once at startup so operators
// can see the non-obvious opus direction.
func LogModelOverrides() {
	for from, to := range modelOverrides {
		log.WithFields(log.Fields{"requested": from, "upstream": to}).Debug("model override active")
	}
}
