package translator

import (
	"github.com/tidwall/gjson"

	"antigravity2api-go/internal/config"
	"antigravity2api-go/internal/constants"
)

func intPtr(v int) *int          { return &v }
func floatPtr(v float64) *float64 { return &v }

// openaiParameters pulls generation knobs from an OpenAI body. thinking_budget
// is a gateway extension; reasoning_effort is the standard fallback.
func openaiParameters(raw []byte) NormalizedParameters {
	var p NormalizedParameters
	if v := gjson.GetBytes(raw, "temperature"); v.Exists() {
		p.Temperature = floatPtr(v.Float())
	}
	if v := gjson.GetBytes(raw, "top_p"); v.Exists() {
		p.TopP = floatPtr(v.Float())
	}
	if v := gjson.GetBytes(raw, "top_k"); v.Exists() {
		p.TopK = intPtr(int(v.Int()))
	}
	if v := gjson.GetBytes(raw, "max_tokens"); v.Exists() {
		p.MaxTokens = intPtr(int(v.Int()))
	}
	if v := gjson.GetBytes(raw, "thinking_budget"); v.Exists() {
		p.ThinkingBudget = intPtr(int(v.Int()))
	} else if v := gjson.GetBytes(raw, "reasoning_effort"); v.Exists() {
		switch v.String() {
		case "low":
			p.ThinkingBudget = intPtr(constants.ReasoningEffortLowBudget)
		case "medium":
			p.ThinkingBudget = intPtr(constants.ReasoningEffortMediumBudget)
		case "high":
			p.ThinkingBudget = intPtr(constants.ReasoningEffortHighBudget)
		}
	}
	return p
}

// claudeParameters reads the Anthropic knob names. thinking.type=disabled
// forces the budget to zero, which downstream turns reasoning off with.
func claudeParameters(raw []byte) NormalizedParameters {
	var p NormalizedParameters
	if v := gjson.GetBytes(raw, "temperature"); v.Exists() {
		p.Temperature = floatPtr(v.Float())
	}
	if v := gjson.GetBytes(raw, "top_p"); v.Exists() {
		p.TopP = floatPtr(v.Float())
	}
	if v := gjson.GetBytes(raw, "top_k"); v.Exists() {
		p.TopK = intPtr(int(v.Int()))
	}
	if v := gjson.GetBytes(raw, "max_tokens"); v.Exists() {
		p.MaxTokens = intPtr(int(v.Int()))
	}
	if th := gjson.GetBytes(raw, "thinking"); th.Exists() {
		switch th.Get("type").String() {
		case "enabled":
			if b := th.Get("budget_tokens"); b.Exists() {
				p.ThinkingBudget = intPtr(int(b.Int()))
			}
		case "disabled":
			p.ThinkingBudget = intPtr(0)
		}
	}
	return p
}

// geminiParameters extracts the camelCase generationConfig.
func geminiParameters(raw []byte) NormalizedParameters {
	var p NormalizedParameters
	gc := gjson.GetBytes(raw, "generationConfig")
	if v := gc.Get("temperature"); v.Exists() {
		p.Temperature = floatPtr(v.Float())
	}
	if v := gc.Get("topP"); v.Exists() {
		p.TopP = floatPtr(v.Float())
	}
	if v := gc.Get("topK"); v.Exists() {
		p.TopK = intPtr(int(v.Int()))
	}
	if v := gc.Get("maxOutputTokens"); v.Exists() {
		p.MaxTokens = intPtr(int(v.Int()))
	}
	tc := gc.Get("thinkingConfig")
	if v := tc.Get("thinkingBudget"); v.Exists() {
		p.ThinkingBudget = intPtr(int(v.Int()))
	}
	if v := tc.Get("includeThoughts"); v.Exists() && !v.Bool() {
		p.ThinkingBudget = intPtr(0)
	}
	return p
}

// fillDefaults resolves omitted knobs from the configured defaults.
func (p *NormalizedParameters) fillDefaults(d config.DefaultsConfig) {
	if p.Temperature == nil {
		p.Temperature = floatPtr(d.GetTemperature())
	}
	if p.TopP == nil {
		p.TopP = floatPtr(d.GetTopP())
	}
	if p.TopK == nil {
		p.TopK = intPtr(d.GetTopK())
	}
	if p.MaxTokens == nil {
		p.MaxTokens = intPtr(d.GetMaxTokens())
	}
	if p.ThinkingBudget == nil {
		p.ThinkingBudget = intPtr(d.GetThinkingBudget())
	}
}

// buildGenerationConfig renders the knobs in the upstream's camelCase shape.
// Claude 系模型开启思考时上游拒绝 topP，此处直接省略。
func buildGenerationConfig(p NormalizedParameters, thinking, claudeFamily bool) map[string]interface{} {
	gc := map[string]interface{}{}
	if p.Temperature != nil {
		gc["temperature"] = *p.Temperature
	}
	if p.TopP != nil && !(thinking && claudeFamily) {
		gc["topP"] = *p.TopP
	}
	if p.TopK != nil {
		gc["topK"] = *p.TopK
	}
	if p.MaxTokens != nil {
		max := *p.MaxTokens
		if max > constants.MaxOutputTokens {
			max = constants.MaxOutputTokens
		}
		gc["maxOutputTokens"] = max
	}
	if thinking {
		budget := constants.DefaultThinkingBudget
		if p.ThinkingBudget != nil {
			budget = *p.ThinkingBudget
		}
		gc["thinkingConfig"] = map[string]interface{}{
			"includeThoughts": true,
			"thinkingBudget":  budget,
		}
	}
	return gc
}
