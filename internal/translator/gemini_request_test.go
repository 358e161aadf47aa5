package translator

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestFromGeminiGenerationConfig(t *testing.T) {
	tr := newTestTranslator(t, "")

	ireq, err := tr.FromGemini([]byte(`{
		"contents": [{"role": "user", "parts": [{"text": "hi"}]}],
		"generationConfig": {
			"temperature": 0.3, "topP": 0.8, "topK": 5, "maxOutputTokens": 2000,
			"thinkingConfig": {"thinkingBudget": 1024}
		}
	}`), "gemini-3-pro-preview", "-1", true)
	require.NoError(t, err)

	require.True(t, ireq.Thinking)
	require.True(t, ireq.Stream)
	require.Equal(t, 0.3, *ireq.Params.Temperature)
	require.Equal(t, 0.8, *ireq.Params.TopP)
	require.Equal(t, 5, *ireq.Params.TopK)
	require.Equal(t, 2000, *ireq.Params.MaxTokens)
	require.Equal(t, 1024, *ireq.Params.ThinkingBudget)
}

func TestFromGeminiIncludeThoughtsFalse(t *testing.T) {
	tr := newTestTranslator(t, "")

	ireq, err := tr.FromGemini([]byte(`{
		"contents": [{"role": "user", "parts": [{"text": "hi"}]}],
		"generationConfig": {"thinkingConfig": {"includeThoughts": false, "thinkingBudget": 4096}}
	}`), "gemini-2.5-pro", "-1", false)
	require.NoError(t, err)

	require.False(t, ireq.Thinking)
	require.Equal(t, 0, *ireq.Params.ThinkingBudget)
}

func TestFromGeminiValidation(t *testing.T) {
	tr := newTestTranslator(t, "")

	_, err := tr.FromGemini([]byte(`{"contents": [{"parts": [{"text": "x"}]}]}`), "", "-1", false)
	require.Error(t, err)

	_, err = tr.FromGemini([]byte(`{"contents": []}`), "gemini-2.5-flash", "-1", false)
	require.Error(t, err)
}

func TestFromGeminiPartHandling(t *testing.T) {
	tr := newTestTranslator(t, "")

	ireq, err := tr.FromGemini([]byte(`{
		"contents": [
			{"role": "user", "parts": [{"text": "q"}]},
			{"role": "model", "parts": [
				{"text": "thinking here", "thought": true},
				{"text": "answer", "thoughtSignature": "sig-9"},
				{"functionCall": {"id": "fc_1", "name": "run query!", "args": {"q": 1}}, "thoughtSignature": "ts-1"}
			]},
			{"role": "user", "parts": [
				{"functionResponse": {"id": "fc_1", "name": "run query!", "response": {"output": "ok"}}}
			]}
		]
	}`), "gemini-2.5-flash", "-1", false)
	require.NoError(t, err)

	data := marshalContents(t, ireq.Contents)
	require.True(t, gjson.GetBytes(data, "1.parts.0.thought").Bool())
	require.Equal(t, "thinking here", gjson.GetBytes(data, "1.parts.0.text").String())
	require.Equal(t, "sig-9", gjson.GetBytes(data, "1.parts.1.thoughtSignature").String())
	require.Equal(t, "run_query", gjson.GetBytes(data, "1.parts.2.functionCall.name").String())
	require.Equal(t, "ts-1", gjson.GetBytes(data, "1.parts.2.thoughtSignature").String())

	// functionResponse keeps its body, only the name is rewritten
	require.Equal(t, "run_query", gjson.GetBytes(data, "2.parts.0.functionResponse.name").String())
	require.Equal(t, "fc_1", gjson.GetBytes(data, "2.parts.0.functionResponse.id").String())
	require.Equal(t, "ok", gjson.GetBytes(data, "2.parts.0.functionResponse.response.output").String())
}

func TestFromGeminiAssistantRoleNormalized(t *testing.T) {
	tr := newTestTranslator(t, "")

	ireq, err := tr.FromGemini([]byte(`{
		"contents": [
			{"role": "user", "parts": [{"text": "q"}]},
			{"role": "assistant", "parts": [{"text": "a"}]}
		]
	}`), "gemini-2.5-flash", "-1", false)
	require.NoError(t, err)
	require.Equal(t, "model", ireq.Contents[1].Role)
}

func TestFromGeminiSystemInstructionSpellings(t *testing.T) {
	t.Setenv("SYSTEM_INSTRUCTION", "")
	tr := newTestTranslator(t, "")

	ireq, err := tr.FromGemini([]byte(`{
		"systemInstruction": {"parts": [{"text": "camel"}]},
		"contents": [{"role": "user", "parts": [{"text": "x"}]}]
	}`), "gemini-2.5-flash", "-1", false)
	require.NoError(t, err)
	require.Equal(t, "camel", ireq.System)

	ireq, err = tr.FromGemini([]byte(`{
		"system_instruction": {"parts": [{"text": "snake"}]},
		"contents": [{"role": "user", "parts": [{"text": "x"}]}]
	}`), "gemini-2.5-flash", "-1", false)
	require.NoError(t, err)
	require.Equal(t, "snake", ireq.System)
}

func TestFromGeminiToolConfigPassthrough(t *testing.T) {
	tr := newTestTranslator(t, "")

	ireq, err := tr.FromGemini([]byte(`{
		"contents": [{"role": "user", "parts": [{"text": "x"}]}],
		"toolConfig": {"functionCallingConfig": {"mode": "AUTO"}}
	}`), "gemini-2.5-flash", "-1", false)
	require.NoError(t, err)
	require.Equal(t, "AUTO", gjson.GetBytes(ireq.ToolConfig, "functionCallingConfig.mode").String())
}
