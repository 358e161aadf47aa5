package translator

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestFromOpenAIConversation(t *testing.T) {
	t.Setenv("SYSTEM_INSTRUCTION", "")
	tr := newTestTranslator(t, "")

	ireq, err := tr.FromOpenAI([]byte(`{
		"model": "gemini-2.5-flash",
		"stream": true,
		"messages": [
			{"role": "system", "content": "Be brief."},
			{"role": "user", "content": "hi"},
			{"role": "assistant", "content": "hello"},
			{"role": "user", "content": "again"}
		]
	}`), "-1")
	require.NoError(t, err)

	require.Equal(t, "gemini-2.5-flash", ireq.Model)
	require.Equal(t, "gemini-2.5-flash", ireq.Requested)
	require.False(t, ireq.Thinking)
	require.True(t, ireq.Stream)
	require.Equal(t, "Be brief.", ireq.System)

	data := marshalContents(t, ireq.Contents)
	require.Equal(t, int64(3), gjson.GetBytes(data, "#").Int())
	require.Equal(t, "user", gjson.GetBytes(data, "0.role").String())
	require.Equal(t, "hi", gjson.GetBytes(data, "0.parts.0.text").String())
	require.Equal(t, "model", gjson.GetBytes(data, "1.role").String())
	require.Equal(t, "hello", gjson.GetBytes(data, "1.parts.0.text").String())
	require.False(t, gjson.GetBytes(data, "1.parts.0.thought").Bool())
	require.Equal(t, "again", gjson.GetBytes(data, "2.parts.0.text").String())
}

func TestFromOpenAIValidation(t *testing.T) {
	tr := newTestTranslator(t, "")

	_, err := tr.FromOpenAI([]byte(`{"messages": [{"role": "user", "content": "x"}]}`), "-1")
	require.Error(t, err)

	_, err = tr.FromOpenAI([]byte(`{"model": "gemini-2.5-flash", "messages": []}`), "-1")
	require.Error(t, err)
}

func TestFromOpenAINonLeadingSystemBecomesUser(t *testing.T) {
	t.Setenv("SYSTEM_INSTRUCTION", "")
	tr := newTestTranslator(t, "")

	ireq, err := tr.FromOpenAI([]byte(`{
		"model": "gemini-2.5-flash",
		"messages": [
			{"role": "user", "content": "hi"},
			{"role": "system", "content": "now be terse"}
		]
	}`), "-1")
	require.NoError(t, err)
	require.Empty(t, ireq.System)

	data := marshalContents(t, ireq.Contents)
	require.Equal(t, "user", gjson.GetBytes(data, "1.role").String())
	require.Equal(t, "now be terse", gjson.GetBytes(data, "1.parts.0.text").String())
}

func TestFromOpenAIThinkingSentinel(t *testing.T) {
	tr := newTestTranslator(t, "")

	ireq, err := tr.FromOpenAI([]byte(`{
		"model": "gemini-2.5-pro",
		"messages": [
			{"role": "user", "content": "q"},
			{"role": "assistant", "content": "a"},
			{"role": "assistant", "reasoning_content": "because", "content": "b"}
		]
	}`), "-1")
	require.NoError(t, err)
	require.True(t, ireq.Thinking)

	data := marshalContents(t, ireq.Contents)
	require.Equal(t, " ", gjson.GetBytes(data, "1.parts.0.text").String())
	require.True(t, gjson.GetBytes(data, "1.parts.0.thought").Bool())
	require.Equal(t, "a", gjson.GetBytes(data, "1.parts.1.text").String())
	require.Equal(t, "because", gjson.GetBytes(data, "2.parts.0.text").String())
}

func TestFromOpenAIDropsEmptyAssistantTurn(t *testing.T) {
	tr := newTestTranslator(t, "")

	ireq, err := tr.FromOpenAI([]byte(`{
		"model": "gemini-2.5-pro",
		"messages": [
			{"role": "user", "content": "q"},
			{"role": "assistant", "content": ""}
		]
	}`), "-1")
	require.NoError(t, err)
	require.Len(t, ireq.Contents, 1)
}

func TestFromOpenAIToolFlow(t *testing.T) {
	tr := newTestTranslator(t, "")

	ireq, err := tr.FromOpenAI([]byte(`{
		"model": "gemini-2.5-flash",
		"messages": [
			{"role": "user", "content": "weather in SF and NYC"},
			{"role": "assistant", "tool_calls": [
				{"id": "call_1", "type": "function", "function": {"name": "get weather!", "arguments": "{\"city\":\"SF\"}"}},
				{"id": "call_2", "type": "function", "function": {"name": "get weather!", "arguments": "plain text"}}
			]},
			{"role": "tool", "tool_call_id": "call_1", "content": "sunny"},
			{"role": "tool", "tool_call_id": "call_2", "content": "rainy"}
		]
	}`), "-7")
	require.NoError(t, err)

	data := marshalContents(t, ireq.Contents)
	require.Equal(t, int64(3), gjson.GetBytes(data, "#").Int())

	require.Equal(t, "get_weather", gjson.GetBytes(data, "1.parts.0.functionCall.name").String())
	require.Equal(t, "SF", gjson.GetBytes(data, "1.parts.0.functionCall.args.city").String())
	require.Equal(t, "call_1", gjson.GetBytes(data, "1.parts.0.functionCall.id").String())
	require.Equal(t, "plain text", gjson.GetBytes(data, "1.parts.1.functionCall.args.query").String())

	// both results coalesce into one user turn, names resolved from the calls
	require.Equal(t, "user", gjson.GetBytes(data, "2.role").String())
	require.Equal(t, int64(2), gjson.GetBytes(data, "2.parts.#").Int())
	require.Equal(t, "get_weather", gjson.GetBytes(data, "2.parts.0.functionResponse.name").String())
	require.Equal(t, "sunny", gjson.GetBytes(data, "2.parts.0.functionResponse.response.output").String())
	require.Equal(t, "rainy", gjson.GetBytes(data, "2.parts.1.functionResponse.response.output").String())
}

func TestFromOpenAIToolResultWithoutMatchingCall(t *testing.T) {
	tr := newTestTranslator(t, "")

	ireq, err := tr.FromOpenAI([]byte(`{
		"model": "gemini-2.5-flash",
		"messages": [
			{"role": "user", "content": "q"},
			{"role": "tool", "tool_call_id": "call_9", "name": "my tool", "content": "out"},
			{"role": "tool", "tool_call_id": "call_10", "content": "out2"}
		]
	}`), "-1")
	require.NoError(t, err)

	data := marshalContents(t, ireq.Contents)
	require.Equal(t, "my_tool", gjson.GetBytes(data, "1.parts.0.functionResponse.name").String())
	require.Equal(t, "tool", gjson.GetBytes(data, "1.parts.1.functionResponse.name").String())
}

func TestOpenAIParameterDefaults(t *testing.T) {
	tr := newTestTranslator(t, "")

	ireq, err := tr.FromOpenAI([]byte(`{"model": "gemini-2.5-flash", "messages": [{"role": "user", "content": "x"}]}`), "-1")
	require.NoError(t, err)
	require.Equal(t, 1.0, *ireq.Params.Temperature)
	require.Equal(t, 0.95, *ireq.Params.TopP)
	require.Equal(t, 64, *ireq.Params.TopK)
	require.Equal(t, 32000, *ireq.Params.MaxTokens)
	require.Equal(t, -1, *ireq.Params.ThinkingBudget)
}

func TestOpenAIParameterPassthrough(t *testing.T) {
	tr := newTestTranslator(t, "")

	ireq, err := tr.FromOpenAI([]byte(`{
		"model": "gemini-2.5-flash",
		"temperature": 0.5, "top_p": 0.9, "top_k": 10, "max_tokens": 100,
		"messages": [{"role": "user", "content": "x"}]
	}`), "-1")
	require.NoError(t, err)
	require.Equal(t, 0.5, *ireq.Params.Temperature)
	require.Equal(t, 0.9, *ireq.Params.TopP)
	require.Equal(t, 10, *ireq.Params.TopK)
	require.Equal(t, 100, *ireq.Params.MaxTokens)
}

func TestOpenAIReasoningEffort(t *testing.T) {
	tr := newTestTranslator(t, "")

	for effort, want := range map[string]int{"low": 1024, "medium": 16000, "high": 32000} {
		body := fmt.Sprintf(`{"model": "gemini-2.5-pro", "reasoning_effort": %q, "messages": [{"role": "user", "content": "x"}]}`, effort)
		ireq, err := tr.FromOpenAI([]byte(body), "-1")
		require.NoError(t, err)
		require.Equal(t, want, *ireq.Params.ThinkingBudget, effort)
	}

	// an explicit budget wins over the effort keyword
	ireq, err := tr.FromOpenAI([]byte(`{
		"model": "gemini-2.5-pro", "thinking_budget": 512, "reasoning_effort": "high",
		"messages": [{"role": "user", "content": "x"}]
	}`), "-1")
	require.NoError(t, err)
	require.Equal(t, 512, *ireq.Params.ThinkingBudget)
}

func TestZeroThinkingBudgetDisablesThinking(t *testing.T) {
	tr := newTestTranslator(t, "")

	ireq, err := tr.FromOpenAI([]byte(`{
		"model": "gemini-2.5-pro", "thinking_budget": 0,
		"messages": [{"role": "user", "content": "x"}]
	}`), "-1")
	require.NoError(t, err)
	require.False(t, ireq.Thinking)
}

func TestFromOpenAIInlineImages(t *testing.T) {
	tr := newTestTranslator(t, "")

	ireq, err := tr.FromOpenAI([]byte(`{
		"model": "gemini-2.5-flash",
		"messages": [{"role": "user", "content": [
			{"type": "text", "text": "look"},
			{"type": "text", "text": "closely"},
			{"type": "image_url", "image_url": {"url": "data:image/jpg;base64,BBBB"}}
		]}]
	}`), "-1")
	require.NoError(t, err)

	data := marshalContents(t, ireq.Contents)
	require.Equal(t, "look\nclosely", gjson.GetBytes(data, "0.parts.0.text").String())
	require.Equal(t, "image/jpeg", gjson.GetBytes(data, "0.parts.1.inlineData.mimeType").String())
	require.Equal(t, "BBBB", gjson.GetBytes(data, "0.parts.1.inlineData.data").String())
}

func TestSystemInstructionMergeWithConfigured(t *testing.T) {
	t.Setenv("SYSTEM_INSTRUCTION", "Global rule.")
	tr := newTestTranslator(t, "")

	ireq, err := tr.FromOpenAI([]byte(`{
		"model": "gemini-2.5-flash",
		"messages": [
			{"role": "system", "content": "Be brief."},
			{"role": "user", "content": "hi"}
		]
	}`), "-1")
	require.NoError(t, err)
	require.Equal(t, "Global rule.\n\nBe brief.", ireq.System)
}

func TestSystemInstructionContextDisabled(t *testing.T) {
	t.Setenv("SYSTEM_INSTRUCTION", "Global rule.")
	tr := newTestTranslator(t, `{"other": {"useContextSystemPrompt": false}}`)

	ireq, err := tr.FromOpenAI([]byte(`{
		"model": "gemini-2.5-flash",
		"messages": [
			{"role": "system", "content": "Be brief."},
			{"role": "user", "content": "hi"}
		]
	}`), "-1")
	require.NoError(t, err)
	require.Equal(t, "Global rule.", ireq.System)
}
