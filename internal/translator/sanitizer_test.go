package translator

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestSanitizeToolName(t *testing.T) {
	tr := newTestTranslator(t, "")

	require.Equal(t, "weather_get", tr.sanitizeToolName("-1", "m", "weather.get"))
	require.Equal(t, "plain_name", tr.sanitizeToolName("-1", "m", "plain_name"))
	require.Equal(t, "tool", tr.sanitizeToolName("-1", "m", "???"))
	require.Equal(t, "spaced_out", tr.sanitizeToolName("-1", "m", " spaced out "))

	long := strings.Repeat("a", 150)
	require.Len(t, tr.sanitizeToolName("-1", "m", long), 128)
}

func TestRestoreToolName(t *testing.T) {
	tr := newTestTranslator(t, "")

	clean := tr.sanitizeToolName("-7", "gemini-2.5-flash", "weather.get")
	require.Equal(t, "weather_get", clean)
	require.Equal(t, "weather.get", RestoreToolName(tr.Stores(), "-7", "gemini-2.5-flash", clean))

	// a different session never sees the mapping
	require.Equal(t, "weather_get", RestoreToolName(tr.Stores(), "-8", "gemini-2.5-flash", clean))
	// names that were already clean pass through
	require.Equal(t, "unknown_fn", RestoreToolName(tr.Stores(), "-7", "gemini-2.5-flash", "unknown_fn"))
}

func TestNormalizeSchemaScrub(t *testing.T) {
	schema := normalizeSchema(gjson.Parse(`{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type": "object",
		"additionalProperties": false,
		"properties": {
			"q": {"type": "string", "minLength": 1, "max_length": 10},
			"opts": {"type": "array", "items": {"type": "string"}, "uniqueItems": true},
			"pick": {"anyOf": [{"type": "string"}, {"type": "number"}]}
		}
	}`))

	data, err := json.Marshal(schema)
	require.NoError(t, err)

	require.False(t, gjson.GetBytes(data, "$schema").Exists())
	require.False(t, gjson.GetBytes(data, "additionalProperties").Exists())
	require.False(t, gjson.GetBytes(data, "properties.q.minLength").Exists())
	require.False(t, gjson.GetBytes(data, "properties.q.max_length").Exists())
	require.Equal(t, "string", gjson.GetBytes(data, "properties.q.type").String())
	require.False(t, gjson.GetBytes(data, "properties.opts.uniqueItems").Exists())
	require.Equal(t, "string", gjson.GetBytes(data, "properties.opts.items.type").String())
	require.False(t, gjson.GetBytes(data, "properties.pick.anyOf").Exists())
}

func TestNormalizeSchemaStructuralDefaults(t *testing.T) {
	schema := normalizeSchema(gjson.Result{})
	data, err := json.Marshal(schema)
	require.NoError(t, err)
	require.Equal(t, "object", gjson.GetBytes(data, "type").String())
	require.True(t, gjson.GetBytes(data, "properties").IsObject())

	schema = normalizeSchema(gjson.Parse(`{"type": "string"}`))
	data, err = json.Marshal(schema)
	require.NoError(t, err)
	require.False(t, gjson.GetBytes(data, "properties").Exists())
}

func TestOpenAIToolDeclarations(t *testing.T) {
	tr := newTestTranslator(t, "")

	ireq, err := tr.FromOpenAI([]byte(`{
		"model": "gemini-2.5-flash",
		"messages": [{"role": "user", "content": "x"}],
		"tools": [
			{"type": "function", "function": {
				"name": "get weather",
				"description": "look up weather",
				"parameters": {"type": "object", "properties": {"city": {"type": "string"}}, "additionalProperties": false}
			}},
			{"type": "web_search"},
			{"type": "function", "function": {"description": "nameless"}}
		]
	}`), "-1")
	require.NoError(t, err)

	require.Equal(t, int64(1), gjson.GetBytes(ireq.Tools, "#").Int())
	decls := gjson.GetBytes(ireq.Tools, "0.functionDeclarations")
	require.Equal(t, int64(1), decls.Get("#").Int())
	require.Equal(t, "get_weather", decls.Get("0.name").String())
	require.Equal(t, "look up weather", decls.Get("0.description").String())
	require.Equal(t, "string", decls.Get("0.parameters.properties.city.type").String())
	require.False(t, decls.Get("0.parameters.additionalProperties").Exists())
}

func TestClaudeToolDeclarations(t *testing.T) {
	tr := newTestTranslator(t, "")

	ireq, err := tr.FromClaude([]byte(`{
		"model": "claude-sonnet-4-5",
		"messages": [{"role": "user", "content": "x"}],
		"tools": [{
			"name": "search",
			"description": "find things",
			"input_schema": {"type": "object", "properties": {"q": {"type": "string"}}}
		}]
	}`), "-1")
	require.NoError(t, err)

	require.Equal(t, "search", gjson.GetBytes(ireq.Tools, "0.functionDeclarations.0.name").String())
	require.Equal(t, "string", gjson.GetBytes(ireq.Tools, "0.functionDeclarations.0.parameters.properties.q.type").String())
}

func TestGeminiToolsPassthrough(t *testing.T) {
	tr := newTestTranslator(t, "")

	ireq, err := tr.FromGemini([]byte(`{
		"contents": [{"role": "user", "parts": [{"text": "x"}]}],
		"tools": [
			{"googleSearch": {}},
			{"functionDeclarations": [{"name": "run query!", "parameters": {"type": "object", "anyOf": []}}]}
		]
	}`), "gemini-2.5-flash", "-1", false)
	require.NoError(t, err)

	require.True(t, gjson.GetBytes(ireq.Tools, "0.googleSearch").Exists())
	require.Equal(t, "run_query", gjson.GetBytes(ireq.Tools, "1.functionDeclarations.0.name").String())
	require.False(t, gjson.GetBytes(ireq.Tools, "1.functionDeclarations.0.parameters.anyOf").Exists())
	require.True(t, gjson.GetBytes(ireq.Tools, "1.functionDeclarations.0.parameters.properties").IsObject())
}

func TestNoToolsYieldsNil(t *testing.T) {
	tr := newTestTranslator(t, "")

	ireq, err := tr.FromOpenAI([]byte(`{"model": "gemini-2.5-flash", "messages": [{"role": "user", "content": "x"}]}`), "-1")
	require.NoError(t, err)
	require.Nil(t, ireq.Tools)
}
