package translator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// FromClaude normalizes an Anthropic messages body.
func (t *Translator) FromClaude(raw []byte, sessionID string) (*InternalRequest, error) {
	model := gjson.GetBytes(raw, "model").String()
	if model == "" {
		return nil, fmt.Errorf("model is required")
	}
	messages := gjson.GetBytes(raw, "messages")
	if !messages.IsArray() || len(messages.Array()) == 0 {
		return nil, fmt.Errorf("messages must be a non-empty array")
	}

	cfg := t.cfg.Get()
	ireq := t.newRequest(model, sessionID, gjson.GetBytes(raw, "stream").Bool())
	ireq.Params = claudeParameters(raw)
	ireq.Params.fillDefaults(cfg.Defaults)
	ireq.Tools = t.claudeTools(raw, sessionID, ireq.Model)

	var contents []Content
	for _, msg := range messages.Array() {
		switch msg.Get("role").String() {
		case "user":
			t.claudeUserMessage(&contents, msg)
		case "assistant":
			if c := t.claudeAssistantContent(msg, ireq); c != nil {
				contents = append(contents, *c)
			}
		}
	}

	ireq.Contents = mergeModelRuns(contents)
	t.finishRequest(ireq, claudeSystemSegments(raw), cfg)
	return ireq, nil
}

// claudeSystemSegments reads the top-level system field, which Anthropic
// allows as a string or an array of text blocks.
func claudeSystemSegments(raw []byte) []string {
	system := gjson.GetBytes(raw, "system")
	if !system.Exists() {
		return nil
	}
	if !system.IsArray() {
		return []string{system.String()}
	}
	var segments []string
	for _, block := range system.Array() {
		if text := block.Get("text").String(); text != "" {
			segments = append(segments, text)
		}
	}
	return segments
}

// claudeUserMessage splits tool results out of a user turn. Results pair to
// prior calls and coalesce; the visible remainder becomes one user Content.
func (t *Translator) claudeUserMessage(contents *[]Content, msg gjson.Result) {
	content := msg.Get("content")
	if !content.IsArray() {
		*contents = append(*contents, Content{Role: "user", Parts: []Part{TextPart(content.String())}})
		return
	}

	var text strings.Builder
	var images []Part
	flush := func() {
		if text.Len() == 0 && len(images) == 0 {
			return
		}
		*contents = append(*contents, Content{
			Role:  "user",
			Parts: append([]Part{TextPart(text.String())}, images...),
		})
		text.Reset()
		images = nil
	}

	for _, block := range content.Array() {
		switch block.Get("type").String() {
		case "text":
			if text.Len() > 0 {
				text.WriteString("\n")
			}
			text.WriteString(block.Get("text").String())
		case "image":
			src := block.Get("source")
			if src.Get("type").String() == "base64" {
				images = append(images, InlineDataPart(
					canonicalImageMIME(src.Get("media_type").String()), src.Get("data").String()))
			}
		case "tool_result":
			flush()
			id := block.Get("tool_use_id").String()
			name := findFunctionName(*contents, id)
			if name == "" {
				name = "tool"
			}
			appendToolResponse(contents, FunctionResponsePart(id, name, claudeToolResultText(block)))
		}
	}
	flush()
}

// claudeToolResultText flattens a tool_result content value.
func claudeToolResultText(block gjson.Result) string {
	content := block.Get("content")
	if !content.IsArray() {
		return content.String()
	}
	var b strings.Builder
	for _, c := range content.Array() {
		if c.Get("type").String() == "text" {
			b.WriteString(c.Get("text").String())
		}
	}
	return b.String()
}

// claudeAssistantContent rebuilds one assistant turn from its blocks. A
// signature supplied on a thinking block wins over the cache.
func (t *Translator) claudeAssistantContent(msg gjson.Result, ireq *InternalRequest) *Content {
	content := msg.Get("content")

	var thinkingText, suppliedSig string
	var text strings.Builder
	var calls []Part

	if content.IsArray() {
		for _, block := range content.Array() {
			switch block.Get("type").String() {
			case "thinking":
				thinkingText += block.Get("thinking").String()
				if sig := block.Get("signature").String(); sig != "" {
					suppliedSig = sig
				}
			case "text":
				text.WriteString(block.Get("text").String())
			case "tool_use":
				name := t.sanitizeToolName(ireq.SessionID, ireq.Model, block.Get("name").String())
				sig := t.toolSignatureFor("", ireq.SessionID, ireq.Model)
				calls = append(calls, FunctionCallPart(
					block.Get("id").String(), name, claudeToolInput(block.Get("input")), sig))
			}
		}
	} else {
		text.WriteString(content.String())
	}

	var parts []Part
	if ireq.Thinking {
		sentinel := thinkingText
		if sentinel == "" {
			sentinel = " "
		}
		parts = append(parts, ThoughtPart(sentinel))
	}
	if text.Len() > 0 {
		parts = append(parts, SignedTextPart(text.String(),
			t.signatureFor(suppliedSig, ireq.SessionID, ireq.Model)))
	}
	parts = append(parts, calls...)

	if len(parts) == 0 || (ireq.Thinking && len(parts) == 1 && thinkingText == "") {
		return nil
	}
	return &Content{Role: "model", Parts: parts}
}

// claudeToolInput keeps object inputs as-is; anything else goes through the
// parse-or-wrap rule.
func claudeToolInput(input gjson.Result) interface{} {
	if input.IsObject() {
		var args map[string]interface{}
		if err := json.Unmarshal([]byte(input.Raw), &args); err == nil {
			return args
		}
	}
	return parseArgsOrWrap(input.String())
}
