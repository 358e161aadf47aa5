package translator

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// FromOpenAI normalizes an OpenAI chat-completions body into the internal
// request form. sessionID is the acquired account's cache partition.
func (t *Translator) FromOpenAI(raw []byte, sessionID string) (*InternalRequest, error) {
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
	ireq.Params = openaiParameters(raw)
	ireq.Params.fillDefaults(cfg.Defaults)
	ireq.Tools = t.openaiTools(raw, sessionID, ireq.Model)

	var contents []Content
	var systemRun []string
	leading := true

	for _, msg := range messages.Array() {
		role := msg.Get("role").String()
		if role != "system" {
			leading = false
		}
		content := msg.Get("content")

		switch role {
		case "system":
			if leading {
				systemRun = append(systemRun, openaiText(content))
				continue
			}
			// 非前导的 system 消息按普通 user 轮次进入历史。
			contents = append(contents, Content{Role: "user", Parts: openaiUserParts(content)})

		case "user":
			contents = append(contents, Content{Role: "user", Parts: openaiUserParts(content)})

		case "assistant":
			if c := t.openaiAssistantContent(msg, ireq); c != nil {
				contents = append(contents, *c)
			}

		case "tool":
			id := msg.Get("tool_call_id").String()
			name := findFunctionName(contents, id)
			if name == "" {
				if declared := msg.Get("name").String(); declared != "" {
					name = t.sanitizeToolName(sessionID, ireq.Model, declared)
				} else {
					name = "tool"
				}
			}
			appendToolResponse(&contents, FunctionResponsePart(id, name, openaiText(content)))
		}
	}

	ireq.Contents = mergeModelRuns(contents)
	t.finishRequest(ireq, systemRun, cfg)
	return ireq, nil
}

// openaiText flattens a content value (string or part array) to plain text.
func openaiText(content gjson.Result) string {
	if !content.IsArray() {
		return content.String()
	}
	var b strings.Builder
	for _, item := range content.Array() {
		if item.Get("type").String() == "text" {
			b.WriteString(item.Get("text").String())
		}
	}
	return b.String()
}

// openaiUserParts flattens user or system content into one text part plus
// any inline images.
func openaiUserParts(content gjson.Result) []Part {
	if !content.IsArray() {
		return []Part{TextPart(content.String())}
	}
	var text strings.Builder
	var images []Part
	for _, item := range content.Array() {
		switch item.Get("type").String() {
		case "text":
			if text.Len() > 0 {
				text.WriteString("\n")
			}
			text.WriteString(item.Get("text").String())
		case "image_url":
			if p, ok := inlineImagePart(item.Get("image_url.url").String()); ok {
				images = append(images, p)
			}
		}
	}
	return append([]Part{TextPart(text.String())}, images...)
}

// openaiAssistantContent rebuilds one assistant turn. Thinking models get a
// leading thought part; a single-space sentinel stands in when the client
// kept no reasoning text.
func (t *Translator) openaiAssistantContent(msg gjson.Result, ireq *InternalRequest) *Content {
	text := openaiText(msg.Get("content"))
	reasoning := msg.Get("reasoning_content").String()

	var parts []Part
	if ireq.Thinking {
		sentinel := reasoning
		if sentinel == "" {
			sentinel = " "
		}
		parts = append(parts, ThoughtPart(sentinel))
	}
	if text != "" {
		parts = append(parts, SignedTextPart(text, t.signatureFor("", ireq.SessionID, ireq.Model)))
	}
	for _, tc := range msg.Get("tool_calls").Array() {
		if typ := tc.Get("type"); typ.Exists() && typ.String() != "function" {
			continue
		}
		name := t.sanitizeToolName(ireq.SessionID, ireq.Model, tc.Get("function.name").String())
		args := parseArgsOrWrap(tc.Get("function.arguments").String())
		sig := t.toolSignatureFor("", ireq.SessionID, ireq.Model)
		parts = append(parts, FunctionCallPart(tc.Get("id").String(), name, args, sig))
	}

	if len(parts) == 0 || (ireq.Thinking && len(parts) == 1 && reasoning == "") {
		return nil
	}
	return &Content{Role: "model", Parts: parts}
}
