package translator

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// FromGemini normalizes a generateContent body. The model arrives in the URL
// path, not the body, so the handler passes it in along with the streaming
// flag resolved from the route.
func (t *Translator) FromGemini(raw []byte, model, sessionID string, stream bool) (*InternalRequest, error) {
	if model == "" {
		return nil, fmt.Errorf("model is required")
	}
	rawContents := gjson.GetBytes(raw, "contents")
	if !rawContents.IsArray() || len(rawContents.Array()) == 0 {
		return nil, fmt.Errorf("contents must be a non-empty array")
	}

	cfg := t.cfg.Get()
	ireq := t.newRequest(model, sessionID, stream)
	ireq.Params = geminiParameters(raw)
	ireq.Params.fillDefaults(cfg.Defaults)
	ireq.Tools = t.geminiTools(raw, sessionID, ireq.Model)
	if tc := gjson.GetBytes(raw, "toolConfig"); tc.Exists() {
		ireq.ToolConfig = json.RawMessage(tc.Raw)
	}

	var contents []Content
	for _, content := range rawContents.Array() {
		role := content.Get("role").String()
		if role == "assistant" || role == "model" {
			role = "model"
		} else {
			role = "user"
		}
		var parts []Part
		for _, part := range content.Get("parts").Array() {
			parts = append(parts, t.geminiPart(part, role, ireq))
		}
		if len(parts) == 0 {
			continue
		}
		contents = append(contents, Content{Role: role, Parts: parts})
	}
	ireq.Contents = contents

	t.finishRequest(ireq, geminiSystemSegments(raw), cfg)
	return ireq, nil
}

// geminiSystemSegments reads systemInstruction under either spelling.
func geminiSystemSegments(raw []byte) []string {
	si := gjson.GetBytes(raw, "systemInstruction")
	if !si.Exists() {
		si = gjson.GetBytes(raw, "system_instruction")
	}
	if !si.Exists() {
		return nil
	}
	if si.Type == gjson.String {
		return []string{si.String()}
	}
	var segments []string
	for _, p := range si.Get("parts").Array() {
		if text := p.Get("text").String(); text != "" {
			segments = append(segments, text)
		}
	}
	return segments
}

// geminiPart re-types the part shapes the gateway rewrites (names, thought
// signatures, MIME spellings); everything else passes through raw.
func (t *Translator) geminiPart(part gjson.Result, role string, ireq *InternalRequest) Part {
	switch {
	case part.Get("functionCall").Exists():
		call := part.Get("functionCall")
		name := t.sanitizeToolName(ireq.SessionID, ireq.Model, call.Get("name").String())
		var args interface{} = map[string]interface{}{}
		if a := call.Get("args"); a.IsObject() {
			var m map[string]interface{}
			if err := json.Unmarshal([]byte(a.Raw), &m); err == nil {
				args = m
			}
		}
		sig := t.toolSignatureFor(part.Get("thoughtSignature").String(), ireq.SessionID, ireq.Model)
		return FunctionCallPart(call.Get("id").String(), name, args, sig)

	case part.Get("functionResponse").Exists():
		// 仅改写 name，响应体原样透传。
		name := part.Get("functionResponse.name").String()
		if clean := t.sanitizeToolName(ireq.SessionID, ireq.Model, name); clean != name {
			if updated, err := sjson.Set(part.Raw, "functionResponse.name", clean); err == nil {
				return RawPart(json.RawMessage(updated))
			}
		}
		return RawPart(json.RawMessage(part.Raw))

	case part.Get("thought").Bool():
		return ThoughtPart(part.Get("text").String())

	case part.Get("inlineData").Exists():
		data := part.Get("inlineData")
		return InlineDataPart(
			canonicalImageMIME(data.Get("mimeType").String()), data.Get("data").String())

	case part.Get("text").Exists():
		if role == "model" {
			sig := t.signatureFor(part.Get("thoughtSignature").String(), ireq.SessionID, ireq.Model)
			return SignedTextPart(part.Get("text").String(), sig)
		}
		return TextPart(part.Get("text").String())

	default:
		return RawPart(json.RawMessage(part.Raw))
	}
}
