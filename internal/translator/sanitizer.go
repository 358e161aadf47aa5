package translator

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"antigravity2api-go/internal/cache"
)

const maxToolNameLength = 128

var toolNameDisallowed = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// sanitizeToolName forces a declaration name into the upstream's accepted
// alphabet and records the original per (sessionId, model) so stream output
// can restore it.
func (t *Translator) sanitizeToolName(sessionID, model, name string) string {
	clean := toolNameDisallowed.ReplaceAllString(name, "_")
	clean = strings.Trim(clean, "_")
	if clean == "" {
		clean = "tool"
	}
	if len(clean) > maxToolNameLength {
		clean = clean[:maxToolNameLength]
	}
	if clean != name {
		t.stores.ToolNames.Set(cache.Key(sessionID, model, clean), name)
	}
	return clean
}

// schemaBanned lists JSON-schema keywords the upstream rejects, in both
// camelCase and snake_case spellings.
var schemaBanned = map[string]bool{
	"$schema":                true,
	"additionalProperties":   true,
	"additional_properties":  true,
	"minLength":              true,
	"min_length":             true,
	"maxLength":              true,
	"max_length":             true,
	"minItems":               true,
	"min_items":              true,
	"maxItems":               true,
	"max_items":              true,
	"uniqueItems":            true,
	"unique_items":           true,
	"exclusiveMaximum":       true,
	"exclusive_maximum":      true,
	"exclusiveMinimum":       true,
	"exclusive_minimum":      true,
	"const":                  true,
	"anyOf":                  true,
	"any_of":                 true,
	"oneOf":                  true,
	"one_of":                 true,
	"allOf":                  true,
	"all_of":                 true,
}

func scrubSchema(v interface{}) interface{} {
	switch node := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(node))
		for k, val := range node {
			if schemaBanned[k] {
				continue
			}
			out[k] = scrubSchema(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, 0, len(node))
		for _, val := range node {
			out = append(out, scrubSchema(val))
		}
		return out
	default:
		return v
	}
}

// normalizeSchema scrubs a tool parameter schema and applies the structural
// defaults the upstream insists on: a top-level type, and properties on
// object schemas.
func normalizeSchema(raw gjson.Result) map[string]interface{} {
	var schema map[string]interface{}
	if raw.Exists() && raw.IsObject() {
		_ = json.Unmarshal([]byte(raw.Raw), &schema)
	}
	cleaned, _ := scrubSchema(schema).(map[string]interface{})
	if cleaned == nil {
		cleaned = map[string]interface{}{}
	}
	if _, ok := cleaned["type"]; !ok {
		cleaned["type"] = "object"
	}
	if typ, _ := cleaned["type"].(string); typ == "object" {
		if _, ok := cleaned["properties"]; !ok {
			cleaned["properties"] = map[string]interface{}{}
		}
	}
	return cleaned
}

// functionDeclaration is one sanitized entry of the upstream tools array.
func (t *Translator) functionDeclaration(sessionID, model, name, description string, params gjson.Result) map[string]interface{} {
	decl := map[string]interface{}{
		"name":       t.sanitizeToolName(sessionID, model, name),
		"parameters": normalizeSchema(params),
	}
	if description != "" {
		decl["description"] = description
	}
	return decl
}

// marshalTools wraps declarations in the upstream's tools array shape.
func marshalTools(declarations []map[string]interface{}) json.RawMessage {
	if len(declarations) == 0 {
		return nil
	}
	out, err := json.Marshal([]map[string]interface{}{
		{"functionDeclarations": declarations},
	})
	if err != nil {
		return nil
	}
	return out
}

// openaiTools collects {type:"function"} declarations from an OpenAI body.
func (t *Translator) openaiTools(raw []byte, sessionID, model string) json.RawMessage {
	tools := gjson.GetBytes(raw, "tools")
	if !tools.Exists() {
		return nil
	}
	var decls []map[string]interface{}
	for _, tool := range tools.Array() {
		if typ := tool.Get("type"); typ.Exists() && typ.String() != "function" {
			continue
		}
		fn := tool.Get("function")
		name := fn.Get("name").String()
		if name == "" {
			continue
		}
		decls = append(decls, t.functionDeclaration(
			sessionID, model, name, fn.Get("description").String(), fn.Get("parameters")))
	}
	return marshalTools(decls)
}

// claudeTools collects Anthropic declarations, which keep the schema under
// input_schema.
func (t *Translator) claudeTools(raw []byte, sessionID, model string) json.RawMessage {
	tools := gjson.GetBytes(raw, "tools")
	if !tools.Exists() {
		return nil
	}
	var decls []map[string]interface{}
	for _, tool := range tools.Array() {
		name := tool.Get("name").String()
		if name == "" {
			continue
		}
		decls = append(decls, t.functionDeclaration(
			sessionID, model, name, tool.Get("description").String(), tool.Get("input_schema")))
	}
	return marshalTools(decls)
}

// geminiTools sanitizes functionDeclarations in place and passes every other
// tool entry (search, code execution) through untouched.
func (t *Translator) geminiTools(raw []byte, sessionID, model string) json.RawMessage {
	tools := gjson.GetBytes(raw, "tools")
	if !tools.Exists() || !tools.IsArray() {
		return nil
	}
	var out []interface{}
	for _, tool := range tools.Array() {
		decls := tool.Get("functionDeclarations")
		if !decls.Exists() {
			var passthrough interface{}
			if err := json.Unmarshal([]byte(tool.Raw), &passthrough); err == nil {
				out = append(out, passthrough)
			}
			continue
		}
		var sanitized []map[string]interface{}
		for _, decl := range decls.Array() {
			name := decl.Get("name").String()
			if name == "" {
				continue
			}
			sanitized = append(sanitized, t.functionDeclaration(
				sessionID, model, name, decl.Get("description").String(), decl.Get("parameters")))
		}
		if len(sanitized) > 0 {
			out = append(out, map[string]interface{}{"functionDeclarations": sanitized})
		}
	}
	if len(out) == 0 {
		return nil
	}
	encoded, err := json.Marshal(out)
	if err != nil {
		return nil
	}
	return encoded
}

// RestoreToolName maps a sanitized upstream name back to what the client
// declared. Used by the relay when surfacing function calls.
func RestoreToolName(stores *cache.Stores, sessionID, model, name string) string {
	if original, ok := stores.ToolNames.Get(cache.Key(sessionID, model, name)); ok {
		return original
	}
	return name
}
