package translator

import (
	"encoding/json"
	"strings"

	"antigravity2api-go/internal/cache"
	"antigravity2api-go/internal/config"
)

// Translator owns the dialect adapters. It is stateless apart from the
// signature and tool-name caches it reads and writes.
type Translator struct {
	cfg    *config.Manager
	stores *cache.Stores
}

func New(cfg *config.Manager, stores *cache.Stores) *Translator {
	return &Translator{cfg: cfg, stores: stores}
}

// Stores exposes the caches so the relay parser can record signatures and
// restore sanitized tool names on the way back out.
func (t *Translator) Stores() *cache.Stores { return t.stores }

func (t *Translator) newRequest(model, sessionID string, stream bool) *InternalRequest {
	return &InternalRequest{
		Requested: model,
		Model:     MapModel(model),
		Thinking:  ThinkingEnabled(model),
		Stream:    stream,
		SessionID: sessionID,
	}
}

// finishRequest applies the pieces every dialect shares once the adapter has
// collected history, system segments, and parameters.
func (t *Translator) finishRequest(ireq *InternalRequest, systemSegments []string, cfg *config.Config) {
	ireq.System = mergeSystemInstruction(
		cfg.Secrets.SystemInstruction, systemSegments, cfg.Other.GetUseContextSystemPrompt())
	// An explicit zero budget forces reasoning off regardless of the model.
	if ireq.Params.ThinkingBudget != nil && *ireq.Params.ThinkingBudget == 0 {
		ireq.Thinking = false
	}
}

// mergeSystemInstruction joins the configured default system text with the
// request's leading system run. useContext=false drops the request part.
func mergeSystemInstruction(configured string, requestSegments []string, useContext bool) string {
	segments := make([]string, 0, len(requestSegments)+1)
	if configured != "" {
		segments = append(segments, configured)
	}
	if useContext {
		for _, s := range requestSegments {
			if s != "" {
				segments = append(segments, s)
			}
		}
	}
	return strings.Join(segments, "\n\n")
}

// parseArgsOrWrap decodes a tool-call argument string. Anything that is not
// a JSON object is wrapped so the upstream still receives one.
func parseArgsOrWrap(raw string) interface{} {
	var args map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &args); err == nil && args != nil {
		return args
	}
	return map[string]interface{}{"query": raw}
}

// signatureFor attaches the cached thought signature for this session and
// model when the client supplied none.
func (t *Translator) signatureFor(supplied, sessionID, model string) string {
	if supplied != "" {
		return supplied
	}
	if sig, ok := t.stores.Reasoning.Get(cache.Key(sessionID, model)); ok {
		return sig
	}
	return ""
}

// toolSignatureFor is signatureFor for functionCall parts, served from the
// tool signature cache.
func (t *Translator) toolSignatureFor(supplied, sessionID, model string) string {
	if supplied != "" {
		return supplied
	}
	if sig, ok := t.stores.Tool.Get(cache.Key(sessionID, model)); ok {
		return sig
	}
	return ""
}

// appendToolResponse groups consecutive tool results into the parts array of
// a single user Content, which the upstream prefers.
func appendToolResponse(contents *[]Content, part Part) {
	if n := len(*contents); n > 0 {
		last := &(*contents)[n-1]
		if last.Role == "user" && allFunctionResponses(last.Parts) {
			last.Parts = append(last.Parts, part)
			return
		}
	}
	*contents = append(*contents, Content{Role: "user", Parts: []Part{part}})
}

func allFunctionResponses(parts []Part) bool {
	if len(parts) == 0 {
		return false
	}
	for _, p := range parts {
		if !p.IsFunctionResponse() {
			return false
		}
	}
	return true
}

func allFunctionCalls(parts []Part) bool {
	if len(parts) == 0 {
		return false
	}
	for _, p := range parts {
		if !p.IsFunctionCall() {
			return false
		}
	}
	return true
}

// findFunctionName resolves a tool result's function name by scanning model
// contents backwards for the matching call id.
func findFunctionName(contents []Content, callID string) string {
	for i := len(contents) - 1; i >= 0; i-- {
		if contents[i].Role != "model" {
			continue
		}
		for _, p := range contents[i].Parts {
			if p.IsFunctionCall() && p.CallID() == callID {
				return p.Name()
			}
		}
	}
	return ""
}

// mergeModelRuns folds consecutive model contents together when one side
// carries only tool calls. Upstream treats a text turn and its calls as one.
func mergeModelRuns(contents []Content) []Content {
	if len(contents) <= 1 {
		return contents
	}
	out := make([]Content, 0, len(contents))
	for _, c := range contents {
		if n := len(out); n > 0 {
			last := &out[n-1]
			if last.Role == "model" && c.Role == "model" &&
				(allFunctionCalls(last.Parts) || allFunctionCalls(c.Parts)) {
				last.Parts = append(last.Parts, c.Parts...)
				continue
			}
		}
		out = append(out, c)
	}
	return out
}

// inlineImagePart decodes an inline data: URL. JPEG 的 MIME 统一写作 image/jpeg。
func inlineImagePart(url string) (Part, bool) {
	if !strings.HasPrefix(url, "data:") {
		return Part{}, false
	}
	meta, data, ok := strings.Cut(strings.TrimPrefix(url, "data:"), ",")
	if !ok || data == "" {
		return Part{}, false
	}
	mime := strings.TrimSuffix(meta, ";base64")
	return InlineDataPart(canonicalImageMIME(mime), data), true
}

func canonicalImageMIME(mime string) string {
	switch strings.ToLower(strings.TrimSpace(mime)) {
	case "", "image/jpg", "image/jpeg":
		return "image/jpeg"
	}
	return mime
}
