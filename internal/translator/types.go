// Package translator converts between the three public dialects (OpenAI
// chat completions, Anthropic messages, Gemini generateContent) and the
// internal wire protocol spoken by the upstream endpoint. Inbound adapters
// normalize raw request bodies into an InternalRequest; outbound renderers
// turn the relay's event stream back into the caller's dialect.
package translator

import (
	"encoding/json"
)

type partKind int

const (
	partText partKind = iota
	partThought
	partInlineData
	partFunctionCall
	partFunctionResponse
	partRaw
)

// Part is one element of a Content parts array. Exactly one wire shape is
// populated, fixed by the constructor that built the part.
type Part struct {
	kind      partKind
	text      string
	signature string
	mimeType  string
	data      string
	callID    string
	name      string
	args      interface{}
	output    string
	raw       json.RawMessage
}

// TextPart is a plain text part.
func TextPart(text string) Part {
	return Part{kind: partText, text: text}
}

// SignedTextPart is a text part carrying a thought signature, used for
// assistant history so the upstream can verify prior turns.
func SignedTextPart(text, signature string) Part {
	return Part{kind: partText, text: text, signature: signature}
}

// ThoughtPart marks reasoning content with thought:true. History translation
// uses a single-space sentinel when the client supplied no reasoning text.
func ThoughtPart(text string) Part {
	return Part{kind: partThought, text: text}
}

// InlineDataPart carries base64 media.
func InlineDataPart(mimeType, data string) Part {
	return Part{kind: partInlineData, mimeType: mimeType, data: data}
}

// FunctionCallPart is a historical tool invocation. args must already be the
// decoded argument object.
func FunctionCallPart(id, name string, args interface{}, signature string) Part {
	return Part{kind: partFunctionCall, callID: id, name: name, args: args, signature: signature}
}

// FunctionResponsePart is a tool result paired to a prior call by id.
func FunctionResponsePart(id, name, output string) Part {
	return Part{kind: partFunctionResponse, callID: id, name: name, output: output}
}

// RawPart passes an already-wire-shaped part through untouched. The Gemini
// inbound adapter uses it for shapes the gateway does not rewrite.
func RawPart(raw json.RawMessage) Part {
	return Part{kind: partRaw, raw: raw}
}

// IsFunctionCall reports whether the part is a tool invocation.
func (p Part) IsFunctionCall() bool { return p.kind == partFunctionCall }

// IsFunctionResponse reports whether the part is a tool result.
func (p Part) IsFunctionResponse() bool { return p.kind == partFunctionResponse }

// CallID returns the tool-call pairing id, empty for other kinds.
func (p Part) CallID() string { return p.callID }

// Name returns the function name for call/response parts.
func (p Part) Name() string { return p.name }

// Text returns the textual payload for text and thought parts.
func (p Part) Text() string { return p.text }

func (p Part) MarshalJSON() ([]byte, error) {
	switch p.kind {
	case partThought:
		m := map[string]interface{}{"text": p.text, "thought": true}
		if p.signature != "" {
			m["thoughtSignature"] = p.signature
		}
		return json.Marshal(m)
	case partInlineData:
		return json.Marshal(map[string]interface{}{
			"inlineData": map[string]interface{}{"mimeType": p.mimeType, "data": p.data},
		})
	case partFunctionCall:
		call := map[string]interface{}{"name": p.name, "args": p.args}
		if p.callID != "" {
			call["id"] = p.callID
		}
		m := map[string]interface{}{"functionCall": call}
		if p.signature != "" {
			m["thoughtSignature"] = p.signature
		}
		return json.Marshal(m)
	case partFunctionResponse:
		resp := map[string]interface{}{
			"name":     p.name,
			"response": map[string]interface{}{"output": p.output},
		}
		if p.callID != "" {
			resp["id"] = p.callID
		}
		return json.Marshal(map[string]interface{}{"functionResponse": resp})
	case partRaw:
		return p.raw, nil
	default:
		m := map[string]interface{}{"text": p.text}
		if p.signature != "" {
			m["thoughtSignature"] = p.signature
		}
		return json.Marshal(m)
	}
}

// Content is one turn of upstream conversation history.
type Content struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

// NormalizedParameters is the dialect-independent generation knob set.
// Pointer fields distinguish "client omitted" from an explicit zero.
type NormalizedParameters struct {
	Temperature    *float64
	TopP           *float64
	TopK           *int
	MaxTokens      *int
	ThinkingBudget *int
}

// InternalRequest is the dialect-independent form of one generation call.
type InternalRequest struct {
	// Requested is the model exactly as the client named it; responses echo it.
	Requested string
	// Model is the upstream name after mapping.
	Model string
	// Thinking reports whether reasoning output is requested, derived from
	// Requested before mapping and forced off by a zero thinking budget.
	Thinking  bool
	Stream    bool
	SessionID string
	Contents  []Content
	// System is the merged system instruction; empty means none.
	System string
	// Tools is the sanitized upstream tools array, nil when the request
	// declared none. ToolConfig passes through untouched.
	Tools      json.RawMessage
	ToolConfig json.RawMessage
	Params     NormalizedParameters
}

// EventKind tags one relay stream event.
type EventKind string

const (
	EventReasoning EventKind = "reasoning"
	EventText      EventKind = "text"
	EventToolCalls EventKind = "tool_calls"
	EventUsage     EventKind = "usage"
	EventImage     EventKind = "image"
)

// ToolCall is one upstream function invocation surfaced to the client.
type ToolCall struct {
	ID   string
	Name string
	// Args is the argument object as JSON text.
	Args string
}

// InlineImage is generated media embedded in an upstream response.
type InlineImage struct {
	MimeType string
	Data     string
}

// Usage mirrors the upstream usageMetadata counters.
type Usage struct {
	PromptTokens   int64
	OutputTokens   int64
	ThoughtsTokens int64
	TotalTokens    int64
}

// StreamEvent is one unit of upstream output after relay parsing. Exactly
// the fields for its Kind are set.
type StreamEvent struct {
	Kind      EventKind
	Text      string
	Signature string
	ToolCalls []ToolCall
	Image     *InlineImage
	Usage     *Usage
}

// Completion aggregates a whole exchange for non-streaming responses.
type Completion struct {
	Content            string
	ReasoningContent   string
	ReasoningSignature string
	ToolCalls          []ToolCall
	Images             []InlineImage
	Usage              Usage
}

// Absorb folds one stream event into the aggregate.
func (c *Completion) Absorb(ev StreamEvent) {
	switch ev.Kind {
	case EventReasoning:
		c.ReasoningContent += ev.Text
		if ev.Signature != "" {
			c.ReasoningSignature = ev.Signature
		}
	case EventText:
		c.Content += ev.Text
	case EventToolCalls:
		c.ToolCalls = append(c.ToolCalls, ev.ToolCalls...)
	case EventImage:
		if ev.Image != nil {
			c.Images = append(c.Images, *ev.Image)
		}
	case EventUsage:
		if ev.Usage != nil {
			c.Usage = *ev.Usage
		}
	}
}

// FrameWriter is the client connection as the stream renderers see it.
// handlers implement it over the HTTP response writer.
type FrameWriter interface {
	// Data writes one data: frame with a JSON body.
	Data(v interface{}) error
	// Event writes a named event: frame followed by its data: line.
	Event(name string, v interface{}) error
	// Done writes the OpenAI terminator frame.
	Done() error
}

// ImageSink persists generated inline media and returns a client-reachable
// URL. Renderers call it when configured instead of embedding raw media.
type ImageSink func(img InlineImage) (string, bool)
