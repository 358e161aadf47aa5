package relay

import (
	"strings"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"antigravity2api-go/internal/cache"
	"antigravity2api-go/internal/translator"
)

// toolCallList is the pooled pending-call skeleton for one stream. Tool
// calls buffer here until the upstream reports a finishReason.
type toolCallList struct {
	calls []translator.ToolCall
}

func (l *toolCallList) reset() {
	for i := range l.calls {
		l.calls[i] = translator.ToolCall{}
	}
	l.calls = l.calls[:0]
}

// streamParser turns upstream payloads into stream events. One instance per
// call; it tracks the pending tool calls and the last usage snapshot so the
// flush order (reasoning/text first, tool calls at finish, usage last) holds
// regardless of how the upstream slices its chunks.
type streamParser struct {
	stores    *cache.Stores
	pool      *cache.Pool
	list      *toolCallList
	sessionID string
	model     string

	usage   *translator.Usage
	flushed bool
}

type emitFunc func(ev translator.StreamEvent) error

// feed parses one JSON payload. The upstream wraps both stream chunks and
// unary answers in a response field; unwrap before reading candidates.
// data is copied once up front: it aliases the scanner buffer, while the
// strings cut from it (buffered tool calls, signatures held by renderers)
// must survive past the next Scan.
func (p *streamParser) feed(data []byte, emit emitFunc) error {
	root := gjson.Parse(string(data))
	if wrapped := root.Get("response"); wrapped.Exists() {
		root = wrapped
	}

	candidate := root.Get("candidates.0")

	var emitErr error
	candidate.Get("content.parts").ForEach(func(_, part gjson.Result) bool {
		ev, ok := p.partEvent(part)
		if !ok {
			return true
		}
		if err := emit(ev); err != nil {
			emitErr = err
			return false
		}
		return true
	})
	if emitErr != nil {
		return emitErr
	}

	if um := root.Get("usageMetadata"); um.Exists() {
		p.usage = usageFrom(um)
	}
	if finish := candidate.Get("finishReason"); finish.Exists() && finish.String() != "" {
		return p.flush(emit)
	}
	return nil
}

// partEvent maps one content part to its event. Function calls return
// ok=false: they buffer instead of emitting so they never overtake the
// reasoning and text of their own chunk.
func (p *streamParser) partEvent(part gjson.Result) (translator.StreamEvent, bool) {
	if part.Get("thought").Bool() {
		sig := part.Get("thoughtSignature").String()
		if sig != "" {
			p.stores.Reasoning.Set(cache.Key(p.sessionID, p.model), sig)
		}
		// thought:true 的空文本也算 reasoning 增量
		return translator.StreamEvent{
			Kind:      translator.EventReasoning,
			Text:      part.Get("text").String(),
			Signature: sig,
		}, true
	}
	if fc := part.Get("functionCall"); fc.Exists() {
		if sig := part.Get("thoughtSignature").String(); sig != "" {
			p.stores.Tool.Set(cache.Key(p.sessionID, p.model), sig)
		}
		p.bufferCall(fc)
		return translator.StreamEvent{}, false
	}
	if text := part.Get("text"); text.Exists() {
		// 严格判 Exists：空字符串也是一次文本增量
		return translator.StreamEvent{Kind: translator.EventText, Text: text.String()}, true
	}
	if inline := part.Get("inlineData"); inline.Exists() {
		return translator.StreamEvent{
			Kind: translator.EventImage,
			Image: &translator.InlineImage{
				MimeType: inline.Get("mimeType").String(),
				Data:     inline.Get("data").String(),
			},
		}, true
	}
	return translator.StreamEvent{}, false
}

// bufferCall stashes one functionCall with its id preserved verbatim and
// the sanitized name mapped back to what the client declared.
func (p *streamParser) bufferCall(fc gjson.Result) {
	id := fc.Get("id").String()
	if id == "" {
		id = "call_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	}
	name := translator.RestoreToolName(p.stores, p.sessionID, p.model, fc.Get("name").String())
	args := fc.Get("args").Raw
	if args == "" {
		args = "{}"
	}
	p.list.calls = append(p.list.calls, translator.ToolCall{ID: id, Name: name, Args: args})
}

// flush delivers the buffered tool calls and the usage snapshot. Runs at
// the upstream finishReason and again from finalize for streams that end
// without one; the second run is a no-op.
func (p *streamParser) flush(emit emitFunc) error {
	if p.flushed {
		return nil
	}
	p.flushed = true

	if len(p.list.calls) > 0 {
		if err := emit(translator.StreamEvent{Kind: translator.EventToolCalls, ToolCalls: p.list.calls}); err != nil {
			return err
		}
	}
	if p.usage != nil {
		if err := emit(translator.StreamEvent{Kind: translator.EventUsage, Usage: p.usage}); err != nil {
			return err
		}
	}
	return nil
}

// finalize covers upstreams that close the stream without a finishReason.
func (p *streamParser) finalize(emit emitFunc) error {
	return p.flush(emit)
}

// release returns the pending-call skeleton to its pool. Callers must not
// touch previously emitted tool-call slices afterwards.
func (p *streamParser) release() {
	if p.list != nil {
		p.pool.Put(p.list)
		p.list = nil
	}
}

func usageFrom(um gjson.Result) *translator.Usage {
	prompt := um.Get("promptTokenCount").Int()
	thoughts := um.Get("thoughtsTokenCount").Int()
	output := um.Get("candidatesTokenCount").Int()
	total := um.Get("totalTokenCount").Int()
	if total == 0 {
		total = prompt + thoughts + output
	}
	return &translator.Usage{
		PromptTokens:   prompt,
		OutputTokens:   output,
		ThoughtsTokens: thoughts,
		TotalTokens:    total,
	}
}
