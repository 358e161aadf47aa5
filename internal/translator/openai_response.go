package translator

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// OpenAIStream renders relay events as chat.completion.chunk frames.
type OpenAIStream struct {
	w        FrameWriter
	id       string
	created  int64
	model    string
	images   ImageSink
	sentRole bool
	sawTools bool
	usage    *Usage
}

// NewOpenAIStream prepares a streaming renderer. model should be the name
// the client requested; responses echo it unmapped.
func NewOpenAIStream(w FrameWriter, model string, images ImageSink) *OpenAIStream {
	return &OpenAIStream{
		w:       w,
		id:      "chatcmpl-" + uuid.NewString(),
		created: time.Now().Unix(),
		model:   model,
		images:  images,
	}
}

func (s *OpenAIStream) chunk(delta map[string]interface{}, finish interface{}) map[string]interface{} {
	return map[string]interface{}{
		"id":      s.id,
		"object":  "chat.completion.chunk",
		"created": s.created,
		"model":   s.model,
		"choices": []interface{}{map[string]interface{}{
			"index":         0,
			"delta":         delta,
			"finish_reason": finish,
		}},
	}
}

// Render forwards one relay event to the client.
func (s *OpenAIStream) Render(ev StreamEvent) error {
	delta := map[string]interface{}{}

	switch ev.Kind {
	case EventReasoning:
		delta["reasoning_content"] = ev.Text
	case EventText:
		delta["content"] = ev.Text
	case EventToolCalls:
		s.sawTools = true
		calls := make([]interface{}, 0, len(ev.ToolCalls))
		for i, tc := range ev.ToolCalls {
			calls = append(calls, map[string]interface{}{
				"index": i,
				"id":    tc.ID,
				"type":  "function",
				"function": map[string]interface{}{
					"name":      tc.Name,
					"arguments": tc.Args,
				},
			})
		}
		delta["tool_calls"] = calls
	case EventImage:
		md, ok := s.imageMarkdown(ev.Image)
		if !ok {
			return nil
		}
		delta["content"] = md
	case EventUsage:
		s.usage = ev.Usage
		return nil
	default:
		return nil
	}

	// The role rides on the first chunk that actually goes out.
	if !s.sentRole {
		delta["role"] = "assistant"
		s.sentRole = true
	}
	return s.w.Data(s.chunk(delta, nil))
}

func (s *OpenAIStream) imageMarkdown(img *InlineImage) (string, bool) {
	if img == nil || s.images == nil {
		return "", false
	}
	url, ok := s.images(*img)
	if !ok {
		return "", false
	}
	return "![image](" + url + ")", true
}

// Finish emits the closing chunk and the DONE sentinel.
func (s *OpenAIStream) Finish() error {
	finish := "stop"
	if s.sawTools {
		finish = "tool_calls"
	}
	final := s.chunk(map[string]interface{}{}, finish)
	if s.usage != nil {
		final["usage"] = openaiUsage(*s.usage)
	}
	if err := s.w.Data(final); err != nil {
		return err
	}
	return s.w.Done()
}

func openaiUsage(u Usage) map[string]interface{} {
	usage := map[string]interface{}{
		"prompt_tokens":     u.PromptTokens,
		"completion_tokens": u.OutputTokens,
		"total_tokens":      u.TotalTokens,
	}
	if u.ThoughtsTokens > 0 {
		usage["completion_tokens_details"] = map[string]interface{}{
			"reasoning_tokens": u.ThoughtsTokens,
		}
	}
	return usage
}

// OpenAICompletion builds the unary chat.completion response from an
// aggregated exchange.
func OpenAICompletion(model string, comp *Completion, images ImageSink) ([]byte, error) {
	var content strings.Builder
	content.WriteString(comp.Content)
	if images != nil {
		for _, img := range comp.Images {
			if url, ok := images(img); ok {
				if content.Len() > 0 {
					content.WriteString("\n")
				}
				content.WriteString("![image](" + url + ")")
			}
		}
	}

	message := map[string]interface{}{
		"role":    "assistant",
		"content": content.String(),
	}
	if comp.ReasoningContent != "" {
		message["reasoning_content"] = comp.ReasoningContent
	}

	finish := "stop"
	if len(comp.ToolCalls) > 0 {
		finish = "tool_calls"
		calls := make([]interface{}, 0, len(comp.ToolCalls))
		for _, tc := range comp.ToolCalls {
			calls = append(calls, map[string]interface{}{
				"id":   tc.ID,
				"type": "function",
				"function": map[string]interface{}{
					"name":      tc.Name,
					"arguments": tc.Args,
				},
			})
		}
		message["tool_calls"] = calls
	}

	return json.Marshal(map[string]interface{}{
		"id":      "chatcmpl-" + uuid.NewString(),
		"object":  "chat.completion",
		"created": time.Now().Unix(),
		"model":   model,
		"choices": []interface{}{map[string]interface{}{
			"index":         0,
			"message":       message,
			"finish_reason": finish,
		}},
		"usage": openaiUsage(comp.Usage),
	})
}
