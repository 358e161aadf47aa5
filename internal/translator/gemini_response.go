package translator

import (
	"encoding/json"
)

// GeminiStream renders relay events as generateContent stream frames. Each
// frame carries at most one parts array; the closing frame carries
// finishReason STOP plus usage.
type GeminiStream struct {
	w             FrameWriter
	model         string
	passSignature bool
	usage         *Usage
}

func NewGeminiStream(w FrameWriter, model string, passSignature bool) *GeminiStream {
	return &GeminiStream{w: w, model: model, passSignature: passSignature}
}

func (s *GeminiStream) frame(parts []interface{}) map[string]interface{} {
	return map[string]interface{}{
		"candidates": []interface{}{map[string]interface{}{
			"content": map[string]interface{}{"parts": parts, "role": "model"},
			"index":   0,
		}},
		"modelVersion": s.model,
	}
}

// Render forwards one relay event as a candidate frame.
func (s *GeminiStream) Render(ev StreamEvent) error {
	switch ev.Kind {
	case EventReasoning:
		part := map[string]interface{}{"text": ev.Text, "thought": true}
		if s.passSignature && ev.Signature != "" {
			part["thoughtSignature"] = ev.Signature
		}
		return s.w.Data(s.frame([]interface{}{part}))

	case EventText:
		return s.w.Data(s.frame([]interface{}{map[string]interface{}{"text": ev.Text}}))

	case EventToolCalls:
		parts := make([]interface{}, 0, len(ev.ToolCalls))
		for _, tc := range ev.ToolCalls {
			call := map[string]interface{}{
				"name": tc.Name,
				"args": parseArgsOrWrap(tc.Args),
			}
			if tc.ID != "" {
				call["id"] = tc.ID
			}
			parts = append(parts, map[string]interface{}{"functionCall": call})
		}
		return s.w.Data(s.frame(parts))

	case EventImage:
		if ev.Image == nil {
			return nil
		}
		return s.w.Data(s.frame([]interface{}{map[string]interface{}{
			"inlineData": map[string]interface{}{
				"mimeType": ev.Image.MimeType,
				"data":     ev.Image.Data,
			},
		}}))

	case EventUsage:
		s.usage = ev.Usage
		return nil
	}
	return nil
}

// Finish emits the closing frame. The dialect has no DONE sentinel; the
// handler simply ends the response afterwards.
func (s *GeminiStream) Finish() error {
	frame := map[string]interface{}{
		"candidates": []interface{}{map[string]interface{}{
			"finishReason": "STOP",
			"index":        0,
		}},
		"modelVersion": s.model,
	}
	if s.usage != nil {
		frame["usageMetadata"] = geminiUsage(*s.usage)
	}
	return s.w.Data(frame)
}

func geminiUsage(u Usage) map[string]interface{} {
	usage := map[string]interface{}{
		"promptTokenCount":     u.PromptTokens,
		"candidatesTokenCount": u.OutputTokens,
		"totalTokenCount":      u.TotalTokens,
	}
	if u.ThoughtsTokens > 0 {
		usage["thoughtsTokenCount"] = u.ThoughtsTokens
	}
	return usage
}

// GeminiResponse builds the unary generateContent response from an
// aggregated exchange. Inline media stays inline in this dialect.
func GeminiResponse(model string, comp *Completion, passSignature bool) ([]byte, error) {
	var parts []interface{}

	if comp.ReasoningContent != "" {
		part := map[string]interface{}{"text": comp.ReasoningContent, "thought": true}
		if passSignature && comp.ReasoningSignature != "" {
			part["thoughtSignature"] = comp.ReasoningSignature
		}
		parts = append(parts, part)
	}
	if comp.Content != "" {
		parts = append(parts, map[string]interface{}{"text": comp.Content})
	}
	for _, img := range comp.Images {
		parts = append(parts, map[string]interface{}{
			"inlineData": map[string]interface{}{
				"mimeType": img.MimeType,
				"data":     img.Data,
			},
		})
	}
	for _, tc := range comp.ToolCalls {
		call := map[string]interface{}{
			"name": tc.Name,
			"args": parseArgsOrWrap(tc.Args),
		}
		if tc.ID != "" {
			call["id"] = tc.ID
		}
		parts = append(parts, map[string]interface{}{"functionCall": call})
	}
	if parts == nil {
		parts = []interface{}{}
	}

	return json.Marshal(map[string]interface{}{
		"candidates": []interface{}{map[string]interface{}{
			"content":      map[string]interface{}{"parts": parts, "role": "model"},
			"finishReason": "STOP",
			"index":        0,
		}},
		"usageMetadata": geminiUsage(comp.Usage),
		"modelVersion":  model,
	})
}
