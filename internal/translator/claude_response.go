package translator

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
)

type claudeBlock int

const (
	blockNone claudeBlock = iota
	blockThinking
	blockText
)

// ClaudeStream renders relay events using Anthropic's event grammar:
// message_start, then content_block_start/delta/stop per block, then
// message_delta carrying stop_reason and output tokens, then message_stop.
type ClaudeStream struct {
	w             FrameWriter
	id            string
	model         string
	passSignature bool
	images        ImageSink

	started    bool
	block      claudeBlock
	blockIndex int
	signature  string
	sawTools   bool
	usage      *Usage
}

func NewClaudeStream(w FrameWriter, model string, passSignature bool, images ImageSink) *ClaudeStream {
	return &ClaudeStream{
		w:             w,
		id:            "msg_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		model:         model,
		passSignature: passSignature,
		images:        images,
	}
}

func (s *ClaudeStream) start() error {
	if s.started {
		return nil
	}
	s.started = true
	err := s.w.Event("message_start", map[string]interface{}{
		"type": "message_start",
		"message": map[string]interface{}{
			"id":            s.id,
			"type":          "message",
			"role":          "assistant",
			"model":         s.model,
			"content":       []interface{}{},
			"stop_reason":   nil,
			"stop_sequence": nil,
			"usage":         map[string]interface{}{"input_tokens": 0, "output_tokens": 0},
		},
	})
	if err != nil {
		return err
	}
	return s.w.Event("ping", map[string]interface{}{"type": "ping"})
}

func (s *ClaudeStream) openBlock(kind claudeBlock, block map[string]interface{}) error {
	s.block = kind
	return s.w.Event("content_block_start", map[string]interface{}{
		"type":          "content_block_start",
		"index":         s.blockIndex,
		"content_block": block,
	})
}

func (s *ClaudeStream) delta(delta map[string]interface{}) error {
	return s.w.Event("content_block_delta", map[string]interface{}{
		"type":  "content_block_delta",
		"index": s.blockIndex,
		"delta": delta,
	})
}

// closeBlock ends the open block. A thinking block flushes its signature
// first, when passthrough allows it.
func (s *ClaudeStream) closeBlock() error {
	if s.block == blockNone {
		return nil
	}
	if s.block == blockThinking && s.passSignature && s.signature != "" {
		if err := s.delta(map[string]interface{}{
			"type":      "signature_delta",
			"signature": s.signature,
		}); err != nil {
			return err
		}
		s.signature = ""
	}
	if err := s.w.Event("content_block_stop", map[string]interface{}{
		"type":  "content_block_stop",
		"index": s.blockIndex,
	}); err != nil {
		return err
	}
	s.blockIndex++
	s.block = blockNone
	return nil
}

// Render forwards one relay event, opening and closing blocks as the event
// kind changes.
func (s *ClaudeStream) Render(ev StreamEvent) error {
	if err := s.start(); err != nil {
		return err
	}

	switch ev.Kind {
	case EventReasoning:
		if s.block != blockThinking {
			if err := s.closeBlock(); err != nil {
				return err
			}
			if err := s.openBlock(blockThinking, map[string]interface{}{
				"type":     "thinking",
				"thinking": "",
			}); err != nil {
				return err
			}
		}
		if ev.Signature != "" {
			s.signature = ev.Signature
		}
		if ev.Text == "" {
			return nil
		}
		return s.delta(map[string]interface{}{"type": "thinking_delta", "thinking": ev.Text})

	case EventText:
		return s.textDelta(ev.Text)

	case EventImage:
		md, ok := s.imageMarkdown(ev.Image)
		if !ok {
			return nil
		}
		return s.textDelta(md)

	case EventToolCalls:
		if err := s.closeBlock(); err != nil {
			return err
		}
		s.sawTools = true
		for _, tc := range ev.ToolCalls {
			if err := s.openBlock(blockNone, map[string]interface{}{
				"type":  "tool_use",
				"id":    tc.ID,
				"name":  tc.Name,
				"input": map[string]interface{}{},
			}); err != nil {
				return err
			}
			// 完整参数一次性下发，不做增量。
			if err := s.delta(map[string]interface{}{
				"type":         "input_json_delta",
				"partial_json": tc.Args,
			}); err != nil {
				return err
			}
			if err := s.w.Event("content_block_stop", map[string]interface{}{
				"type":  "content_block_stop",
				"index": s.blockIndex,
			}); err != nil {
				return err
			}
			s.blockIndex++
		}
		s.block = blockNone
		return nil

	case EventUsage:
		s.usage = ev.Usage
		return nil
	}
	return nil
}

func (s *ClaudeStream) textDelta(text string) error {
	if s.block != blockText {
		if err := s.closeBlock(); err != nil {
			return err
		}
		if err := s.openBlock(blockText, map[string]interface{}{
			"type": "text",
			"text": "",
		}); err != nil {
			return err
		}
	}
	return s.delta(map[string]interface{}{"type": "text_delta", "text": text})
}

func (s *ClaudeStream) imageMarkdown(img *InlineImage) (string, bool) {
	if img == nil || s.images == nil {
		return "", false
	}
	url, ok := s.images(*img)
	if !ok {
		return "", false
	}
	return "![image](" + url + ")", true
}

// Finish closes the open block and ends the message. An empty stream still
// produces a grammatically valid sequence.
func (s *ClaudeStream) Finish() error {
	if err := s.start(); err != nil {
		return err
	}
	if err := s.closeBlock(); err != nil {
		return err
	}

	stopReason := "end_turn"
	if s.sawTools {
		stopReason = "tool_use"
	}
	var outputTokens int64
	if s.usage != nil {
		outputTokens = s.usage.OutputTokens
	}

	if err := s.w.Event("message_delta", map[string]interface{}{
		"type": "message_delta",
		"delta": map[string]interface{}{
			"stop_reason":   stopReason,
			"stop_sequence": nil,
		},
		"usage": map[string]interface{}{"output_tokens": outputTokens},
	}); err != nil {
		return err
	}
	return s.w.Event("message_stop", map[string]interface{}{"type": "message_stop"})
}

// ClaudeMessage builds the unary messages response from an aggregated
// exchange.
func ClaudeMessage(model string, comp *Completion, passSignature bool, images ImageSink) ([]byte, error) {
	content := []interface{}{}

	if comp.ReasoningContent != "" {
		block := map[string]interface{}{
			"type":     "thinking",
			"thinking": comp.ReasoningContent,
		}
		if passSignature && comp.ReasoningSignature != "" {
			block["signature"] = comp.ReasoningSignature
		}
		content = append(content, block)
	}

	var text strings.Builder
	text.WriteString(comp.Content)
	if images != nil {
		for _, img := range comp.Images {
			if url, ok := images(img); ok {
				if text.Len() > 0 {
					text.WriteString("\n")
				}
				text.WriteString("![image](" + url + ")")
			}
		}
	}
	if text.Len() > 0 {
		content = append(content, map[string]interface{}{
			"type": "text",
			"text": text.String(),
		})
	}

	for _, tc := range comp.ToolCalls {
		content = append(content, map[string]interface{}{
			"type":  "tool_use",
			"id":    tc.ID,
			"name":  tc.Name,
			"input": parseArgsOrWrap(tc.Args),
		})
	}

	stopReason := "end_turn"
	if len(comp.ToolCalls) > 0 {
		stopReason = "tool_use"
	}

	return json.Marshal(map[string]interface{}{
		"id":            "msg_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		"type":          "message",
		"role":          "assistant",
		"model":         model,
		"content":       content,
		"stop_reason":   stopReason,
		"stop_sequence": nil,
		"usage": map[string]interface{}{
			"input_tokens":  comp.Usage.PromptTokens,
			"output_tokens": comp.Usage.OutputTokens,
		},
	})
}
