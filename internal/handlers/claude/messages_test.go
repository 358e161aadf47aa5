package claude

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"antigravity2api-go/internal/cache"
	"antigravity2api-go/internal/config"
	apperrors "antigravity2api-go/internal/errors"
	"antigravity2api-go/internal/handlers/common"
	"antigravity2api-go/internal/models"
	"antigravity2api-go/internal/relay"
	"antigravity2api-go/internal/translator"
)

type fakeDispatcher struct {
	events    []translator.StreamEvent
	streamErr error
	comp      *translator.Completion
	compErr   error

	gotReq *translator.InternalRequest
}

func (f *fakeDispatcher) Stream(ctx context.Context, ireq *translator.InternalRequest, acct *models.Account, sink relay.Sink) error {
	f.gotReq = ireq
	for _, ev := range f.events {
		if err := sink.Render(ev); err != nil {
			return err
		}
	}
	return f.streamErr
}

func (f *fakeDispatcher) Complete(ctx context.Context, ireq *translator.InternalRequest, acct *models.Account) (*translator.Completion, error) {
	f.gotReq = ireq
	if f.compErr != nil {
		return nil, f.compErr
	}
	return f.comp, nil
}

type fakePool struct {
	acct     *models.Account
	err      error
	released []string
}

func (f *fakePool) Acquire(ctx context.Context) (*models.Account, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.acct, nil
}

func (f *fakePool) Release(acct *models.Account, outcome string) {
	f.released = append(f.released, outcome)
}

type fakeCatalog []string

func (f fakeCatalog) List(ctx context.Context) []string { return f }

func poolWithAccount() *fakePool {
	return &fakePool{acct: &models.Account{
		AccessToken:  "tok-1",
		RefreshToken: "rt-1",
		SessionID:    "sess-1",
	}}
}

func newMessagesRouter(t *testing.T, disp dispatcher, pool accountPool, configJSON string) *gin.Engine {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(configJSON), 0o644))
	cfg, err := config.NewManager(path)
	require.NoError(t, err)
	t.Cleanup(cfg.Close)

	stores := cache.NewStores(nil, time.Minute)
	t.Cleanup(stores.Stop)
	streams := common.NewStreams(nil)
	t.Cleanup(streams.Close)

	h := New(cfg, pool, translator.New(cfg, stores), disp, streams,
		fakeCatalog{"gemini-2.5-flash", "claude-sonnet-4-5"}, common.NewRecorder(nil), nil)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/v1/messages", h.Messages)
	r.GET("/v1/models", h.ListModels)
	return r
}

func postMessages(r *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/messages", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("anthropic-version", "2023-06-01")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

type sseEvent struct {
	name string
	data string
}

// eventFrames parses an Anthropic SSE body into (event, data) pairs,
// dropping heartbeat comments.
func eventFrames(t *testing.T, body string) []sseEvent {
	t.Helper()
	var frames []sseEvent
	for _, block := range strings.Split(body, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" || strings.HasPrefix(block, ":") {
			continue
		}
		var ev sseEvent
		for _, line := range strings.Split(block, "\n") {
			switch {
			case strings.HasPrefix(line, "event: "):
				ev.name = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				ev.data = strings.TrimPrefix(line, "data: ")
			default:
				t.Fatalf("unexpected SSE line %q", line)
			}
		}
		frames = append(frames, ev)
	}
	return frames
}

func eventNames(frames []sseEvent) []string {
	names := make([]string, 0, len(frames))
	for _, f := range frames {
		names = append(names, f.name)
	}
	return names
}

func TestMessagesStream(t *testing.T) {
	disp := &fakeDispatcher{events: []translator.StreamEvent{
		{Kind: translator.EventReasoning, Text: "pondering"},
		{Kind: translator.EventText, Text: "Hello"},
		{Kind: translator.EventUsage, Usage: &translator.Usage{PromptTokens: 3, OutputTokens: 5, TotalTokens: 8}},
	}}
	pool := poolWithAccount()
	r := newMessagesRouter(t, disp, pool, `{}`)

	rec := postMessages(r, `{"model":"claude-sonnet-4-5","max_tokens":256,"messages":[{"role":"user","content":"hi"}],"stream":true}`)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "text/event-stream")

	frames := eventFrames(t, rec.Body.String())
	require.Equal(t, []string{
		"message_start", "ping",
		"content_block_start", "content_block_delta", "content_block_stop",
		"content_block_start", "content_block_delta", "content_block_stop",
		"message_delta", "message_stop",
	}, eventNames(frames))

	start := frames[0].data
	require.Equal(t, "message_start", gjson.Get(start, "type").String())
	require.Equal(t, "assistant", gjson.Get(start, "message.role").String())
	require.Equal(t, "claude-sonnet-4-5", gjson.Get(start, "message.model").String())

	require.Equal(t, "thinking", gjson.Get(frames[2].data, "content_block.type").String())
	require.Equal(t, "pondering", gjson.Get(frames[3].data, "delta.thinking").String())

	require.Equal(t, "text", gjson.Get(frames[5].data, "content_block.type").String())
	require.Equal(t, int64(1), gjson.Get(frames[5].data, "index").Int())
	require.Equal(t, "Hello", gjson.Get(frames[6].data, "delta.text").String())

	delta := frames[8].data
	require.Equal(t, "end_turn", gjson.Get(delta, "delta.stop_reason").String())
	require.Equal(t, int64(5), gjson.Get(delta, "usage.output_tokens").Int())

	require.Equal(t, []string{models.OutcomeOK}, pool.released)
	require.True(t, disp.gotReq.Stream)
	require.Equal(t, "sess-1", disp.gotReq.SessionID)
}

func TestMessagesStreamToolUse(t *testing.T) {
	disp := &fakeDispatcher{events: []translator.StreamEvent{
		{Kind: translator.EventToolCalls, ToolCalls: []translator.ToolCall{
			{ID: "toolu_1", Name: "get_weather", Args: `{"city":"Oslo"}`},
		}},
	}}
	pool := poolWithAccount()
	r := newMessagesRouter(t, disp, pool, `{}`)

	rec := postMessages(r, `{"model":"claude-sonnet-4-5","max_tokens":256,"messages":[{"role":"user","content":"weather"}],"stream":true}`)
	require.Equal(t, http.StatusOK, rec.Code)

	frames := eventFrames(t, rec.Body.String())
	require.Equal(t, []string{
		"message_start", "ping",
		"content_block_start", "content_block_delta", "content_block_stop",
		"message_delta", "message_stop",
	}, eventNames(frames))

	block := frames[2].data
	require.Equal(t, "tool_use", gjson.Get(block, "content_block.type").String())
	require.Equal(t, "toolu_1", gjson.Get(block, "content_block.id").String())
	require.Equal(t, "get_weather", gjson.Get(block, "content_block.name").String())

	require.Equal(t, "input_json_delta", gjson.Get(frames[3].data, "delta.type").String())
	require.Equal(t, `{"city":"Oslo"}`, gjson.Get(frames[3].data, "delta.partial_json").String())

	require.Equal(t, "tool_use", gjson.Get(frames[5].data, "delta.stop_reason").String())
	require.Equal(t, []string{models.OutcomeOK}, pool.released)
}

func TestMessagesStreamEmptyIsValidGrammar(t *testing.T) {
	pool := poolWithAccount()
	r := newMessagesRouter(t, &fakeDispatcher{}, pool, `{}`)

	rec := postMessages(r, `{"model":"claude-sonnet-4-5","max_tokens":256,"messages":[{"role":"user","content":"hi"}],"stream":true}`)

	require.Equal(t, http.StatusOK, rec.Code)
	frames := eventFrames(t, rec.Body.String())
	require.Equal(t, []string{"message_start", "ping", "message_delta", "message_stop"}, eventNames(frames))
	require.Equal(t, []string{models.OutcomeOK}, pool.released)
}

func TestMessagesStreamSignaturePassthrough(t *testing.T) {
	events := []translator.StreamEvent{
		{Kind: translator.EventReasoning, Text: "thinking hard", Signature: "sig-abc"},
		{Kind: translator.EventText, Text: "done"},
	}

	t.Run("enabled", func(t *testing.T) {
		r := newMessagesRouter(t, &fakeDispatcher{events: events}, poolWithAccount(),
			`{"other":{"passSignatureToClient":true}}`)
		rec := postMessages(r, `{"model":"claude-sonnet-4-5","max_tokens":256,"messages":[{"role":"user","content":"hi"}],"stream":true}`)

		body := rec.Body.String()
		require.Contains(t, body, "signature_delta")
		require.Contains(t, body, "sig-abc")
	})

	t.Run("disabled by default", func(t *testing.T) {
		r := newMessagesRouter(t, &fakeDispatcher{events: events}, poolWithAccount(), `{}`)
		rec := postMessages(r, `{"model":"claude-sonnet-4-5","max_tokens":256,"messages":[{"role":"user","content":"hi"}],"stream":true}`)

		body := rec.Body.String()
		require.NotContains(t, body, "signature_delta")
		require.NotContains(t, body, "sig-abc")
	})
}

func TestMessagesStreamErrorBeforeFirstByte(t *testing.T) {
	disp := &fakeDispatcher{
		streamErr: apperrors.New(http.StatusTooManyRequests, "quota_exhausted", "rate_limit_error", "quota exhausted for account"),
	}
	pool := poolWithAccount()
	r := newMessagesRouter(t, disp, pool, `{}`)

	rec := postMessages(r, `{"model":"claude-sonnet-4-5","max_tokens":256,"messages":[{"role":"user","content":"hi"}],"stream":true}`)

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	body := rec.Body.String()
	require.Equal(t, "error", gjson.Get(body, "type").String())
	require.Equal(t, "rate_limit_error", gjson.Get(body, "error.type").String())
	require.Equal(t, []string{models.OutcomeQuotaExhausted}, pool.released)
}

func TestMessagesStreamErrorMidStream(t *testing.T) {
	disp := &fakeDispatcher{
		events:    []translator.StreamEvent{{Kind: translator.EventText, Text: "partial"}},
		streamErr: apperrors.New(http.StatusBadGateway, "upstream_error", "api_error", "bad gateway"),
	}
	pool := poolWithAccount()
	r := newMessagesRouter(t, disp, pool, `{}`)

	rec := postMessages(r, `{"model":"claude-sonnet-4-5","max_tokens":256,"messages":[{"role":"user","content":"hi"}],"stream":true}`)

	require.Equal(t, http.StatusOK, rec.Code)
	frames := eventFrames(t, rec.Body.String())
	last := frames[len(frames)-1]
	// 错误以命名 error 事件收尾，而不是 message_stop。
	require.Equal(t, "error", last.name)
	require.Equal(t, "bad gateway", gjson.Get(last.data, "error.message").String())
	require.Equal(t, []string{models.OutcomeUpstreamError}, pool.released)
}

func TestMessagesStreamClientGone(t *testing.T) {
	disp := &fakeDispatcher{streamErr: context.Canceled}
	pool := poolWithAccount()
	r := newMessagesRouter(t, disp, pool, `{}`)

	rec := postMessages(r, `{"model":"claude-sonnet-4-5","max_tokens":256,"messages":[{"role":"user","content":"hi"}],"stream":true}`)

	require.Empty(t, eventFrames(t, rec.Body.String()))
	require.Equal(t, []string{models.OutcomeCancelled}, pool.released)
}

func TestMessagesUnary(t *testing.T) {
	disp := &fakeDispatcher{comp: &translator.Completion{
		Content:          "Hi there",
		ReasoningContent: "let me think",
		Usage:            translator.Usage{PromptTokens: 4, OutputTokens: 2, TotalTokens: 6},
	}}
	pool := poolWithAccount()
	r := newMessagesRouter(t, disp, pool, `{}`)

	rec := postMessages(r, `{"model":"claude-sonnet-4-5","max_tokens":256,"messages":[{"role":"user","content":"hi"}]}`)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Equal(t, "message", gjson.Get(body, "type").String())
	require.Equal(t, "assistant", gjson.Get(body, "role").String())
	require.Equal(t, "claude-sonnet-4-5", gjson.Get(body, "model").String())
	require.Equal(t, "thinking", gjson.Get(body, "content.0.type").String())
	require.Equal(t, "let me think", gjson.Get(body, "content.0.thinking").String())
	require.Equal(t, "text", gjson.Get(body, "content.1.type").String())
	require.Equal(t, "Hi there", gjson.Get(body, "content.1.text").String())
	require.Equal(t, "end_turn", gjson.Get(body, "stop_reason").String())
	require.Equal(t, int64(4), gjson.Get(body, "usage.input_tokens").Int())
	require.Equal(t, int64(2), gjson.Get(body, "usage.output_tokens").Int())
	require.Equal(t, []string{models.OutcomeOK}, pool.released)
	require.False(t, disp.gotReq.Stream)
}

func TestMessagesUnaryToolUse(t *testing.T) {
	disp := &fakeDispatcher{comp: &translator.Completion{
		ToolCalls: []translator.ToolCall{{ID: "toolu_9", Name: "lookup", Args: `{"q":"go"}`}},
	}}
	r := newMessagesRouter(t, disp, poolWithAccount(), `{}`)

	rec := postMessages(r, `{"model":"claude-sonnet-4-5","max_tokens":256,"messages":[{"role":"user","content":"hi"}]}`)

	body := rec.Body.String()
	require.Equal(t, "tool_use", gjson.Get(body, "stop_reason").String())
	require.Equal(t, "tool_use", gjson.Get(body, "content.0.type").String())
	require.Equal(t, "lookup", gjson.Get(body, "content.0.name").String())
	require.Equal(t, "go", gjson.Get(body, "content.0.input.q").String())
}

func TestMessagesNoAccounts(t *testing.T) {
	pool := &fakePool{err: apperrors.New(http.StatusServiceUnavailable, "no_accounts", "api_error", "credential pool is empty")}
	r := newMessagesRouter(t, &fakeDispatcher{}, pool, `{}`)

	rec := postMessages(r, `{"model":"claude-sonnet-4-5","max_tokens":256,"messages":[{"role":"user","content":"hi"}]}`)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Equal(t, "overloaded_error", gjson.Get(rec.Body.String(), "error.type").String())
	require.Empty(t, pool.released)
}

func TestMessagesInvalidBody(t *testing.T) {
	pool := poolWithAccount()
	r := newMessagesRouter(t, &fakeDispatcher{}, pool, `{}`)

	rec := postMessages(r, `{"model":"claude-sonnet-4-5","messages":[]}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := rec.Body.String()
	require.Equal(t, "error", gjson.Get(body, "type").String())
	require.Equal(t, "invalid_request_error", gjson.Get(body, "error.type").String())
	require.Contains(t, gjson.Get(body, "error.message").String(), "messages must be a non-empty array")
	// 账号未被消耗，原样归还。
	require.Equal(t, []string{models.OutcomeOK}, pool.released)
}
