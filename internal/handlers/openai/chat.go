package openai

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "antigravity2api-go/internal/errors"
	"antigravity2api-go/internal/handlers/common"
	"antigravity2api-go/internal/httpformat"
	mw "antigravity2api-go/internal/middleware"
	"antigravity2api-go/internal/models"
	"antigravity2api-go/internal/relay"
	"antigravity2api-go/internal/translator"
)

// ChatCompletions handles POST /v1/chat/completions. The stream flag in the
// body selects SSE against a single JSON response.
func (h *Handler) ChatCompletions(c *gin.Context) {
	httpformat.SetFormat(c, apperrors.FormatOpenAI)
	started := time.Now()

	body, apiErr := common.ReadBody(c, h.cfg.Get().Server.MaxRequestSize)
	if apiErr != nil {
		common.AbortWithAPIError(c, apiErr)
		return
	}

	acct, err := h.pool.Acquire(c.Request.Context())
	if err != nil {
		common.AbortWithAPIError(c, common.NoAccountsError(err))
		return
	}

	// 会话 id 取自账号，翻译前必须先拿到账号。
	ireq, err := h.trans.FromOpenAI(body, acct.SessionID)
	if err != nil {
		h.pool.Release(acct, models.OutcomeOK)
		common.AbortWithAPIError(c, common.InvalidRequest(err))
		return
	}

	if ireq.Stream {
		h.streamChat(c, ireq, acct, started)
		return
	}
	h.completeChat(c, ireq, acct, started)
}

func (h *Handler) streamChat(c *gin.Context, ireq *translator.InternalRequest, acct *models.Account, started time.Time) {
	w := h.streams.Writer(c)
	stopHeartbeat := w.StartHeartbeat(c.Request.Context(), h.cfg.Get().Server.HeartbeatDuration())
	defer stopHeartbeat()

	renderer := translator.NewOpenAIStream(w, ireq.Requested, h.images)
	var usage translator.Usage
	toolCalls := 0
	sink := relay.SinkFunc(func(ev translator.StreamEvent) error {
		switch ev.Kind {
		case translator.EventToolCalls:
			toolCalls += len(ev.ToolCalls)
		case translator.EventUsage:
			if ev.Usage != nil {
				usage = *ev.Usage
			}
		}
		return renderer.Render(ev)
	})

	err := h.relay.Stream(c.Request.Context(), ireq, acct, sink)
	outcome := relay.Outcome(err)
	h.pool.Release(acct, outcome)

	path := common.RequestPath(c)
	status := http.StatusOK
	if err != nil {
		apiErr := common.AsAPIError(err)
		status = apiErr.HTTPStatus
		switch {
		case outcome == models.OutcomeCancelled:
			// 客户端已断开，无处可写。
		case !c.Writer.Written():
			common.AbortWithAPIError(c, apiErr)
		default:
			common.StreamError(w, apperrors.FormatOpenAI, apiErr)
		}
		mw.RecordSSEClose(dialect, path, outcome)
	} else {
		_ = renderer.Finish()
		mw.RecordSSEClose(dialect, path, "done")
	}

	mw.RecordSSELines(dialect, path, w.Frames())
	mw.RecordToolCalls(dialect, path, toolCalls)
	mw.RecordTokens(ireq.Model, usage.PromptTokens, usage.OutputTokens, usage.ThoughtsTokens, usage.TotalTokens)
	h.recorder.Record(http.MethodPost, path, ireq.Requested, status, started, outcome, acct, usage)
}

func (h *Handler) completeChat(c *gin.Context, ireq *translator.InternalRequest, acct *models.Account, started time.Time) {
	comp, err := h.relay.Complete(c.Request.Context(), ireq, acct)
	outcome := relay.Outcome(err)
	h.pool.Release(acct, outcome)

	path := common.RequestPath(c)
	if err != nil {
		apiErr := common.AsAPIError(err)
		if outcome == models.OutcomeCancelled {
			c.Abort()
		} else {
			common.AbortWithAPIError(c, apiErr)
		}
		h.recorder.Record(http.MethodPost, path, ireq.Requested, apiErr.HTTPStatus, started, outcome, acct, translator.Usage{})
		return
	}

	payload, err := translator.OpenAICompletion(ireq.Requested, comp, h.images)
	if err != nil {
		common.AbortWithAPIError(c, common.AsAPIError(err))
		h.recorder.Record(http.MethodPost, path, ireq.Requested, http.StatusInternalServerError, started, models.OutcomeUpstreamError, acct, comp.Usage)
		return
	}

	c.Data(http.StatusOK, "application/json", payload)
	mw.RecordTokens(ireq.Model, comp.Usage.PromptTokens, comp.Usage.OutputTokens, comp.Usage.ThoughtsTokens, comp.Usage.TotalTokens)
	h.recorder.Record(http.MethodPost, path, ireq.Requested, http.StatusOK, started, outcome, acct, comp.Usage)
}
