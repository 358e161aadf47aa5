package gemini

import (
	"net/http"
	"strings"
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

// Generate handles POST /v1beta/models/<model>:<method>. generateContent
// answers with a single JSON body unless ?alt=sse upgrades it to a stream;
// streamGenerateContent always streams.
func (h *Handler) Generate(c *gin.Context) {
	httpformat.SetFormat(c, apperrors.FormatGemini)
	started := time.Now()

	model, method, ok := splitAction(c.Param("action"))
	if !ok {
		common.AbortWithAPIError(c, notFound(c.Request.URL.Path+" not found"))
		return
	}

	var stream bool
	switch method {
	case "generateContent":
		stream = wantsSSE(c)
	case "streamGenerateContent":
		stream = true
	default:
		common.AbortWithAPIError(c, notFound("unknown action "+method))
		return
	}

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
	ireq, err := h.trans.FromGemini(body, model, acct.SessionID, stream)
	if err != nil {
		h.pool.Release(acct, models.OutcomeOK)
		common.AbortWithAPIError(c, common.InvalidRequest(err))
		return
	}

	if stream {
		h.streamGenerate(c, ireq, acct, started)
		return
	}
	h.completeGenerate(c, ireq, acct, started)
}

// splitAction parses "<model>:<method>" from the final path segment.
func splitAction(raw string) (model, method string, ok bool) {
	raw = strings.TrimPrefix(raw, "/")
	model, method, found := strings.Cut(raw, ":")
	if !found || model == "" || method == "" {
		return "", "", false
	}
	return model, method, true
}

// wantsSSE reports the alt=sse query flag, under either spelling.
func wantsSSE(c *gin.Context) bool {
	alt, ok := c.GetQuery("alt")
	if !ok {
		alt, _ = c.GetQuery("$alt")
	}
	return strings.EqualFold(alt, "sse")
}

func notFound(msg string) *apperrors.APIError {
	return apperrors.New(http.StatusNotFound, "not_found", "invalid_request_error", msg)
}

func (h *Handler) streamGenerate(c *gin.Context, ireq *translator.InternalRequest, acct *models.Account, started time.Time) {
	w := h.streams.Writer(c)
	stopHeartbeat := w.StartHeartbeat(c.Request.Context(), h.cfg.Get().Server.HeartbeatDuration())
	defer stopHeartbeat()

	renderer := translator.NewGeminiStream(w, ireq.Requested, h.cfg.Get().Other.PassSignatureToClient)
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
			common.StreamError(w, apperrors.FormatGemini, apiErr)
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

func (h *Handler) completeGenerate(c *gin.Context, ireq *translator.InternalRequest, acct *models.Account, started time.Time) {
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

	payload, err := translator.GeminiResponse(ireq.Requested, comp, h.cfg.Get().Other.PassSignatureToClient)
	if err != nil {
		common.AbortWithAPIError(c, common.AsAPIError(err))
		h.recorder.Record(http.MethodPost, path, ireq.Requested, http.StatusInternalServerError, started, models.OutcomeUpstreamError, acct, comp.Usage)
		return
	}

	c.Data(http.StatusOK, "application/json", payload)
	mw.RecordTokens(ireq.Model, comp.Usage.PromptTokens, comp.Usage.OutputTokens, comp.Usage.ThoughtsTokens, comp.Usage.TotalTokens)
	h.recorder.Record(http.MethodPost, path, ireq.Requested, http.StatusOK, started, outcome, acct, comp.Usage)
}
