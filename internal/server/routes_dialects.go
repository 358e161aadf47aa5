package server

import (
	"github.com/gin-gonic/gin"

	"antigravity2api-go/internal/config"
	apperrors "antigravity2api-go/internal/errors"
	claudeh "antigravity2api-go/internal/handlers/claude"
	geminih "antigravity2api-go/internal/handlers/gemini"
	openaih "antigravity2api-go/internal/handlers/openai"
	"antigravity2api-go/internal/httpformat"
	mw "antigravity2api-go/internal/middleware"
	"antigravity2api-go/internal/translator"
)

// registerDialectRoutes mounts the OpenAI, Anthropic and Gemini surfaces.
// All three share one API key guard; the key may arrive in any of the
// conventions the dialects use.
func registerDialectRoutes(engine *gin.Engine, cfg *config.Manager, deps Dependencies) {
	var sink translator.ImageSink
	if deps.Images != nil {
		sink = deps.Images.Sink()
	}

	oa := openaih.New(cfg, deps.Pool, deps.Trans, deps.Relay, deps.Streams, deps.Catalog, deps.Recorder, sink)
	cl := claudeh.New(cfg, deps.Pool, deps.Trans, deps.Relay, deps.Streams, deps.Catalog, deps.Recorder, sink)
	gm := geminih.New(cfg, deps.Pool, deps.Trans, deps.Relay, deps.Streams, deps.Catalog, deps.Recorder)

	keyAuth := mw.KeyAuth(cfg, deps.Tokens)

	v1 := engine.Group("/v1", keyAuth)
	v1.POST("/chat/completions", oa.ChatCompletions)
	v1.POST("/messages", cl.Messages)
	// 两种目录形状共用一条路由，Anthropic 客户端靠请求头识别。
	v1.GET("/models", func(c *gin.Context) {
		if httpformat.DetectFromRequest(c.Request) == apperrors.FormatClaude {
			cl.ListModels(c)
			return
		}
		oa.ListModels(c)
	})

	v1beta := engine.Group("/v1beta", keyAuth)
	v1beta.GET("/models", gm.ListModels)
	v1beta.GET("/models/:action", gm.GetModel)
	v1beta.POST("/models/:action", gm.Generate)
}
