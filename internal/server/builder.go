// Package server assembles the HTTP surface: the three dialect groups, the
// management API, and the operational endpoints, all on one Gin engine.
package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"antigravity2api-go/internal/auth"
	"antigravity2api-go/internal/config"
	"antigravity2api-go/internal/credential"
	"antigravity2api-go/internal/discovery"
	apperrors "antigravity2api-go/internal/errors"
	"antigravity2api-go/internal/handlers/common"
	"antigravity2api-go/internal/images"
	"antigravity2api-go/internal/logging"
	mw "antigravity2api-go/internal/middleware"
	"antigravity2api-go/internal/relay"
	"antigravity2api-go/internal/storage"
	"antigravity2api-go/internal/translator"
)

// Dependencies carries the runtime services the HTTP layer is built from.
type Dependencies struct {
	Pool     *credential.Pool
	Trans    *translator.Translator
	Relay    *relay.Dispatcher
	Streams  *common.Streams
	Recorder *common.Recorder
	Catalog  *discovery.ModelService
	Store    storage.Store
	Tokens   *auth.Tokens
	Creds    *auth.Credentials
	Images   *images.Store
	Tail     *logging.Tail
}

// Build constructs the engine with every route group mounted.
func Build(cfg *config.Manager, deps Dependencies) *gin.Engine {
	if !cfg.Get().Other.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	_ = engine.SetTrustedProxies([]string{})
	applyEngineSettings(engine, cfg)

	registerDialectRoutes(engine, cfg, deps)
	registerAdminRoutes(engine, cfg, deps)

	started := time.Now()
	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"uptime": time.Since(started).Round(time.Second).String(),
		})
	})
	if cfg.Get().Monitoring.EnableMetrics {
		engine.GET("/metrics", mw.MetricsHandler)
	}
	if deps.Images != nil {
		engine.GET("/images/:name", deps.Images.Serve)
	}

	engine.NoRoute(func(c *gin.Context) {
		common.AbortWithAPIError(c, apperrors.New(http.StatusNotFound,
			"not_found", "invalid_request_error", "route not found: "+c.Request.URL.Path))
	})
	return engine
}

// applyEngineSettings wires the shared middleware chain. Recovery comes
// first so a panic anywhere below still renders a dialect-shaped 500.
func applyEngineSettings(engine *gin.Engine, cfg *config.Manager) {
	engine.Use(mw.Recovery(), mw.RequestID(), mw.Metrics(), mw.CORS(), mw.RequestLogger())
	if rl := cfg.Get().RateLimit; rl.RPS > 0 {
		engine.Use(mw.RateLimiterAutoKey(rl.RPS, rl.Burst))
	}
}
