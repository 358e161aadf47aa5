package server

import (
	"github.com/gin-gonic/gin"

	"antigravity2api-go/internal/config"
	adminh "antigravity2api-go/internal/handlers/admin"
	mw "antigravity2api-go/internal/middleware"
)

// registerAdminRoutes mounts the management API. Login is the only open
// endpoint; everything else requires the JWT it issues.
func registerAdminRoutes(engine *gin.Engine, cfg *config.Manager, deps Dependencies) {
	h := adminh.New(cfg, deps.Pool, deps.Catalog, deps.Store, deps.Creds, deps.Tokens, deps.Tail)

	admin := engine.Group("/admin")
	admin.POST("/login", h.Login)

	authed := admin.Group("", mw.AdminAuth(deps.Tokens))
	authed.GET("/accounts", h.ListAccounts)
	authed.POST("/accounts", h.AddAccount)
	authed.POST("/accounts/reload", h.ReloadAccounts)
	authed.PUT("/accounts/:id", h.UpdateAccount)
	authed.DELETE("/accounts/:id", h.DeleteAccount)
	authed.GET("/accounts/:id/quota", h.AccountQuota)
	authed.GET("/rotation", h.GetRotation)
	authed.PUT("/rotation", h.UpdateRotation)
	authed.GET("/history", h.History)
	authed.GET("/logs/ws", h.LogsWS)
}
