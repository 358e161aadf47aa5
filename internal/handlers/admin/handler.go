// Package admin serves the management surface: login, account pool CRUD,
// rotation policy, request history and the live log tail.
package admin

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"antigravity2api-go/internal/auth"
	"antigravity2api-go/internal/config"
	"antigravity2api-go/internal/credential"
	"antigravity2api-go/internal/discovery"
	"antigravity2api-go/internal/logging"
	"antigravity2api-go/internal/models"
	"antigravity2api-go/internal/storage"
)

// accountAdmin is the pool subset the management surface drives.
type accountAdmin interface {
	Snapshot() []credential.AccountView
	Get(id string) (*models.Account, bool)
	Add(ctx context.Context, refreshToken string) (credential.AccountView, error)
	Update(ctx context.Context, id string, upd credential.AccountUpdate) (credential.AccountView, error)
	Delete(ctx context.Context, id string) error
	Reload(ctx context.Context) error
}

type quotaFetcher interface {
	Quotas(ctx context.Context, accessToken string) ([]models.ModelQuota, error)
}

type historySource interface {
	ListHistory(ctx context.Context, limit int) ([]*models.HistoryRecord, error)
}

var (
	_ accountAdmin  = (*credential.Pool)(nil)
	_ quotaFetcher  = (*discovery.ModelService)(nil)
	_ historySource = storage.Store(nil)
)

// Handler aggregates the management dependencies.
type Handler struct {
	cfg     *config.Manager
	pool    accountAdmin
	catalog quotaFetcher
	store   historySource
	creds   *auth.Credentials
	tokens  *auth.Tokens
	tail    *logging.Tail
}

// New constructs the management handler set. tail may be nil when log
// streaming is not wired.
func New(cfg *config.Manager, pool accountAdmin, catalog quotaFetcher, store historySource,
	creds *auth.Credentials, tokens *auth.Tokens, tail *logging.Tail) *Handler {
	return &Handler{
		cfg:     cfg,
		pool:    pool,
		catalog: catalog,
		store:   store,
		creds:   creds,
		tokens:  tokens,
		tail:    tail,
	}
}

// respondError 统一管理端错误响应格式。
func respondError(c *gin.Context, status int, message string) {
	if status <= 0 {
		status = http.StatusInternalServerError
	}
	message = strings.TrimSpace(message)
	if message == "" {
		message = "error"
	}
	code := strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	c.AbortWithStatusJSON(status, gin.H{
		"error": gin.H{"message": message, "type": "management_error", "code": code},
	})
}
