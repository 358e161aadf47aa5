package admin

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"antigravity2api-go/internal/credential"
)

// ListAccounts handles GET /admin/accounts.
func (h *Handler) ListAccounts(c *gin.Context) {
	views := h.pool.Snapshot()
	enabled := 0
	for _, v := range views {
		if v.Enabled {
			enabled++
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"accounts": views,
		"total":    len(views),
		"enabled":  enabled,
	})
}

// AddAccount handles POST /admin/accounts. The refresh token is validated
// against the upstream before it joins the pool.
func (h *Handler) AddAccount(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "refresh_token is required")
		return
	}

	view, err := h.pool.Add(c.Request.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, credential.ErrDuplicateAccount) {
			respondError(c, http.StatusConflict, err.Error())
			return
		}
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	c.JSON(http.StatusCreated, view)
}

// UpdateAccount handles PUT /admin/accounts/:id.
func (h *Handler) UpdateAccount(c *gin.Context) {
	var upd credential.AccountUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		respondError(c, http.StatusBadRequest, "invalid update body")
		return
	}

	view, err := h.pool.Update(c.Request.Context(), c.Param("id"), upd)
	if err != nil {
		if errors.Is(err, credential.ErrAccountNotFound) {
			respondError(c, http.StatusNotFound, err.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, view)
}

// DeleteAccount handles DELETE /admin/accounts/:id.
func (h *Handler) DeleteAccount(c *gin.Context) {
	if err := h.pool.Delete(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, credential.ErrAccountNotFound) {
			respondError(c, http.StatusNotFound, err.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// ReloadAccounts handles POST /admin/accounts/reload, re-reading the pool
// from the store.
func (h *Handler) ReloadAccounts(c *gin.Context) {
	if err := h.pool.Reload(c.Request.Context()); err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	views := h.pool.Snapshot()
	c.JSON(http.StatusOK, gin.H{"reloaded": true, "total": len(views)})
}

// AccountQuota handles GET /admin/accounts/:id/quota, fetching the live
// per-model quota snapshot with the account's own token.
func (h *Handler) AccountQuota(c *gin.Context) {
	acct, ok := h.pool.Get(c.Param("id"))
	if !ok {
		respondError(c, http.StatusNotFound, "account not found")
		return
	}

	quotas, err := h.catalog.Quotas(c.Request.Context(), acct.AccessToken)
	if err != nil {
		respondError(c, http.StatusBadGateway, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":     credential.DigestID(acct.ID()),
		"email":  acct.Email,
		"quotas": quotas,
	})
}
