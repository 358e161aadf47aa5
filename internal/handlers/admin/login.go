package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"antigravity2api-go/internal/auth"
)

// Login handles POST /admin/login. Credentials check against the (possibly
// auto-generated) admin pair; success answers with a bearer token.
func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "username and password are required")
		return
	}
	if req.Username == "" {
		req.Username = "admin"
	}

	if !h.creds.Check(req.Username, req.Password) {
		log.WithField("username", req.Username).Warn("admin login rejected")
		respondError(c, http.StatusUnauthorized, "invalid username or password")
		return
	}

	token, expires, err := h.tokens.Issue(req.Username, auth.TokenTTL)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "token issuance failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"token_type": "Bearer",
		"username":   req.Username,
		"expires_at": expires.UTC(),
	})
}
