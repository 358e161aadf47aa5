package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"antigravity2api-go/internal/credential"
)

// GetRotation handles GET /admin/rotation.
func (h *Handler) GetRotation(c *gin.Context) {
	rotation := h.cfg.Get().Rotation
	c.JSON(http.StatusOK, gin.H{
		"strategy":     rotation.Strategy,
		"requestCount": rotation.RequestCount,
	})
}

// UpdateRotation handles PUT /admin/rotation. The policy is validated
// before it is persisted; the pool picks the change up through the
// rotation topic.
func (h *Handler) UpdateRotation(c *gin.Context) {
	var req struct {
		Strategy     string `json:"strategy" binding:"required"`
		RequestCount int    `json:"requestCount"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "strategy is required")
		return
	}

	if _, err := credential.ParsePolicy(req.Strategy, req.RequestCount); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.cfg.UpdateRotation(req.Strategy, req.RequestCount); err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	rotation := h.cfg.Get().Rotation
	c.JSON(http.StatusOK, gin.H{
		"strategy":     rotation.Strategy,
		"requestCount": rotation.RequestCount,
	})
}
