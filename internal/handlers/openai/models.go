package openai

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "antigravity2api-go/internal/errors"
	"antigravity2api-go/internal/httpformat"
)

// ListModels handles GET /v1/models in OpenAI list shape.
func (h *Handler) ListModels(c *gin.Context) {
	httpformat.SetFormat(c, apperrors.FormatOpenAI)

	ids := h.catalog.List(c.Request.Context())
	now := time.Now().Unix()
	data := make([]gin.H, 0, len(ids))
	for _, id := range ids {
		data = append(data, gin.H{
			"id":       id,
			"object":   "model",
			"created":  now,
			"owned_by": "antigravity",
		})
	}
	c.JSON(http.StatusOK, gin.H{"object": "list", "data": data})
}
