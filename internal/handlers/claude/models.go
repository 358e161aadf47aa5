package claude

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "antigravity2api-go/internal/errors"
	"antigravity2api-go/internal/httpformat"
)

// ListModels handles GET /v1/models for Anthropic clients.
func (h *Handler) ListModels(c *gin.Context) {
	httpformat.SetFormat(c, apperrors.FormatClaude)

	ids := h.catalog.List(c.Request.Context())
	now := time.Now().UTC().Format(time.RFC3339)
	data := make([]gin.H, 0, len(ids))
	for _, id := range ids {
		data = append(data, gin.H{
			"type":         "model",
			"id":           id,
			"display_name": id,
			"created_at":   now,
		})
	}

	resp := gin.H{"data": data, "has_more": false}
	if len(ids) > 0 {
		resp["first_id"] = ids[0]
		resp["last_id"] = ids[len(ids)-1]
	}
	c.JSON(http.StatusOK, resp)
}
