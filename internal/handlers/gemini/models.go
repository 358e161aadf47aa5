package gemini

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "antigravity2api-go/internal/errors"
	"antigravity2api-go/internal/handlers/common"
	"antigravity2api-go/internal/httpformat"
)

func modelEntry(id string) gin.H {
	return gin.H{
		"name":        "models/" + id,
		"version":     "001",
		"displayName": id,
		"supportedGenerationMethods": []string{
			"generateContent",
			"streamGenerateContent",
		},
	}
}

// ListModels handles GET /v1beta/models.
func (h *Handler) ListModels(c *gin.Context) {
	httpformat.SetFormat(c, apperrors.FormatGemini)

	ids := h.catalog.List(c.Request.Context())
	entries := make([]gin.H, 0, len(ids))
	for _, id := range ids {
		entries = append(entries, modelEntry(id))
	}
	c.JSON(http.StatusOK, gin.H{"models": entries})
}

// GetModel handles GET /v1beta/models/<model>. The same route also receives
// "<model>:<method>" strings from misdirected POST clients; those 404.
func (h *Handler) GetModel(c *gin.Context) {
	httpformat.SetFormat(c, apperrors.FormatGemini)

	id := strings.TrimPrefix(c.Param("action"), "/")
	id = strings.TrimPrefix(id, "models/")
	for _, known := range h.catalog.List(c.Request.Context()) {
		if known == id {
			c.JSON(http.StatusOK, modelEntry(id))
			return
		}
	}
	common.AbortWithAPIError(c, notFound("models/"+id+" is not found"))
}
