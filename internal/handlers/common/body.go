package common

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "antigravity2api-go/internal/errors"
)

// ReadBody drains the request body up to limit bytes. Oversized bodies
// come back as 413 and also poison the connection for reuse, which is what
// http.MaxBytesReader is for.
func ReadBody(c *gin.Context, limit int64) ([]byte, *apperrors.APIError) {
	if limit <= 0 {
		limit = 64 << 20
	}
	reader := http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	body, err := io.ReadAll(reader)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, apperrors.New(http.StatusRequestEntityTooLarge, "request_too_large", "invalid_request_error",
				fmt.Sprintf("request body exceeds %d bytes", limit))
		}
		return nil, apperrors.New(http.StatusBadRequest, "invalid_request", "invalid_request_error",
			"failed to read request body: "+err.Error())
	}
	if len(body) == 0 {
		return nil, apperrors.New(http.StatusBadRequest, "invalid_request", "invalid_request_error",
			"request body is empty")
	}
	return body, nil
}

// RequestPath returns the route template when the router matched one, else
// the raw URL path. Metrics and history label by it.
func RequestPath(c *gin.Context) string {
	if p := c.FullPath(); p != "" {
		return p
	}
	return c.Request.URL.Path
}
