package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"antigravity2api-go/internal/auth"
	"antigravity2api-go/internal/config"
	apperrors "antigravity2api-go/internal/errors"
	"antigravity2api-go/internal/httpformat"
)

// KeyAuth guards the dialect routes. The configured API key is accepted from
// any client convention:
//   - Authorization: Bearer <key>
//   - x-api-key: <key>
//   - x-goog-api-key: <key>
//   - ?key=<key>
//
// A valid admin JWT passes too. No configured key leaves the routes open.
func KeyAuth(cfg *config.Manager, tokens *auth.Tokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		required := cfg.Get().Secrets.APIKey
		if required == "" {
			c.Next()
			return
		}

		provided := clientKey(c)
		if provided == "" {
			respondUnauthorized(c, "API key not provided")
			return
		}
		if subtle.ConstantTimeCompare([]byte(provided), []byte(required)) == 1 {
			c.Set("api_key", provided)
			c.Next()
			return
		}
		if tokens != nil {
			if claims, err := tokens.Verify(provided); err == nil {
				c.Set("admin_user", claims.Username)
				c.Next()
				return
			}
		}
		respondUnauthorized(c, "Invalid API key")
	}
}

// AdminAuth requires a valid admin JWT on management routes.
func AdminAuth(tokens *auth.Tokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			// WebSocket 客户端无法自定义请求头，放行查询参数。
			raw = c.Query("token")
		}
		if raw == "" {
			respondUnauthorized(c, "admin token not provided")
			return
		}
		claims, err := tokens.Verify(raw)
		if err != nil {
			respondUnauthorized(c, err.Error())
			return
		}
		c.Set("admin_user", claims.Username)
		c.Next()
	}
}

// clientKey walks the header and query conventions the three dialects use.
func clientKey(c *gin.Context) string {
	if key := bearerToken(c); key != "" {
		return key
	}
	if key := c.GetHeader("x-api-key"); key != "" {
		return key
	}
	if key := c.GetHeader("x-goog-api-key"); key != "" {
		return key
	}
	return c.Query("key")
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return header
}

func respondUnauthorized(c *gin.Context, message string) {
	apiErr := apperrors.New(http.StatusUnauthorized, "invalid_api_key", "authentication_error", message)
	format := httpformat.DetectFromContext(c)
	payload, err := apiErr.ToJSON(format)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": gin.H{
			"message": apiErr.Message,
			"type":    apiErr.Type,
			"code":    apiErr.Code,
		}})
		c.Abort()
		return
	}
	c.Data(http.StatusUnauthorized, "application/json", payload)
	c.Abort()
}
