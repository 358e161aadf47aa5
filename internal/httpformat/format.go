// Package httpformat decides which client dialect a request speaks so error
// payloads and stream frames can be rendered in the shape the caller expects.
package httpformat

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"antigravity2api-go/internal/errors"
)

const contextKey = "response_format"

// SetFormat pins the detected dialect on the gin context so downstream
// writers do not re-derive it.
func SetFormat(c *gin.Context, format errors.ErrorFormat) {
	c.Set(contextKey, format)
}

// DetectFromContext returns the pinned dialect, falling back to path
// detection when no handler has set one yet.
func DetectFromContext(c *gin.Context) errors.ErrorFormat {
	if v, ok := c.Get(contextKey); ok {
		if f, ok := v.(errors.ErrorFormat); ok {
			return f
		}
	}
	return DetectFromRequest(c.Request)
}

func DetectFromRequest(r *http.Request) errors.ErrorFormat {
	if r == nil {
		return errors.FormatOpenAI
	}
	if r.Header.Get("x-api-key") != "" || r.Header.Get("anthropic-version") != "" {
		return errors.FormatClaude
	}
	return DetectFromPath(r.URL.Path)
}

// DetectFromPath classifies by URL shape. Anthropic lives under /v1/messages,
// Gemini under /v1beta or the :generateContent verb suffix, everything else
// is treated as OpenAI.
func DetectFromPath(path string) errors.ErrorFormat {
	p := strings.ToLower(path)
	switch {
	case strings.Contains(p, "/v1/messages"):
		return errors.FormatClaude
	case strings.Contains(p, "/v1beta/"),
		strings.Contains(p, "/v1internal"),
		strings.Contains(p, ":generatecontent"),
		strings.Contains(p, ":streamgeneratecontent"),
		strings.Contains(p, ":counttokens"):
		return errors.FormatGemini
	default:
		return errors.FormatOpenAI
	}
}
