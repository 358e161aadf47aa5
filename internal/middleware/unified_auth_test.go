package middleware

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"antigravity2api-go/internal/auth"
	"antigravity2api-go/internal/config"
)

func newAuthRouter(t *testing.T, apiKey string, tokens *auth.Tokens) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	t.Setenv("API_KEY", apiKey)

	cfg, err := config.NewManager(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)
	t.Cleanup(cfg.Close)

	router := gin.New()
	router.Use(KeyAuth(cfg, tokens))
	router.POST("/v1/chat/completions", func(c *gin.Context) { c.String(200, "ok") })
	router.POST("/v1/messages", func(c *gin.Context) { c.String(200, "ok") })
	router.GET("/v1beta/models", func(c *gin.Context) { c.String(200, "ok") })
	return router
}

func TestKeyAuthOpenWithoutConfiguredKey(t *testing.T) {
	router := newAuthRouter(t, "", nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("POST", "/v1/chat/completions", nil))
	require.Equal(t, http.StatusOK, w.Code)
}

func TestKeyAuthAcceptsEveryClientConvention(t *testing.T) {
	router := newAuthRouter(t, "sk-test", nil)

	cases := []struct {
		name    string
		request func() *http.Request
	}{
		{"bearer", func() *http.Request {
			r := httptest.NewRequest("POST", "/v1/chat/completions", nil)
			r.Header.Set("Authorization", "Bearer sk-test")
			return r
		}},
		{"x-api-key", func() *http.Request {
			r := httptest.NewRequest("POST", "/v1/messages", nil)
			r.Header.Set("x-api-key", "sk-test")
			return r
		}},
		{"x-goog-api-key", func() *http.Request {
			r := httptest.NewRequest("GET", "/v1beta/models", nil)
			r.Header.Set("x-goog-api-key", "sk-test")
			return r
		}},
		{"query", func() *http.Request {
			return httptest.NewRequest("GET", "/v1beta/models?key=sk-test", nil)
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, tc.request())
			require.Equal(t, http.StatusOK, w.Code)
		})
	}
}

func TestKeyAuthRejectsInDialectShape(t *testing.T) {
	router := newAuthRouter(t, "sk-test", nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/v1/chat/completions", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Body.String(), `"error"`)
	require.Contains(t, w.Body.String(), "Invalid API key")

	w = httptest.NewRecorder()
	req = httptest.NewRequest("POST", "/v1/messages", nil)
	req.Header.Set("x-api-key", "wrong")
	req.Header.Set("anthropic-version", "2023-06-01")
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Body.String(), `"type":"error"`)
}

func TestKeyAuthMissingKey(t *testing.T) {
	router := newAuthRouter(t, "sk-test", nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("POST", "/v1/chat/completions", nil))
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestKeyAuthAcceptsAdminJWT(t *testing.T) {
	tokens := auth.NewTokens("test-secret")
	router := newAuthRouter(t, "sk-test", tokens)

	signed, _, err := tokens.Issue("admin", time.Hour)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/v1/chat/completions", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestAdminAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tokens := auth.NewTokens("test-secret")

	router := gin.New()
	router.Use(AdminAuth(tokens))
	router.GET("/admin/accounts", func(c *gin.Context) {
		user, _ := c.Get("admin_user")
		c.String(200, "hello %v", user)
	})

	t.Run("missing token", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/admin/accounts", nil))
		require.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("api key is not a jwt", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/admin/accounts", nil)
		req.Header.Set("Authorization", "Bearer sk-test")
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("valid bearer", func(t *testing.T) {
		signed, _, err := tokens.Issue("root", time.Hour)
		require.NoError(t, err)

		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/admin/accounts", nil)
		req.Header.Set("Authorization", "Bearer "+signed)
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
		require.Contains(t, w.Body.String(), "root")
	})

	t.Run("query token for websocket", func(t *testing.T) {
		signed, _, err := tokens.Issue("root", time.Hour)
		require.NoError(t, err)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/admin/accounts?token="+signed, nil))
		require.Equal(t, http.StatusOK, w.Code)
	})
}
