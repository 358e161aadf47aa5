package admin

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"antigravity2api-go/internal/auth"
	"antigravity2api-go/internal/config"
	"antigravity2api-go/internal/logging"
)

func TestLogsWS(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o644))
	cfg, err := config.NewManager(path)
	require.NoError(t, err)
	t.Cleanup(cfg.Close)

	tail := logging.NewTail()
	tail.Start()
	t.Cleanup(tail.Stop)

	creds, err := auth.NewCredentials("admin", "swordfish")
	require.NoError(t, err)
	h := New(cfg, &fakeAdminPool{}, &fakeQuota{}, &fakeHistory{}, creds, auth.NewTokens("s"), tail)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/admin/logs/ws", h.LogsWS)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	// 先发布再连接：历史回放保证消息必达，不依赖广播时序。
	tail.Publish("info", "hello from the tail", map[string]interface{}{"component": "test"})

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/admin/logs/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var msg logging.LogMessage
	require.NoError(t, conn.ReadJSON(&msg))
	require.Equal(t, "hello from the tail", msg.Message)
	require.Equal(t, "info", msg.Level)
}

func TestLogsWSWithoutTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o644))
	cfg, err := config.NewManager(path)
	require.NoError(t, err)
	t.Cleanup(cfg.Close)

	creds, err := auth.NewCredentials("admin", "swordfish")
	require.NoError(t, err)
	h := New(cfg, &fakeAdminPool{}, &fakeQuota{}, &fakeHistory{}, creds, auth.NewTokens("s"), nil)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/admin/logs/ws", h.LogsWS)

	req := httptest.NewRequest(http.MethodGet, "/admin/logs/ws", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotImplemented, rec.Code)
}
