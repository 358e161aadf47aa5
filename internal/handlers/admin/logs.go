package admin

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"antigravity2api-go/internal/logging"
)

const (
	logsPongWait     = 90 * time.Second
	logsPingInterval = 30 * time.Second
)

// 同源放行；跨源连接需要反向代理侧控制。
var logsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		return strings.Contains(strings.ToLower(origin), strings.ToLower(r.Host))
	},
}

// LogsWS handles GET /admin/logs/ws, streaming the live log tail over a
// WebSocket. New connections receive buffered history first.
func (h *Handler) LogsWS(c *gin.Context) {
	if h.tail == nil {
		respondError(c, http.StatusNotImplemented, "log streaming is not enabled")
		return
	}

	conn, err := logsUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade 已经写了响应。
		return
	}

	if err := h.tail.AddClient(conn); err != nil {
		if errors.Is(err, logging.ErrTailFull) {
			_ = conn.WriteJSON(gin.H{"error": "maximum connections reached"})
		}
		_ = conn.Close()
		return
	}

	_ = conn.SetReadDeadline(time.Now().Add(logsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(logsPongWait))
	})

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(logsPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(10*time.Second)); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	// 读循环只为探测断开；订阅端不发业务数据。
	for {
		if _, _, err := conn.NextReader(); err != nil {
			close(done)
			h.tail.RemoveClient(conn)
			_ = conn.Close()
			return
		}
	}
}
