package common

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestWriter(t *testing.T) (*SSEWriter, *httptest.ResponseRecorder) {
	t.Helper()
	streams := NewStreams(nil)
	t.Cleanup(streams.Close)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("POST", "/v1/chat/completions", nil)
	sw := streams.Writer(c)
	c.Writer.WriteHeaderNow()
	return sw, w
}

func TestWriterSetsStreamingHeaders(t *testing.T) {
	streams := NewStreams(nil)
	t.Cleanup(streams.Close)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("POST", "/v1/chat/completions", nil)
	_ = streams.Writer(c)
	c.Writer.WriteHeaderNow()

	h := w.Header()
	require.Equal(t, "text/event-stream", h.Get("Content-Type"))
	require.Equal(t, "no-cache", h.Get("Cache-Control"))
	require.Equal(t, "keep-alive", h.Get("Connection"))
	require.Equal(t, "no", h.Get("X-Accel-Buffering"))
	require.Equal(t, 200, w.Code)
}

func TestSSEWriterFrameShapes(t *testing.T) {
	sw, w := newTestWriter(t)

	require.NoError(t, sw.Data(map[string]string{"k": "v"}))
	require.NoError(t, sw.Event("message_start", map[string]string{"type": "message_start"}))
	require.NoError(t, sw.Heartbeat())
	require.NoError(t, sw.Done())

	body := w.Body.String()
	require.Contains(t, body, "data: {\"k\":\"v\"}\n\n")
	require.Contains(t, body, "event: message_start\ndata: {\"type\":\"message_start\"}\n\n")
	require.Contains(t, body, ": heartbeat\n\n")
	require.True(t, strings.HasSuffix(body, "data: [DONE]\n\n"))

	// 心跳不计入帧数
	require.Equal(t, 3, sw.Frames())
}

func TestStartHeartbeatWritesAndStops(t *testing.T) {
	sw, w := newTestWriter(t)

	stop := sw.StartHeartbeat(context.Background(), 10*time.Millisecond)
	require.Eventually(t, func() bool {
		sw.mu.Lock()
		defer sw.mu.Unlock()
		return strings.Contains(w.Body.String(), ": heartbeat\n\n")
	}, time.Second, 5*time.Millisecond)
	stop()
	// stop 幂等
	stop()

	// 给在途的最后一跳时间落盘再取基线
	time.Sleep(30 * time.Millisecond)
	sw.mu.Lock()
	lenAfterStop := w.Body.Len()
	sw.mu.Unlock()
	time.Sleep(50 * time.Millisecond)
	sw.mu.Lock()
	defer sw.mu.Unlock()
	require.Equal(t, lenAfterStop, w.Body.Len())
}

func TestHeartbeatDisabledForZeroInterval(t *testing.T) {
	sw, w := newTestWriter(t)

	stop := sw.StartHeartbeat(context.Background(), 0)
	time.Sleep(20 * time.Millisecond)
	stop()
	require.Empty(t, w.Body.String())
}
