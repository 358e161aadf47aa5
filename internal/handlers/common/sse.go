package common

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"antigravity2api-go/internal/cache"
	"antigravity2api-go/internal/constants"
	"antigravity2api-go/internal/events"
)

// Streams hands out SSE writers over one shared pool of frame-assembly
// buffers. One instance per process, wired to the pressure hub.
type Streams struct {
	chunks *cache.Pool
	unsub  func()
}

func NewStreams(hub *events.Hub) *Streams {
	s := &Streams{
		chunks: cache.NewPool(constants.ChunkPoolCaps,
			func() any { return new(bytes.Buffer) },
			func(v any) { v.(*bytes.Buffer).Reset() }),
	}
	if hub != nil {
		s.unsub = s.chunks.WatchPressure(hub)
	}
	return s
}

// Close detaches the frame pool from the pressure hub.
func (s *Streams) Close() {
	if s.unsub != nil {
		s.unsub()
		s.unsub = nil
	}
}

// Writer sets the SSE response headers and returns the frame writer for
// this connection. Headers go out before the first byte, so call this only
// once the request is certain to stream.
func (s *Streams) Writer(c *gin.Context) *SSEWriter {
	c.Status(http.StatusOK)
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	// 关闭反向代理缓冲，保证逐帧送达
	c.Header("X-Accel-Buffering", "no")

	w := c.Writer
	flusher, _ := any(w).(http.Flusher)
	return &SSEWriter{w: w, flusher: flusher, pool: s.chunks}
}

// SSEWriter frames data onto one client connection. Each frame is built in
// a pooled buffer and written in a single call so heartbeat comments can
// interleave safely from their own goroutine.
type SSEWriter struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
	pool    *cache.Pool
	frames  int
}

var (
	framePrefix     = []byte("data: ")
	frameTerminator = []byte("\n\n")
	doneFrame       = []byte("data: [DONE]\n\n")
	heartbeatFrame  = []byte(": heartbeat\n\n")
)

// Data writes one data: frame with the JSON encoding of v.
func (s *SSEWriter) Data(v interface{}) error {
	return s.frame("", v)
}

// Event writes an event: line followed by its data: frame.
func (s *SSEWriter) Event(name string, v interface{}) error {
	return s.frame(name, v)
}

// Done writes the OpenAI terminator frame.
func (s *SSEWriter) Done() error {
	return s.writeRaw(doneFrame)
}

// Heartbeat writes the keep-alive comment frame. Heartbeats are not counted
// as frames.
func (s *SSEWriter) Heartbeat() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.Write(heartbeatFrame); err != nil {
		return err
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
	return nil
}

// Frames reports how many data/event frames went out on this connection.
func (s *SSEWriter) Frames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

func (s *SSEWriter) frame(event string, v interface{}) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}

	buf := s.pool.Get().(*bytes.Buffer)
	defer s.pool.Put(buf)
	buf.Reset()
	if event != "" {
		buf.WriteString("event: ")
		buf.WriteString(event)
		buf.WriteByte('\n')
	}
	buf.Write(framePrefix)
	buf.Write(body)
	buf.Write(frameTerminator)
	return s.writeRaw(buf.Bytes())
}

func (s *SSEWriter) writeRaw(frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.Write(frame); err != nil {
		return err
	}
	s.frames++
	if s.flusher != nil {
		s.flusher.Flush()
	}
	return nil
}

// StartHeartbeat emits a comment frame every interval until the returned
// stop function runs or ctx ends. Write failures end the loop; the request
// goroutine notices the dead connection through its own writes.
func (s *SSEWriter) StartHeartbeat(ctx context.Context, interval time.Duration) (stop func()) {
	if interval <= 0 {
		return func() {}
	}
	done := make(chan struct{})
	var once sync.Once
	stop = func() { once.Do(func() { close(done) }) }

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.Heartbeat(); err != nil {
					return
				}
			}
		}
	}()
	return stop
}

// rawJSON marks bytes as already-encoded JSON for the frame writer.
func rawJSON(b []byte) json.RawMessage { return json.RawMessage(b) }
