package logging

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	tailHistoryCap    = 500
	tailMaxClients    = 50
	tailWriteDeadline = 5 * time.Second
)

var ErrTailFull = errors.New("log tail connection limit reached")

// LogMessage is the frame shipped to tail subscribers.
type LogMessage struct {
	ID        uint64                 `json:"id,omitempty"`
	Timestamp string                 `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// Tail broadcasts log records to WebSocket subscribers and keeps a bounded
// history so a fresh connection sees recent context immediately.
type Tail struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]struct{}

	histMu  sync.RWMutex
	history []LogMessage
	seq     uint64

	broadcast chan LogMessage
	stopCh    chan struct{}
	stopOnce  sync.Once
}

var (
	globalTail *Tail
	tailOnce   sync.Once
)

// GetTail returns the process-wide log tail, starting it on first use.
func GetTail() *Tail {
	tailOnce.Do(func() {
		globalTail = NewTail()
		globalTail.Start()
	})
	return globalTail
}

func NewTail() *Tail {
	return &Tail{
		clients:   make(map[*websocket.Conn]struct{}),
		history:   make([]LogMessage, 0, tailHistoryCap),
		broadcast: make(chan LogMessage, 128),
		stopCh:    make(chan struct{}),
	}
}

func (t *Tail) Start() {
	go func() {
		for {
			select {
			case msg := <-t.broadcast:
				t.fanOut(msg)
			case <-t.stopCh:
				return
			}
		}
	}()
}

func (t *Tail) Stop() {
	t.stopOnce.Do(func() { close(t.stopCh) })

	t.mu.Lock()
	defer t.mu.Unlock()
	for conn := range t.clients {
		_ = conn.Close()
	}
	t.clients = make(map[*websocket.Conn]struct{})
}

// AddClient registers a subscriber and replays buffered history to it.
func (t *Tail) AddClient(conn *websocket.Conn) error {
	t.mu.Lock()
	if len(t.clients) >= tailMaxClients {
		t.mu.Unlock()
		return ErrTailFull
	}
	t.clients[conn] = struct{}{}
	total := len(t.clients)
	t.mu.Unlock()

	for _, msg := range t.snapshot() {
		_ = conn.SetWriteDeadline(time.Now().Add(tailWriteDeadline))
		if err := conn.WriteJSON(msg); err != nil {
			t.RemoveClient(conn)
			return err
		}
	}
	log.Debugf("log tail client connected (total: %d)", total)
	return nil
}

func (t *Tail) RemoveClient(conn *websocket.Conn) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.clients[conn]; ok {
		delete(t.clients, conn)
		_ = conn.Close()
	}
}

func (t *Tail) ClientCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.clients)
}

// Publish queues a record for broadcast. Drops when the channel is full so
// logging never blocks request handling.
func (t *Tail) Publish(level, message string, fields map[string]interface{}) {
	msg := LogMessage{
		ID:        atomic.AddUint64(&t.seq, 1),
		Timestamp: time.Now().Format(time.RFC3339),
		Level:     level,
		Message:   message,
		Fields:    fields,
	}
	t.appendHistory(msg)
	select {
	case t.broadcast <- msg:
	default:
	}
}

func (t *Tail) fanOut(msg LogMessage) {
	t.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(t.clients))
	for conn := range t.clients {
		conns = append(conns, conn)
	}
	t.mu.RUnlock()

	for _, conn := range conns {
		_ = conn.SetWriteDeadline(time.Now().Add(tailWriteDeadline))
		if err := conn.WriteJSON(msg); err != nil {
			t.RemoveClient(conn)
		}
	}
}

func (t *Tail) appendHistory(msg LogMessage) {
	t.histMu.Lock()
	defer t.histMu.Unlock()
	t.history = append(t.history, msg)
	if len(t.history) > tailHistoryCap {
		excess := len(t.history) - tailHistoryCap
		t.history = append([]LogMessage(nil), t.history[excess:]...)
	}
}

func (t *Tail) snapshot() []LogMessage {
	t.histMu.RLock()
	defer t.histMu.RUnlock()
	out := make([]LogMessage, len(t.history))
	copy(out, t.history)
	return out
}

// tailHook mirrors every logrus entry into the tail.
type tailHook struct {
	tail *Tail
}

func (h *tailHook) Levels() []log.Level { return log.AllLevels }

func (h *tailHook) Fire(entry *log.Entry) error {
	var fields map[string]interface{}
	if len(entry.Data) > 0 {
		fields = make(map[string]interface{}, len(entry.Data))
		for k, v := range entry.Data {
			fields[k] = v
		}
	}
	h.tail.Publish(entry.Level.String(), entry.Message, fields)
	return nil
}

// InstallTail hooks the global logger into the WebSocket tail.
func InstallTail() {
	log.AddHook(&tailHook{tail: GetTail()})
}
