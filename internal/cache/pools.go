package cache

import (
	"sync"

	"antigravity2api-go/internal/events"
	"antigravity2api-go/internal/pressure"
)

// Pool is a bounded free-list. Put beyond the pressure-indexed cap drops the
// object instead of growing; Get falls back to the constructor when empty.
type Pool struct {
	mu    sync.Mutex
	items []any
	caps  [4]int
	cap   int
	alloc func() any
	reset func(any)
}

// NewPool builds a pool whose capacity follows caps[pressure level].
// resetFn may be nil when objects need no scrubbing before reuse.
func NewPool(caps [4]int, allocFn func() any, resetFn func(any)) *Pool {
	return &Pool{
		items: make([]any, 0, caps[0]),
		caps:  caps,
		cap:   caps[0],
		alloc: allocFn,
		reset: resetFn,
	}
}

func (p *Pool) Get() any {
	p.mu.Lock()
	if n := len(p.items); n > 0 {
		v := p.items[n-1]
		p.items[n-1] = nil
		p.items = p.items[:n-1]
		p.mu.Unlock()
		return v
	}
	p.mu.Unlock()
	return p.alloc()
}

func (p *Pool) Put(v any) {
	if v == nil {
		return
	}
	if p.reset != nil {
		p.reset(v)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.items) >= p.cap {
		return
	}
	p.items = append(p.items, v)
}

func (p *Pool) ApplyPressure(level pressure.Level) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cap = p.caps[level.Index()]
	if len(p.items) > p.cap {
		for i := p.cap; i < len(p.items); i++ {
			p.items[i] = nil
		}
		p.items = p.items[:p.cap]
	}
}

// WatchPressure subscribes the pool to hub transitions; returns the
// unsubscribe function.
func (p *Pool) WatchPressure(hub *events.Hub) func() {
	return pressure.Subscribe(hub, p.ApplyPressure)
}

func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.items)
}

func (p *Pool) Cap() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cap
}
