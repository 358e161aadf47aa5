// Package cache holds the translation-layer caches and object pools. All of
// them are pressure-aware: capacity shrinks when the memory monitor reports
// medium or worse, and critical may clear a cache outright.
package cache

import (
	"strings"
	"sync"
	"time"

	"antigravity2api-go/internal/pressure"
)

type entry struct {
	value    string
	storedAt time.Time
}

// TTLCache is a capacity-bounded string map with per-entry expiry. Eviction
// runs on set when over capacity, on the shared sweep ticker, and on
// pressure transitions.
type TTLCache struct {
	mu      sync.RWMutex
	items   map[string]entry
	ttl     time.Duration
	baseCap int
	cap     int
	now     func() time.Time
}

func NewTTLCache(ttl time.Duration, capacity int) *TTLCache {
	return &TTLCache{
		items:   make(map[string]entry),
		ttl:     ttl,
		baseCap: capacity,
		cap:     capacity,
		now:     time.Now,
	}
}

// Key joins parts into a composite cache key.
func Key(parts ...string) string { return strings.Join(parts, "|") }

func (c *TTLCache) Get(key string) (string, bool) {
	now := c.now()
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()
	if !ok {
		return "", false
	}
	if now.Sub(e.storedAt) > c.ttl {
		c.mu.Lock()
		if cur, still := c.items[key]; still && cur.storedAt.Equal(e.storedAt) {
			delete(c.items, key)
		}
		c.mu.Unlock()
		return "", false
	}
	return e.value, true
}

func (c *TTLCache) Set(key, value string) {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cap <= 0 {
		return
	}
	c.items[key] = entry{value: value, storedAt: now}
	if len(c.items) > c.cap {
		c.pruneLocked(now, key)
	}
}

// pruneLocked drops expired entries first, then arbitrary ones until the
// cache fits. The just-written key is never evicted.
func (c *TTLCache) pruneLocked(now time.Time, keep string) {
	for k, e := range c.items {
		if now.Sub(e.storedAt) > c.ttl {
			delete(c.items, k)
		}
	}
	if len(c.items) <= c.cap {
		return
	}
	for k := range c.items {
		if k == keep {
			continue
		}
		delete(c.items, k)
		if len(c.items) <= c.cap {
			return
		}
	}
}

// Sweep removes expired entries. Called by the shared ticker.
func (c *TTLCache) Sweep() {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.items {
		if now.Sub(e.storedAt) > c.ttl {
			delete(c.items, k)
		}
	}
}

// ApplyPressure re-bounds capacity: full at low, half at medium, quarter at
// high, cleared at critical. Transitions restore as readily as they shrink.
func (c *TTLCache) ApplyPressure(level pressure.Level) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch level {
	case pressure.LevelMedium:
		c.cap = c.baseCap / 2
	case pressure.LevelHigh:
		c.cap = c.baseCap / 4
	case pressure.LevelCritical:
		c.cap = 0
	default:
		c.cap = c.baseCap
	}
	if c.cap <= 0 {
		c.items = make(map[string]entry)
		return
	}
	if len(c.items) > c.cap {
		c.pruneLocked(c.now(), "")
	}
}

func (c *TTLCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
