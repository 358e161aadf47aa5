package cache

import (
	"sync"
	"time"

	"antigravity2api-go/internal/constants"
	"antigravity2api-go/internal/pressure"
)

// ModelListCache is the singleton holder for the upstream model catalog.
// Its TTL tightens under pressure so a hot process refreshes the list more
// often instead of pinning a stale copy.
type ModelListCache struct {
	mu         sync.Mutex
	list       []string
	fetchedAt  time.Time
	defaultTTL time.Duration
	level      pressure.Level
	now        func() time.Time
}

func NewModelListCache(defaultTTL time.Duration) *ModelListCache {
	if defaultTTL <= 0 {
		defaultTTL = time.Hour
	}
	return &ModelListCache{defaultTTL: defaultTTL, now: time.Now}
}

// Get returns the cached list while it is fresh under the effective TTL.
func (c *ModelListCache) Get() ([]string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.list == nil {
		return nil, false
	}
	if c.now().Sub(c.fetchedAt) > c.effectiveTTLLocked() {
		return nil, false
	}
	out := make([]string, len(c.list))
	copy(out, c.list)
	return out, true
}

func (c *ModelListCache) Set(list []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.list = make([]string, len(list))
	copy(c.list, list)
	c.fetchedAt = c.now()
}

func (c *ModelListCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.list = nil
}

func (c *ModelListCache) ApplyPressure(level pressure.Level) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.level = level
}

func (c *ModelListCache) effectiveTTLLocked() time.Duration {
	ttl := c.defaultTTL
	switch c.level {
	case pressure.LevelHigh:
		if ttl > constants.ModelListTTLHighPressure {
			ttl = constants.ModelListTTLHighPressure
		}
	case pressure.LevelCritical:
		if ttl > constants.ModelListTTLCriticalPressure {
			ttl = constants.ModelListTTLCriticalPressure
		}
	}
	return ttl
}
