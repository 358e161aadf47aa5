package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"antigravity2api-go/internal/constants"
	"antigravity2api-go/internal/pressure"
)

func TestTTLCacheExpiry(t *testing.T) {
	now := time.Now()
	c := NewTTLCache(30*time.Minute, 16)
	c.now = func() time.Time { return now }

	c.Set(Key("sess1", "claude-sonnet-4-5"), "sig-a")

	v, ok := c.Get(Key("sess1", "claude-sonnet-4-5"))
	require.True(t, ok)
	assert.Equal(t, "sig-a", v)

	now = now.Add(31 * time.Minute)
	_, ok = c.Get(Key("sess1", "claude-sonnet-4-5"))
	assert.False(t, ok, "entry past TTL must miss")
	assert.Equal(t, 0, c.Len(), "expired entry removed on read")
}

func TestTTLCacheOverwrite(t *testing.T) {
	c := NewTTLCache(time.Minute, 4)
	c.Set("k", "one")
	c.Set("k", "two")
	v, _ := c.Get("k")
	assert.Equal(t, "two", v)
	assert.Equal(t, 1, c.Len())
}

func TestTTLCacheSizePruneOnSet(t *testing.T) {
	c := NewTTLCache(time.Hour, 8)
	for i := 0; i < 50; i++ {
		c.Set(fmt.Sprintf("k%d", i), "v")
	}
	assert.LessOrEqual(t, c.Len(), 8)
	// the newest write always survives the prune
	_, ok := c.Get("k49")
	assert.True(t, ok)
}

func TestTTLCachePressureShrink(t *testing.T) {
	c := NewTTLCache(time.Hour, 256)
	for i := 0; i < 200; i++ {
		c.Set(fmt.Sprintf("k%d", i), "v")
	}

	c.ApplyPressure(pressure.LevelMedium)
	assert.LessOrEqual(t, c.Len(), 128)

	c.ApplyPressure(pressure.LevelHigh)
	assert.LessOrEqual(t, c.Len(), 64)

	c.ApplyPressure(pressure.LevelCritical)
	assert.Equal(t, 0, c.Len(), "critical clears the cache")
	c.Set("after", "v")
	assert.Equal(t, 0, c.Len(), "critical cap rejects writes")

	c.ApplyPressure(pressure.LevelLow)
	c.Set("restored", "v")
	_, ok := c.Get("restored")
	assert.True(t, ok, "capacity restores when pressure recedes")
}

func TestTTLCacheNonMonotonePressure(t *testing.T) {
	c := NewTTLCache(time.Hour, 64)
	seq := []pressure.Level{
		pressure.LevelHigh, pressure.LevelLow, pressure.LevelCritical,
		pressure.LevelMedium, pressure.LevelLow,
	}
	for _, l := range seq {
		c.ApplyPressure(l)
		c.Set("k", "v")
	}
	_, ok := c.Get("k")
	assert.True(t, ok, "cache usable after arbitrary transitions")
}

func TestTTLCacheSweep(t *testing.T) {
	now := time.Now()
	c := NewTTLCache(10*time.Minute, 16)
	c.now = func() time.Time { return now }

	c.Set("old", "v")
	now = now.Add(11 * time.Minute)
	c.Set("fresh", "v")
	c.Sweep()

	assert.Equal(t, 1, c.Len())
	_, ok := c.Get("fresh")
	assert.True(t, ok)
}

func TestModelListCacheDynamicTTL(t *testing.T) {
	now := time.Now()
	c := NewModelListCache(time.Hour)
	c.now = func() time.Time { return now }

	c.Set([]string{"claude-sonnet-4-5", "gemini-2.5-pro"})

	now = now.Add(20 * time.Minute)
	_, ok := c.Get()
	require.True(t, ok, "fresh under default TTL")

	c.ApplyPressure(pressure.LevelHigh)
	_, ok = c.Get()
	assert.False(t, ok, "20min old exceeds the 15min high-pressure cap")

	c.ApplyPressure(pressure.LevelCritical)
	c.Set([]string{"claude-sonnet-4-5"})
	now = now.Add(6 * time.Minute)
	_, ok = c.Get()
	assert.False(t, ok, "6min old exceeds the 5min critical cap")

	c.ApplyPressure(pressure.LevelLow)
	_, ok = c.Get()
	assert.True(t, ok, "default TTL applies again at low")
}

func TestModelListCacheCopiesOut(t *testing.T) {
	c := NewModelListCache(time.Hour)
	c.Set([]string{"a", "b"})
	got, _ := c.Get()
	got[0] = "mutated"
	got2, _ := c.Get()
	assert.Equal(t, "a", got2[0])
}

func TestPoolBounds(t *testing.T) {
	p := NewPool(constants.LineBufferPoolCaps, func() any {
		return make([]byte, 0, 64)
	}, nil)

	owned := make([]any, 0, 64)
	for i := 0; i < 64; i++ {
		owned = append(owned, p.Get())
	}
	for _, v := range owned {
		p.Put(v)
	}
	assert.Equal(t, constants.LineBufferPoolCaps[0], p.Len(), "put beyond cap drops")

	p.ApplyPressure(pressure.LevelCritical)
	assert.Equal(t, constants.LineBufferPoolCaps[3], p.Len(), "shrinks to critical cap")

	p.ApplyPressure(pressure.LevelLow)
	assert.Equal(t, constants.LineBufferPoolCaps[0], p.Cap(), "cap restores at low")
}

func TestPoolResetRunsOnPut(t *testing.T) {
	resets := 0
	p := NewPool([4]int{2, 2, 1, 1}, func() any { return &resets }, func(any) { resets++ })
	v := p.Get()
	p.Put(v)
	assert.Equal(t, 1, resets)
}
