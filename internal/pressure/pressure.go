// Package pressure turns process memory usage into a small set of hint
// levels that caches and pools use to bound their footprint.
package pressure

import (
	"context"
	"runtime"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"antigravity2api-go/internal/constants"
	"antigravity2api-go/internal/events"
)

// Level is a memory-pressure hint. Transitions can go both directions;
// subscribers must not assume the sequence only climbs.
type Level int

const (
	LevelLow Level = iota
	LevelMedium
	LevelHigh
	LevelCritical
)

func (l Level) String() string {
	switch l {
	case LevelLow:
		return "low"
	case LevelMedium:
		return "medium"
	case LevelHigh:
		return "high"
	case LevelCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Index clamps the level into the 0..3 range used by pressure-indexed caps.
func (l Level) Index() int {
	if l < LevelLow {
		return 0
	}
	if l > LevelCritical {
		return int(LevelCritical)
	}
	return int(l)
}

// 阈值按 memoryThreshold 的占比划分
const (
	mediumFraction   = 0.50
	highFraction     = 0.75
	criticalFraction = 0.90
)

// Monitor samples heap usage on a ticker and publishes level transitions on
// the event hub. Any other hint source can publish the same topic instead.
type Monitor struct {
	hub            *events.Hub
	thresholdBytes uint64
	interval       time.Duration
	sample         func() uint64

	mu      sync.Mutex
	current Level
	cancel  context.CancelFunc
}

type Option func(*Monitor)

// WithInterval overrides the sampling cadence.
func WithInterval(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithSampler replaces the memstats reader, mainly for tests.
func WithSampler(fn func() uint64) Option {
	return func(m *Monitor) {
		if fn != nil {
			m.sample = fn
		}
	}
}

// NewMonitor builds a monitor against thresholdMB of heap budget.
func NewMonitor(hub *events.Hub, thresholdMB int, opts ...Option) *Monitor {
	if thresholdMB <= 0 {
		thresholdMB = 1024
	}
	m := &Monitor{
		hub:            hub,
		thresholdBytes: uint64(thresholdMB) * 1024 * 1024,
		interval:       constants.PressureSampleInterval,
		sample:         heapAlloc,
		current:        LevelLow,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func heapAlloc() uint64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return ms.HeapAlloc
}

// Start launches the sampling loop. Safe to call once per monitor.
func (m *Monitor) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	m.mu.Lock()
	m.cancel = cancel
	m.mu.Unlock()

	go func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.Sample(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	m.cancel = nil
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Sample reads usage once and publishes if the level moved.
func (m *Monitor) Sample(ctx context.Context) Level {
	used := m.sample()
	level := m.classify(used)

	m.mu.Lock()
	prev := m.current
	m.current = level
	m.mu.Unlock()

	if level != prev && m.hub != nil {
		log.WithFields(log.Fields{
			"from":    prev.String(),
			"to":      level.String(),
			"used_mb": used / 1024 / 1024,
		}).Info("memory pressure level changed")
		m.hub.Publish(ctx, events.TopicPressureChanged, level, nil)
	}
	return level
}

// Current returns the last classified level.
func (m *Monitor) Current() Level {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

func (m *Monitor) classify(used uint64) Level {
	frac := float64(used) / float64(m.thresholdBytes)
	switch {
	case frac >= criticalFraction:
		return LevelCritical
	case frac >= highFraction:
		return LevelHigh
	case frac >= mediumFraction:
		return LevelMedium
	default:
		return LevelLow
	}
}

// Subscribe registers fn for level transitions and returns the unsubscribe
// function. Payloads that are not Levels are ignored.
func Subscribe(hub *events.Hub, fn func(Level)) func() {
	return hub.Subscribe(events.TopicPressureChanged, func(_ context.Context, e events.Event) {
		if level, ok := e.Payload.(Level); ok {
			fn(level)
		}
	})
}
