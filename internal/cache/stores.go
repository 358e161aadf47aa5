package cache

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"antigravity2api-go/internal/constants"
	"antigravity2api-go/internal/events"
	"antigravity2api-go/internal/pressure"
)

// Stores bundles the translation caches, wires them to the pressure hub,
// and runs the shared TTL sweep ticker. One instance per process, owned by
// the application context.
type Stores struct {
	Reasoning *TTLCache
	Tool      *TTLCache
	ToolNames *TTLCache
	Models    *ModelListCache

	cancel context.CancelFunc
	unsub  func()
}

func NewStores(hub *events.Hub, modelListTTL time.Duration) *Stores {
	s := &Stores{
		Reasoning: NewTTLCache(constants.SignatureCacheTTL, constants.SignatureCacheCapacity),
		Tool:      NewTTLCache(constants.SignatureCacheTTL, constants.SignatureCacheCapacity),
		ToolNames: NewTTLCache(constants.ToolNameCacheTTL, constants.ToolNameCacheCapacity),
		Models:    NewModelListCache(modelListTTL),
	}
	if hub != nil {
		s.unsub = pressure.Subscribe(hub, s.applyPressure)
	}
	return s
}

func (s *Stores) applyPressure(level pressure.Level) {
	s.Reasoning.ApplyPressure(level)
	s.Tool.ApplyPressure(level)
	s.ToolNames.ApplyPressure(level)
	s.Models.ApplyPressure(level)
	log.WithField("level", level.String()).Debug("caches re-bounded for pressure")
}

// Start launches the periodic TTL sweep.
func (s *Stores) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	go func() {
		ticker := time.NewTicker(constants.CacheSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Reasoning.Sweep()
				s.Tool.Sweep()
				s.ToolNames.Sweep()
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (s *Stores) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.unsub != nil {
		s.unsub()
	}
}
