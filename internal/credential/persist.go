package credential

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"antigravity2api-go/internal/constants"
	"antigravity2api-go/internal/models"
)

// schedulePersist queues a write without blocking. Bursts collapse into
// one save.
func (p *Pool) schedulePersist() {
	select {
	case p.persistCh <- struct{}{}:
	default:
	}
}

// persistLoop is the single writer goroutine. After a change signal it
// waits one persist interval so a burst of mutations lands as one save.
func (p *Pool) persistLoop(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case <-p.persistCh:
			timer := time.NewTimer(constants.AccountPersistInterval)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-p.stopCh:
				timer.Stop()
				return
			case <-timer.C:
			}
			if err := p.persistNow(ctx); err != nil {
				log.WithError(err).Warn("account pool: persist failed")
			}
		}
	}
}

// persistNow snapshots the pool and writes it through the store. A pool
// that never finished a load refuses to write, so a broken account file is
// never clobbered with an empty list.
func (p *Pool) persistNow(ctx context.Context) error {
	if !p.loaded.Load() {
		return nil
	}

	p.mu.RLock()
	snapshot := make([]*models.Account, 0, len(p.accounts))
	for _, acct := range p.accounts {
		snapshot = append(snapshot, acct.Clone())
	}
	p.mu.RUnlock()

	p.saveMu.Lock()
	defer p.saveMu.Unlock()
	p.markSelfWrite()
	return p.store.SaveAccounts(ctx, snapshot)
}

func (p *Pool) markSelfWrite() {
	p.selfWriteMu.Lock()
	p.lastSelfWrite = time.Now()
	p.selfWriteMu.Unlock()
}

// recentSelfWrite tells the watcher to ignore events caused by our own
// saves. Outside edits landing inside the window are picked up by the
// next edit or an explicit reload.
func (p *Pool) recentSelfWrite() bool {
	p.selfWriteMu.Lock()
	defer p.selfWriteMu.Unlock()
	return time.Since(p.lastSelfWrite) < constants.AccountPersistInterval
}
