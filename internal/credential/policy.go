package credential

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"antigravity2api-go/internal/config"
)

// Policy is the active rotation policy. RequestLimit only matters for
// REQUEST_COUNT.
type Policy struct {
	Kind         string
	RequestLimit int
}

// ParsePolicy validates a strategy name and its count parameter.
func ParsePolicy(strategy string, requestCount int) (Policy, error) {
	switch strategy {
	case config.StrategyRoundRobin, "":
		return Policy{Kind: config.StrategyRoundRobin}, nil
	case config.StrategyQuotaExhausted:
		return Policy{Kind: config.StrategyQuotaExhausted}, nil
	case config.StrategyRequestCount:
		if requestCount <= 0 {
			return Policy{}, fmt.Errorf("credential: REQUEST_COUNT needs a positive count, got %d", requestCount)
		}
		return Policy{Kind: config.StrategyRequestCount, RequestLimit: requestCount}, nil
	default:
		return Policy{}, fmt.Errorf("credential: unknown rotation strategy %q", strategy)
	}
}

// Policy returns the active policy.
func (p *Pool) Policy() Policy {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.policy
}

// SetPolicy hot-swaps the rotation policy. Cursors restart from the head
// of the pool and per-account counters reset, so the new policy starts
// from a clean slate.
func (p *Pool) SetPolicy(strategy string, requestCount int) error {
	policy, err := ParsePolicy(strategy, requestCount)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.policy = policy
	p.cursor = 0
	p.quotaCursor = 0
	for _, acct := range p.accounts {
		acct.ResetRequestCount()
	}
	p.rebuildQuotaLocked()
	p.mu.Unlock()

	log.WithFields(log.Fields{
		"strategy":     policy.Kind,
		"requestCount": policy.RequestLimit,
	}).Info("account pool: rotation policy changed")
	return nil
}

// rebuildQuotaLocked recomputes the compacted index list of enabled
// quota-holding accounts and clamps the private cursor.
func (p *Pool) rebuildQuotaLocked() {
	p.quotaIdx = p.quotaIdx[:0]
	for i, acct := range p.accounts {
		if acct.IsEnabled() && acct.QuotaAvailable() {
			p.quotaIdx = append(p.quotaIdx, i)
		}
	}
	if len(p.quotaIdx) == 0 {
		p.quotaCursor = 0
	} else {
		p.quotaCursor %= len(p.quotaIdx)
	}
}

// restoreQuotaLocked is the atomic global reset: when every enabled
// account has exhausted its quota, all of them get it back at once.
func (p *Pool) restoreQuotaLocked() {
	for _, acct := range p.accounts {
		if acct.IsEnabled() {
			acct.SetHasQuota(true)
		}
	}
	p.rebuildQuotaLocked()
	log.Info("account pool: all accounts exhausted, quota flags reset")
}
