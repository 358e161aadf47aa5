package credential

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"antigravity2api-go/internal/config"
	"antigravity2api-go/internal/models"
)

// Acquire returns a snapshot of the next usable account under the active
// policy. It blocks on the readiness barrier, skips disabled accounts,
// refreshes expired tokens inline, and resolves missing project ids. The
// returned account is a clone; the pool keeps mutating its own copy.
func (p *Pool) Acquire(ctx context.Context) (*models.Account, error) {
	if err := p.waitReady(ctx); err != nil {
		return nil, err
	}

	p.mu.RLock()
	kind := p.policy.Kind
	p.mu.RUnlock()

	if kind == config.StrategyQuotaExhausted {
		return p.acquireQuota(ctx)
	}
	return p.acquireCursor(ctx)
}

// Release reports how a request served by the snapshot ended. Quota and
// auth outcomes feed back into pool state; everything else is neutral.
func (p *Pool) Release(acct *models.Account, outcome string) {
	if acct == nil {
		return
	}
	switch outcome {
	case models.OutcomeQuotaExhausted:
		p.MarkQuotaExhausted(acct.ID())
	case models.OutcomeAuthInvalid:
		p.Disable(acct.ID(), "auth rejected by upstream")
	}
}

// acquireCursor serves ROUND_ROBIN and REQUEST_COUNT: scan at most one
// full lap from the cursor, return the first account that prepares.
func (p *Pool) acquireCursor(ctx context.Context) (*models.Account, error) {
	p.mu.RLock()
	lap := len(p.accounts)
	p.mu.RUnlock()

	var lastErr error
	for i := 0; i < lap; i++ {
		p.mu.RLock()
		if len(p.accounts) == 0 {
			p.mu.RUnlock()
			break
		}
		idx := (p.cursor + i) % len(p.accounts)
		acct := p.accounts[idx]
		enabled := acct.IsEnabled()
		p.mu.RUnlock()

		if !enabled {
			continue
		}
		if err := p.prepare(ctx, acct); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}
		return p.commitCursor(idx, acct), nil
	}
	return nil, poolEmptyError(lastErr)
}

// commitCursor applies the policy's bookkeeping for a successful pick and
// hands out a snapshot.
func (p *Pool) commitCursor(idx int, acct *models.Account) *models.Account {
	p.mu.Lock()
	defer p.mu.Unlock()

	if n := len(p.accounts); n > 0 {
		idx %= n
		switch p.policy.Kind {
		case config.StrategyRequestCount:
			p.cursor = idx
			if int(acct.BumpRequestCount()) >= p.policy.RequestLimit {
				acct.ResetRequestCount()
				p.cursor = (idx + 1) % n
			}
		default:
			p.cursor = (idx + 1) % n
		}
	}
	return acct.Clone()
}

// acquireQuota serves QUOTA_EXHAUSTED: the cursor points into the
// compacted quota list and stays put across successes. An empty list
// triggers the atomic global reset, once.
func (p *Pool) acquireQuota(ctx context.Context) (*models.Account, error) {
	var lastErr error
	for round := 0; round < 2; round++ {
		p.mu.RLock()
		lap := len(p.quotaIdx)
		p.mu.RUnlock()

		for i := 0; i < lap; i++ {
			acct, ok := p.quotaCandidate(i)
			if !ok {
				break
			}
			if err := p.prepare(ctx, acct); err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				lastErr = err
				continue
			}
			p.mu.RLock()
			snapshot := acct.Clone()
			p.mu.RUnlock()
			return snapshot, nil
		}

		p.mu.Lock()
		if len(p.quotaIdx) > 0 {
			p.mu.Unlock()
			break
		}
		p.restoreQuotaLocked()
		empty := len(p.quotaIdx) == 0
		p.mu.Unlock()
		if empty {
			break
		}
		p.schedulePersist()
	}
	return nil, poolEmptyError(lastErr)
}

func (p *Pool) quotaCandidate(offset int) (*models.Account, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if len(p.quotaIdx) == 0 {
		return nil, false
	}
	pos := (p.quotaCursor + offset) % len(p.quotaIdx)
	idx := p.quotaIdx[pos]
	if idx >= len(p.accounts) {
		return nil, false
	}
	return p.accounts[idx], true
}

// prepare makes an account servable: fresh token, resolved project id.
func (p *Pool) prepare(ctx context.Context, acct *models.Account) error {
	if err := p.ensureFresh(ctx, acct); err != nil {
		return err
	}
	return p.ensureProject(ctx, acct)
}

// MarkQuotaExhausted flips has_quota off for the account with the given
// refresh token. Under QUOTA_EXHAUSTED this is the only thing that moves
// the cursor: the compacted list drops the entry, so the position the
// cursor held now names the next quota-holding account.
func (p *Pool) MarkQuotaExhausted(id string) {
	p.mu.Lock()
	acct := p.findLocked(id)
	if acct == nil {
		p.mu.Unlock()
		return
	}
	oldPos := -1
	for pos, idx := range p.quotaIdx {
		if p.accounts[idx].ID() == id {
			oldPos = pos
			break
		}
	}
	acct.SetHasQuota(false)
	p.rebuildQuotaLocked()
	if oldPos >= 0 && oldPos < p.quotaCursor {
		p.quotaCursor--
	}
	if len(p.quotaIdx) > 0 {
		p.quotaCursor %= len(p.quotaIdx)
	} else {
		p.quotaCursor = 0
	}
	p.mu.Unlock()

	log.WithField("account", acct.DisplayName()).Info("account pool: quota exhausted")
	p.schedulePersist()
	p.publishChanged("quota_exhausted", acct)
}

// Disable permanently (for this process) removes the account from every
// rotation set. Returns false when no account carries the id.
func (p *Pool) Disable(id, reason string) bool {
	p.mu.Lock()
	acct := p.findLocked(id)
	if acct == nil {
		p.mu.Unlock()
		return false
	}
	p.mu.Unlock()
	p.disable(acct, reason)
	return true
}

func (p *Pool) disable(acct *models.Account, reason string) {
	p.mu.Lock()
	acct.SetEnabled(false)
	p.rebuildQuotaLocked()
	p.mu.Unlock()

	log.WithFields(log.Fields{
		"account": acct.DisplayName(),
		"reason":  reason,
	}).Warn("account pool: account disabled")
	p.schedulePersist()
	p.publishChanged("disabled", acct)
}

// findLocked resolves an account by full refresh token or by its DigestID.
func (p *Pool) findLocked(id string) *models.Account {
	for _, acct := range p.accounts {
		if acct.ID() == id || DigestID(acct.ID()) == id {
			return acct
		}
	}
	return nil
}

func poolEmptyError(lastErr error) error {
	if lastErr != nil {
		return fmt.Errorf("%w (last candidate: %v)", ErrNoAccounts, lastErr)
	}
	return ErrNoAccounts
}
