package credential

import (
	"context"
	"errors"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"antigravity2api-go/internal/models"
	"antigravity2api-go/internal/oauth"
)

// refreshGroup coalesces concurrent refreshes per key, so a popular
// account is refreshed once no matter how many requests hit its expiry.
type refreshGroup struct {
	mu       sync.Mutex
	inflight map[string]*flight
}

type flight struct {
	wg  sync.WaitGroup
	err error
}

func newRefreshGroup() *refreshGroup {
	return &refreshGroup{inflight: make(map[string]*flight)}
}

func (g *refreshGroup) do(ctx context.Context, key string, fn func(context.Context) error) error {
	if key == "" {
		return fn(ctx)
	}
	g.mu.Lock()
	if f := g.inflight[key]; f != nil {
		g.mu.Unlock()
		done := make(chan struct{})
		go func() { f.wg.Wait(); close(done) }()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-done:
			return f.err
		}
	}
	f := &flight{}
	f.wg.Add(1)
	g.inflight[key] = f
	g.mu.Unlock()

	err := fn(ctx)
	f.err = err
	f.wg.Done()

	g.mu.Lock()
	delete(g.inflight, key)
	g.mu.Unlock()
	return err
}

// ensureFresh refreshes the account's access token if it is expired. The
// network exchange runs outside the pool lock; the result is applied under
// it. A permanently rejected grant disables the account.
func (p *Pool) ensureFresh(ctx context.Context, acct *models.Account) error {
	if !acct.IsExpired(p.now()) {
		return nil
	}
	return p.inflight.do(ctx, "refresh:"+acct.ID(), func(ctx context.Context) error {
		p.mu.RLock()
		refreshToken := acct.RefreshToken
		expired := acct.IsExpired(p.now())
		p.mu.RUnlock()
		if !expired {
			// Another waiter already refreshed it.
			return nil
		}

		tokenResp, err := p.oauth.Refresh(ctx, refreshToken)
		if err != nil {
			var refreshErr *oauth.RefreshError
			if errors.As(err, &refreshErr) && refreshErr.PermanentlyRejected() {
				p.disable(acct, fmt.Sprintf("refresh rejected with status %d", refreshErr.StatusCode))
			}
			return err
		}

		p.mu.Lock()
		acct.MarkRefreshed(tokenResp.AccessToken, tokenResp.ExpiresIn, p.oauth.Now())
		if tokenResp.RefreshToken != "" {
			acct.RefreshToken = tokenResp.RefreshToken
		}
		p.mu.Unlock()

		p.schedulePersist()
		p.publishChanged("refreshed", acct)
		return nil
	})
}

// ensureProject lazily resolves the account's project id exactly once. An
// ineligible answer disables the account; any other discovery failure
// falls back to a generated id inside the oauth manager.
func (p *Pool) ensureProject(ctx context.Context, acct *models.Account) error {
	p.mu.RLock()
	done := acct.ProjectID != ""
	accessToken := acct.AccessToken
	p.mu.RUnlock()
	if done {
		return nil
	}

	return p.inflight.do(ctx, "project:"+acct.ID(), func(ctx context.Context) error {
		p.mu.RLock()
		done := acct.ProjectID != ""
		p.mu.RUnlock()
		if done {
			return nil
		}

		var projectID string
		if p.cfgMgr.Get().Other.SkipProjectIDFetch {
			projectID = oauth.RandomProjectID()
		} else {
			var err error
			projectID, err = p.oauth.DiscoverProjectID(ctx, accessToken)
			if errors.Is(err, oauth.ErrIneligible) {
				p.disable(acct, "ineligible for code assist")
				return err
			}
			if err != nil {
				return err
			}
		}

		p.mu.Lock()
		acct.ProjectID = projectID
		p.mu.Unlock()

		log.WithFields(log.Fields{
			"account": acct.DisplayName(),
			"project": projectID,
		}).Debug("account pool: project id resolved")
		p.schedulePersist()
		return nil
	})
}
