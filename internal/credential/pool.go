// Package credential multiplexes requests over a pool of OAuth accounts.
// The pool owns account lifecycle: initial load with a readiness barrier,
// inline token refresh, rotation policy, quota bookkeeping, hot reload of
// the account file, and serialized persistence back to the store.
package credential

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"antigravity2api-go/internal/config"
	"antigravity2api-go/internal/events"
	"antigravity2api-go/internal/models"
	"antigravity2api-go/internal/oauth"
	"antigravity2api-go/internal/storage"
)

// ErrNoAccounts is returned by Acquire when no enabled account can serve.
var ErrNoAccounts = errors.New("credential: no usable account in pool")

// Options wire the pool's collaborators.
type Options struct {
	Store  storage.Store
	OAuth  *oauth.Manager
	Hub    *events.Hub
	Config *config.Manager
}

// Pool is the account pool. All slice and cursor state lives under one
// mutex; counters on the accounts themselves are atomic.
type Pool struct {
	store  storage.Store
	oauth  *oauth.Manager
	hub    *events.Hub
	cfgMgr *config.Manager

	mu       sync.RWMutex
	accounts []*models.Account
	cursor   int
	policy   Policy
	// quotaIdx holds indices of enabled quota-holding accounts; only the
	// QUOTA_EXHAUSTED policy reads it.
	quotaIdx    []int
	quotaCursor int

	barrierMu sync.Mutex
	barrier   *loadBarrier

	inflight *refreshGroup

	persistCh chan struct{}
	reloadCh  chan struct{}
	stopCh    chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup

	// saveMu serializes writers so snapshots reach the store in order.
	saveMu        sync.Mutex
	selfWriteMu   sync.Mutex
	lastSelfWrite time.Time

	unsubscribe []func()
	now         func() time.Time
	loaded      atomic.Bool
}

// loadBarrier is a one-shot promise: callers block on ch until the load
// that owns the barrier finishes, then read err.
type loadBarrier struct {
	ch  chan struct{}
	err error
}

func NewPool(opts Options) (*Pool, error) {
	if opts.Store == nil {
		return nil, errors.New("credential: store is required")
	}
	if opts.OAuth == nil {
		return nil, errors.New("credential: oauth manager is required")
	}
	if opts.Config == nil {
		return nil, errors.New("credential: config manager is required")
	}
	p := &Pool{
		store:     opts.Store,
		oauth:     opts.OAuth,
		hub:       opts.Hub,
		cfgMgr:    opts.Config,
		inflight:  newRefreshGroup(),
		persistCh: make(chan struct{}, 1),
		reloadCh:  make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
		barrier:   &loadBarrier{ch: make(chan struct{})},
		now:       time.Now,
	}
	cfg := opts.Config.Get()
	policy, err := ParsePolicy(cfg.Rotation.Strategy, cfg.Rotation.RequestCount)
	if err != nil {
		return nil, err
	}
	p.policy = policy
	return p, nil
}

// Start loads the pool and launches the background loops. The returned
// error reflects only startup wiring; load failures surface through
// Acquire so a bad account file does not kill the process.
func (p *Pool) Start(ctx context.Context) error {
	go p.runLoad(ctx, p.currentBarrier())

	p.wg.Add(1)
	go p.persistLoop(ctx)

	p.startWatch(ctx)

	if p.hub != nil {
		unsub := p.hub.Subscribe(events.TopicRotationChanged, func(_ context.Context, evt events.Event) {
			rotation, ok := evt.Payload.(config.RotationConfig)
			if !ok {
				return
			}
			if err := p.SetPolicy(rotation.Strategy, rotation.RequestCount); err != nil {
				log.WithError(err).Warn("account pool: rotation update rejected")
			}
		})
		p.unsubscribe = append(p.unsubscribe, unsub)
	}
	return nil
}

// Close flushes pending state and stops the background loops.
func (p *Pool) Close() error {
	p.stopOnce.Do(func() {
		for _, unsub := range p.unsubscribe {
			unsub()
		}
		close(p.stopCh)
	})
	p.wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return p.persistNow(ctx)
}

func (p *Pool) currentBarrier() *loadBarrier {
	p.barrierMu.Lock()
	defer p.barrierMu.Unlock()
	return p.barrier
}

// waitReady blocks until the current load round completes.
func (p *Pool) waitReady(ctx context.Context) error {
	b := p.currentBarrier()
	select {
	case <-b.ch:
		return b.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Reload rebuilds the barrier and re-runs the load. In-flight Acquire
// calls finish against the old state; new callers wait for the fresh load.
func (p *Pool) Reload(ctx context.Context) error {
	b := &loadBarrier{ch: make(chan struct{})}
	p.barrierMu.Lock()
	p.barrier = b
	p.barrierMu.Unlock()

	p.runLoad(ctx, b)
	return b.err
}

func (p *Pool) runLoad(ctx context.Context, b *loadBarrier) {
	b.err = p.load(ctx)
	close(b.ch)
}

// load reads the store, assigns fresh session ids, and refreshes every
// already-expired enabled token concurrently. 400/403 refresh answers
// disable the account in place.
func (p *Pool) load(ctx context.Context) error {
	accounts, err := p.store.LoadAccounts(ctx)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("credential: load accounts: %w", err)
	}

	for _, acct := range accounts {
		acct.SessionID = newSessionID()
	}

	var (
		wg      sync.WaitGroup
		dirtyMu sync.Mutex
		dirty   bool
	)
	now := p.now()
	for _, acct := range accounts {
		if !acct.IsEnabled() || !acct.IsExpired(now) {
			continue
		}
		wg.Add(1)
		go func(acct *models.Account) {
			defer wg.Done()
			err := p.oauth.RefreshAccount(ctx, acct)
			if err == nil {
				dirtyMu.Lock()
				dirty = true
				dirtyMu.Unlock()
				return
			}
			var refreshErr *oauth.RefreshError
			if errors.As(err, &refreshErr) && refreshErr.PermanentlyRejected() {
				acct.SetEnabled(false)
				dirtyMu.Lock()
				dirty = true
				dirtyMu.Unlock()
				log.WithFields(log.Fields{
					"account": acct.DisplayName(),
					"status":  refreshErr.StatusCode,
				}).Warn("account pool: refresh rejected, account disabled")
				return
			}
			log.WithError(err).WithField("account", acct.DisplayName()).
				Warn("account pool: startup refresh failed")
		}(acct)
	}
	wg.Wait()

	p.mu.Lock()
	p.accounts = accounts
	p.cursor = 0
	p.quotaCursor = 0
	p.rebuildQuotaLocked()
	total := len(p.accounts)
	enabled := p.enabledCountLocked()
	p.mu.Unlock()

	p.loaded.Store(true)
	if dirty {
		p.schedulePersist()
	}
	p.publishSynced(total, enabled)
	log.WithFields(log.Fields{"accounts": total, "enabled": enabled}).
		Info("account pool: loaded")
	return nil
}

func (p *Pool) enabledCountLocked() int {
	n := 0
	for _, acct := range p.accounts {
		if acct.IsEnabled() {
			n++
		}
	}
	return n
}

// newSessionID is process-scoped and intentionally never persisted.
func newSessionID() string {
	return fmt.Sprintf("-%d", rand.Int63())
}
