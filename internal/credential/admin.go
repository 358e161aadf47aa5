package credential

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"antigravity2api-go/internal/models"
	"antigravity2api-go/internal/oauth"
)

// ErrDuplicateAccount reports an Add with an already-pooled refresh token.
var ErrDuplicateAccount = errors.New("credential: refresh token already in pool")

// ErrAccountNotFound reports a mutation against an unknown refresh token.
var ErrAccountNotFound = errors.New("credential: account not found")

// AccountView is the admin-facing snapshot of one pooled account. ID is a
// digest of the refresh token: stable across token refreshes, path-safe,
// and it keeps the grant itself off the wire.
type AccountView struct {
	ID           string `json:"id"`
	Email        string `json:"email,omitempty"`
	TokenSuffix  string `json:"token_suffix"`
	ProjectID    string `json:"project_id,omitempty"`
	Enabled      bool   `json:"enabled"`
	HasQuota     bool   `json:"has_quota"`
	Expired      bool   `json:"expired"`
	RequestCount int32  `json:"request_count"`
}

// DigestID derives the admin-facing account id from a refresh token.
func DigestID(refreshToken string) string {
	sum := sha256.Sum256([]byte(refreshToken))
	return hex.EncodeToString(sum[:6])
}

// AccountUpdate carries admin-editable fields; nil means leave unchanged.
type AccountUpdate struct {
	Enabled   *bool   `json:"enabled,omitempty"`
	HasQuota  *bool   `json:"hasQuota,omitempty"`
	ProjectID *string `json:"projectId,omitempty"`
	Email     *string `json:"email,omitempty"`
}

// Snapshot lists the pool for the admin surface, in rotation order.
func (p *Pool) Snapshot() []AccountView {
	p.mu.RLock()
	defer p.mu.RUnlock()

	now := p.now()
	out := make([]AccountView, 0, len(p.accounts))
	for _, acct := range p.accounts {
		out = append(out, AccountView{
			ID:           DigestID(acct.ID()),
			Email:        acct.Email,
			TokenSuffix:  acct.TokenSuffix(),
			ProjectID:    acct.ProjectID,
			Enabled:      acct.IsEnabled(),
			HasQuota:     acct.QuotaAvailable(),
			Expired:      acct.IsExpired(now),
			RequestCount: acct.RequestCount(),
		})
	}
	return out
}

// Get returns a clone of the account with the given refresh token.
func (p *Pool) Get(id string) (*models.Account, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	acct := p.findLocked(id)
	if acct == nil {
		return nil, false
	}
	return acct.Clone(), true
}

// Add validates a refresh token by exchanging it once, resolves the
// account email for display, and appends the account to the pool. A grant
// the upstream permanently rejects is not added at all.
func (p *Pool) Add(ctx context.Context, refreshToken string) (AccountView, error) {
	if err := p.waitReady(ctx); err != nil {
		return AccountView{}, err
	}
	if refreshToken == "" {
		return AccountView{}, errors.New("credential: refresh token is required")
	}

	p.mu.RLock()
	dup := p.findLocked(refreshToken) != nil
	p.mu.RUnlock()
	if dup {
		return AccountView{}, ErrDuplicateAccount
	}

	acct := &models.Account{
		RefreshToken: refreshToken,
		SessionID:    newSessionID(),
	}
	if err := p.oauth.RefreshAccount(ctx, acct); err != nil {
		var refreshErr *oauth.RefreshError
		if errors.As(err, &refreshErr) && refreshErr.PermanentlyRejected() {
			return AccountView{}, fmt.Errorf("credential: refresh token rejected: %w", err)
		}
		return AccountView{}, fmt.Errorf("credential: token validation failed: %w", err)
	}
	if email, err := p.oauth.FetchUserEmail(ctx, acct.AccessToken); err == nil {
		acct.Email = email
	}

	p.mu.Lock()
	if p.findLocked(refreshToken) != nil {
		p.mu.Unlock()
		return AccountView{}, ErrDuplicateAccount
	}
	p.accounts = append(p.accounts, acct)
	p.rebuildQuotaLocked()
	p.mu.Unlock()

	if err := p.persistNow(ctx); err != nil {
		return AccountView{}, err
	}
	p.publishChanged("added", acct)
	log.WithField("account", acct.DisplayName()).Info("account pool: account added")
	return p.viewOf(acct), nil
}

// Update applies admin edits to an account.
func (p *Pool) Update(ctx context.Context, id string, upd AccountUpdate) (AccountView, error) {
	if err := p.waitReady(ctx); err != nil {
		return AccountView{}, err
	}

	p.mu.Lock()
	acct := p.findLocked(id)
	if acct == nil {
		p.mu.Unlock()
		return AccountView{}, ErrAccountNotFound
	}
	if upd.Enabled != nil {
		acct.SetEnabled(*upd.Enabled)
	}
	if upd.HasQuota != nil {
		acct.SetHasQuota(*upd.HasQuota)
	}
	if upd.ProjectID != nil {
		acct.ProjectID = *upd.ProjectID
	}
	if upd.Email != nil {
		acct.Email = *upd.Email
	}
	p.rebuildQuotaLocked()
	p.mu.Unlock()

	if err := p.persistNow(ctx); err != nil {
		return AccountView{}, err
	}
	p.publishChanged("updated", acct)
	return p.viewOf(acct), nil
}

// Delete removes an account from the pool and the store.
func (p *Pool) Delete(ctx context.Context, id string) error {
	if err := p.waitReady(ctx); err != nil {
		return err
	}

	p.mu.Lock()
	idx := -1
	for i, acct := range p.accounts {
		if acct.ID() == id || DigestID(acct.ID()) == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		p.mu.Unlock()
		return ErrAccountNotFound
	}
	removed := p.accounts[idx]
	p.accounts = append(p.accounts[:idx], p.accounts[idx+1:]...)
	if p.cursor > idx {
		p.cursor--
	}
	if n := len(p.accounts); n > 0 {
		p.cursor %= n
	} else {
		p.cursor = 0
	}
	p.rebuildQuotaLocked()
	p.mu.Unlock()

	if err := p.persistNow(ctx); err != nil {
		return err
	}
	p.publishChanged("deleted", removed)
	log.WithField("account", removed.DisplayName()).Info("account pool: account deleted")
	return nil
}

func (p *Pool) viewOf(acct *models.Account) AccountView {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return AccountView{
		ID:           DigestID(acct.ID()),
		Email:        acct.Email,
		TokenSuffix:  acct.TokenSuffix(),
		ProjectID:    acct.ProjectID,
		Enabled:      acct.IsEnabled(),
		HasQuota:     acct.QuotaAvailable(),
		Expired:      acct.IsExpired(time.Now()),
		RequestCount: acct.RequestCount(),
	}
}
