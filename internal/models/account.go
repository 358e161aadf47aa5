package models

import (
	"strings"
	"sync/atomic"
	"time"
)

// ExpirySkew is subtracted from the nominal token lifetime so a token is
// refreshed slightly before the upstream would reject it.
const ExpirySkew = 30 * time.Second

// Account is one OAuth credential usable against the upstream endpoint.
// The JSON fields mirror the persisted account file; everything else is
// process-local state that must never be written back.
type Account struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	// Timestamp is the token issue instant in unix milliseconds.
	Timestamp int64  `json:"timestamp"`
	Enabled   *bool  `json:"enable,omitempty"`
	ProjectID string `json:"projectId,omitempty"`
	Email     string `json:"email,omitempty"`
	HasQuota  *bool  `json:"hasQuota,omitempty"`

	// SessionID partitions signature/tool-name caches; regenerated on every
	// load and never persisted.
	SessionID string `json:"-"`

	requestCount int32
}

// ID returns the primary key of the account.
func (a *Account) ID() string { return a.RefreshToken }

// IsEnabled treats a missing enable flag as true.
func (a *Account) IsEnabled() bool { return a.Enabled == nil || *a.Enabled }

// QuotaAvailable treats a missing hasQuota flag as true.
func (a *Account) QuotaAvailable() bool { return a.HasQuota == nil || *a.HasQuota }

// SetEnabled overwrites the enable flag.
func (a *Account) SetEnabled(v bool) { a.Enabled = &v }

// SetHasQuota overwrites the hasQuota flag.
func (a *Account) SetHasQuota(v bool) { a.HasQuota = &v }

// IsExpired reports whether the access token is unusable at instant now.
// A token is considered expired ExpirySkew before its nominal end of life,
// and immediately when no token or issue instant is recorded.
func (a *Account) IsExpired(now time.Time) bool {
	if a.AccessToken == "" || a.Timestamp == 0 {
		return true
	}
	issued := time.UnixMilli(a.Timestamp)
	return !now.Before(issued.Add(time.Duration(a.ExpiresIn)*time.Second - ExpirySkew))
}

// MarkRefreshed records a fresh access token.
func (a *Account) MarkRefreshed(token string, expiresIn int64, now time.Time) {
	a.AccessToken = token
	a.ExpiresIn = expiresIn
	a.Timestamp = now.UnixMilli()
}

// BumpRequestCount atomically increments and returns the per-process call
// counter used by the REQUEST_COUNT rotation policy.
func (a *Account) BumpRequestCount() int32 { return atomic.AddInt32(&a.requestCount, 1) }

// ResetRequestCount zeroes the rotation counter.
func (a *Account) ResetRequestCount() { atomic.StoreInt32(&a.requestCount, 0) }

// RequestCount reads the rotation counter.
func (a *Account) RequestCount() int32 { return atomic.LoadInt32(&a.requestCount) }

// TokenSuffix returns the last six characters of the access token for logs
// and history records. The full token never leaves the process boundary.
func (a *Account) TokenSuffix() string {
	t := a.AccessToken
	if len(t) <= 6 {
		return t
	}
	return t[len(t)-6:]
}

// Clone copies the persisted fields plus session id. The rotation counter
// intentionally starts at zero on the copy.
func (a *Account) Clone() *Account {
	cp := &Account{
		AccessToken:  a.AccessToken,
		RefreshToken: a.RefreshToken,
		ExpiresIn:    a.ExpiresIn,
		Timestamp:    a.Timestamp,
		ProjectID:    a.ProjectID,
		Email:        a.Email,
		SessionID:    a.SessionID,
	}
	if a.Enabled != nil {
		v := *a.Enabled
		cp.Enabled = &v
	}
	if a.HasQuota != nil {
		v := *a.HasQuota
		cp.HasQuota = &v
	}
	return cp
}

// DisplayName prefers the account email, falling back to the token suffix.
func (a *Account) DisplayName() string {
	if strings.TrimSpace(a.Email) != "" {
		return a.Email
	}
	return "…" + a.TokenSuffix()
}
