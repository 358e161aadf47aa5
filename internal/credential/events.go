package credential

import (
	"context"

	"antigravity2api-go/internal/events"
	"antigravity2api-go/internal/models"
)

// AccountSummary is the event payload for one account. Only the token
// suffix travels; full tokens stay inside the pool.
type AccountSummary struct {
	Email       string `json:"email,omitempty"`
	TokenSuffix string `json:"token_suffix"`
	ProjectID   string `json:"project_id,omitempty"`
	Enabled     bool   `json:"enabled"`
	HasQuota    bool   `json:"has_quota"`
}

// AccountEvent describes a single account change.
type AccountEvent struct {
	Action  string         `json:"action"`
	Account AccountSummary `json:"account"`
}

// SyncEvent reports a finished (re)load.
type SyncEvent struct {
	Total   int `json:"total"`
	Enabled int `json:"enabled"`
}

func (p *Pool) publishChanged(action string, acct *models.Account) {
	if p.hub == nil || acct == nil {
		return
	}
	p.mu.RLock()
	summary := AccountSummary{
		Email:       acct.Email,
		TokenSuffix: acct.TokenSuffix(),
		ProjectID:   acct.ProjectID,
		Enabled:     acct.IsEnabled(),
		HasQuota:    acct.QuotaAvailable(),
	}
	p.mu.RUnlock()
	p.hub.Publish(context.Background(), events.TopicAccountChanged,
		AccountEvent{Action: action, Account: summary}, nil)
}

func (p *Pool) publishSynced(total, enabled int) {
	if p.hub == nil {
		return
	}
	p.hub.Publish(context.Background(), events.TopicAccountsSynced,
		SyncEvent{Total: total, Enabled: enabled}, nil)
}
