package models

// ModelQuota is the per-model quota snapshot returned by the upstream
// catalog call for one account.
type ModelQuota struct {
	Model             string  `json:"model"`
	RemainingFraction float64 `json:"remainingFraction"`
	ResetTime         string  `json:"resetTime,omitempty"`
}
