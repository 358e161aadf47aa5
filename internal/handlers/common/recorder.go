package common

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"antigravity2api-go/internal/models"
	"antigravity2api-go/internal/storage"
	"antigravity2api-go/internal/translator"
)

const recordTimeout = 5 * time.Second

// Recorder appends request history off the response path.
type Recorder struct {
	store storage.Store
}

func NewRecorder(store storage.Store) *Recorder {
	return &Recorder{store: store}
}

// Record persists one completed request. Fire and forget: history must
// never add latency to or fail a client response.
func (r *Recorder) Record(method, path, model string, status int, started time.Time, outcome string, acct *models.Account, usage translator.Usage) {
	if r == nil || r.store == nil {
		return
	}
	rec := &models.HistoryRecord{
		Time:             started,
		Method:           method,
		Path:             path,
		Model:            model,
		Status:           status,
		DurationMS:       time.Since(started).Milliseconds(),
		Outcome:          outcome,
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.OutputTokens,
	}
	if acct != nil {
		rec.TokenSuffix = acct.TokenSuffix()
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()
		if err := r.store.AppendHistory(ctx, rec); err != nil {
			log.WithError(err).Debug("append request history failed")
		}
	}()
}
