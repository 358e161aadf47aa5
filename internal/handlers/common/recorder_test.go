package common

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"antigravity2api-go/internal/models"
	"antigravity2api-go/internal/translator"
)

type captureStore struct {
	recs chan *models.HistoryRecord
}

func (s *captureStore) LoadAccounts(context.Context) ([]*models.Account, error) { return nil, nil }
func (s *captureStore) SaveAccounts(context.Context, []*models.Account) error   { return nil }
func (s *captureStore) AppendHistory(_ context.Context, rec *models.HistoryRecord) error {
	s.recs <- rec
	return nil
}
func (s *captureStore) ListHistory(context.Context, int) ([]*models.HistoryRecord, error) {
	return nil, nil
}
func (s *captureStore) Health(context.Context) error { return nil }
func (s *captureStore) Close() error                 { return nil }

func TestRecorderAppendsAsync(t *testing.T) {
	store := &captureStore{recs: make(chan *models.HistoryRecord, 1)}
	r := NewRecorder(store)

	acct := &models.Account{AccessToken: "ya29.abcdefgh"}
	started := time.Now().Add(-250 * time.Millisecond)
	r.Record("POST", "/v1/chat/completions", "claude-sonnet-4-5", 200, started,
		models.OutcomeOK, acct, translator.Usage{PromptTokens: 11, OutputTokens: 7})

	select {
	case rec := <-store.recs:
		require.Equal(t, "POST", rec.Method)
		require.Equal(t, "/v1/chat/completions", rec.Path)
		require.Equal(t, "claude-sonnet-4-5", rec.Model)
		require.Equal(t, 200, rec.Status)
		require.Equal(t, models.OutcomeOK, rec.Outcome)
		require.GreaterOrEqual(t, rec.DurationMS, int64(250))
		require.Equal(t, int64(11), rec.PromptTokens)
		require.Equal(t, int64(7), rec.CompletionTokens)
		require.NotEmpty(t, rec.TokenSuffix)
	case <-time.After(2 * time.Second):
		t.Fatal("history record not appended")
	}
}

func TestRecorderNilStoreIsNoop(t *testing.T) {
	r := NewRecorder(nil)
	r.Record("GET", "/v1/models", "", 200, time.Now(), models.OutcomeOK, nil, translator.Usage{})
}
