package oauth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"antigravity2api-go/internal/models"
)

func TestRefreshAccountUpdatesToken(t *testing.T) {
	var gotForm map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotForm = map[string]string{
			"grant_type":    r.PostForm.Get("grant_type"),
			"refresh_token": r.PostForm.Get("refresh_token"),
			"client_id":     r.PostForm.Get("client_id"),
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"ya29.new","expires_in":3599,"token_type":"Bearer"}`))
	}))
	defer srv.Close()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m := NewManager("client-id", "client-secret",
		WithTokenURL(srv.URL),
		WithNowFunc(func() time.Time { return now }),
	)

	acct := &models.Account{RefreshToken: "1//refresh-abc"}
	require.NoError(t, m.RefreshAccount(context.Background(), acct))

	assert.Equal(t, "refresh_token", gotForm["grant_type"])
	assert.Equal(t, "1//refresh-abc", gotForm["refresh_token"])
	assert.Equal(t, "client-id", gotForm["client_id"])

	assert.Equal(t, "ya29.new", acct.AccessToken)
	assert.Equal(t, int64(3599), acct.ExpiresIn)
	assert.Equal(t, now.UnixMilli(), acct.Timestamp)
	assert.False(t, acct.IsExpired(now))
}

func TestRefreshAccountPermanentRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer srv.Close()

	m := NewManager("id", "secret", WithTokenURL(srv.URL))
	err := m.RefreshAccount(context.Background(), &models.Account{RefreshToken: "1//dead"})
	require.Error(t, err)

	refreshErr, ok := err.(*RefreshError)
	require.True(t, ok, "expected *RefreshError, got %T", err)
	assert.True(t, refreshErr.PermanentlyRejected())
}

func TestRefreshAccountTransientFailureNotPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	m := NewManager("id", "secret", WithTokenURL(srv.URL))
	err := m.RefreshAccount(context.Background(), &models.Account{RefreshToken: "1//alive"})
	require.Error(t, err)
	refreshErr, ok := err.(*RefreshError)
	require.True(t, ok)
	assert.False(t, refreshErr.PermanentlyRejected())
}

func TestDiscoverProjectIDFromUpstream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer ya29.tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"cloudaicompanionProject":"my-real-project"}`))
	}))
	defer srv.Close()

	m := NewManager("id", "secret", WithLoadCodeAssistURL(srv.URL))
	got, err := m.DiscoverProjectID(context.Background(), "ya29.tok")
	require.NoError(t, err)
	assert.Equal(t, "my-real-project", got)
}

func TestDiscoverProjectIDConfigFallbackField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"codeAssistConfig":{"projectId":"cfg-project"}}`))
	}))
	defer srv.Close()

	m := NewManager("id", "secret", WithLoadCodeAssistURL(srv.URL))
	got, err := m.DiscoverProjectID(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "cfg-project", got)
}

func TestDiscoverProjectIDRandomFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	m := NewManager("id", "secret", WithLoadCodeAssistURL(srv.URL))
	got, err := m.DiscoverProjectID(context.Background(), "tok")
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^[a-z]+-[a-z]+-\d{1,5}$`), got)
}

func TestDiscoverProjectIDIneligible(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"message":"account is ineligible for Gemini Code Assist"}}`))
	}))
	defer srv.Close()

	m := NewManager("id", "secret", WithLoadCodeAssistURL(srv.URL))
	_, err := m.DiscoverProjectID(context.Background(), "tok")
	require.ErrorIs(t, err, ErrIneligible)
}

func TestRandomProjectIDShape(t *testing.T) {
	re := regexp.MustCompile(`^[a-z]+-[a-z]+-\d{1,5}$`)
	for i := 0; i < 20; i++ {
		assert.Regexp(t, re, RandomProjectID())
	}
}

func TestFetchUserEmail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"email":"dev@example.com","verified_email":true}`))
	}))
	defer srv.Close()

	m := NewManager("id", "secret", WithUserInfoURL(srv.URL))
	email, err := m.FetchUserEmail(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "dev@example.com", email)
}
