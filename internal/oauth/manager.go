// Package oauth exchanges refresh tokens for access tokens and discovers the
// Cloud Code project an account should bill against. Browser flows are out
// of scope; accounts arrive with refresh tokens already minted.
package oauth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"antigravity2api-go/internal/constants"
	"antigravity2api-go/internal/models"
)

const (
	TokenURL = "https://oauth2.googleapis.com/token"

	defaultUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
)

// ErrIneligible reports that the upstream refused to assign a project to
// this account. Such accounts can never serve requests and must be
// disabled rather than retried.
var ErrIneligible = errors.New("oauth: account ineligible for code assist")

// ManagerOption customizes Manager creation.
type ManagerOption func(*Manager)

// Manager performs the OAuth operations the account pool needs.
type Manager struct {
	clientID          string
	clientSecret      string
	httpClient        *http.Client
	tokenURL          string
	userInfoURL       string
	loadCodeAssistURL string
	userAgent         string
	now               func() time.Time
}

func NewManager(clientID, clientSecret string, opts ...ManagerOption) *Manager {
	m := &Manager{
		clientID:          clientID,
		clientSecret:      clientSecret,
		httpClient:        &http.Client{Timeout: 30 * time.Second},
		tokenURL:          TokenURL,
		userInfoURL:       defaultUserInfoURL,
		loadCodeAssistURL: "https://" + constants.DefaultAPIHost + "/v1internal:" + constants.LoadCodeAssistAction,
		userAgent:         constants.DefaultUserAgent,
		now:               time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// WithHTTPClient overrides the HTTP client used for outbound calls.
func WithHTTPClient(client *http.Client) ManagerOption {
	return func(m *Manager) {
		if client != nil {
			m.httpClient = client
		}
	}
}

// WithTokenURL overrides the token refresh endpoint.
func WithTokenURL(tokenURL string) ManagerOption {
	return func(m *Manager) {
		if tokenURL != "" {
			m.tokenURL = tokenURL
		}
	}
}

// WithUserInfoURL overrides the user info endpoint.
func WithUserInfoURL(endpoint string) ManagerOption {
	return func(m *Manager) {
		if endpoint != "" {
			m.userInfoURL = endpoint
		}
	}
}

// WithLoadCodeAssistURL overrides the project discovery endpoint.
func WithLoadCodeAssistURL(endpoint string) ManagerOption {
	return func(m *Manager) {
		if endpoint != "" {
			m.loadCodeAssistURL = endpoint
		}
	}
}

// WithUserAgent overrides the outbound User-Agent header.
func WithUserAgent(ua string) ManagerOption {
	return func(m *Manager) {
		if ua != "" {
			m.userAgent = ua
		}
	}
}

// WithNowFunc overrides the clock used for expiry bookkeeping (testing).
func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// TokenResponse is Google's token endpoint payload.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// RefreshError carries the upstream status so callers can distinguish a
// revoked grant from a transient failure.
type RefreshError struct {
	StatusCode int
	Body       string
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("token refresh failed with status %d: %s", e.StatusCode, e.Body)
}

// PermanentlyRejected reports whether the grant itself was refused, meaning
// retrying the same refresh token is pointless.
func (e *RefreshError) PermanentlyRejected() bool {
	return e.StatusCode == http.StatusBadRequest || e.StatusCode == http.StatusForbidden ||
		e.StatusCode == http.StatusUnauthorized
}

func (m *Manager) ensureClientCredentials() error {
	if strings.TrimSpace(m.clientID) == "" || strings.TrimSpace(m.clientSecret) == "" {
		return fmt.Errorf("oauth client credentials not configured")
	}
	return nil
}

// Refresh exchanges a refresh token for a fresh access token. It performs
// only the network exchange; callers decide how to apply the result.
// Google 只认表单参数，不走 Basic auth。
func (m *Manager) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("no refresh token available")
	}
	if err := m.ensureClientCredentials(); err != nil {
		return nil, err
	}

	conf := &oauth2.Config{
		ClientID:     m.clientID,
		ClientSecret: m.clientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  m.tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)

	tok, err := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return nil, &RefreshError{
				StatusCode: retrieveErr.Response.StatusCode,
				Body:       string(retrieveErr.Body),
			}
		}
		return nil, fmt.Errorf("refresh token: %w", err)
	}

	// 库把 expires_in 折算成 Expiry，这里按原始秒数回读。
	expiresIn := int64(0)
	if v, ok := tok.Extra("expires_in").(float64); ok {
		expiresIn = int64(v)
	} else if !tok.Expiry.IsZero() {
		expiresIn = int64(time.Until(tok.Expiry) / time.Second)
	}

	return &TokenResponse{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresIn:    expiresIn,
		TokenType:    tok.TokenType,
	}, nil
}

// RefreshAccount refreshes and updates the account in place. Callers that
// share the account across goroutines must apply their own locking or use
// Refresh directly.
func (m *Manager) RefreshAccount(ctx context.Context, acct *models.Account) error {
	if acct == nil {
		return fmt.Errorf("no refresh token available")
	}
	tokenResp, err := m.Refresh(ctx, acct.RefreshToken)
	if err != nil {
		return err
	}

	acct.MarkRefreshed(tokenResp.AccessToken, tokenResp.ExpiresIn, m.now())
	if tokenResp.RefreshToken != "" {
		acct.RefreshToken = tokenResp.RefreshToken
	}

	log.WithField("account", acct.TokenSuffix()).Debug("access token refreshed")
	return nil
}

// Now exposes the manager's clock so pool bookkeeping and refresh results
// agree on the issue instant.
func (m *Manager) Now() time.Time { return m.now() }

// FetchUserEmail resolves the Google account email behind an access token.
// Used for display only; failures are not fatal.
func (m *Manager) FetchUserEmail(ctx context.Context, accessToken string) (string, error) {
	if accessToken == "" {
		return "", fmt.Errorf("access token is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.userInfoURL, nil)
	if err != nil {
		return "", fmt.Errorf("create userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("userinfo status %d: %s", resp.StatusCode, string(body))
	}

	var info struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", fmt.Errorf("decode userinfo: %w", err)
	}
	return info.Email, nil
}

// DiscoverProjectID asks Cloud Code which project the token belongs to.
// When the endpoint yields nothing a plausible random id is generated; the
// upstream accepts any well-formed value for personal accounts. The only
// error ever returned is ErrIneligible.
func (m *Manager) DiscoverProjectID(ctx context.Context, accessToken string) (string, error) {
	projectID, err := m.loadCodeAssistProject(ctx, accessToken)
	if errors.Is(err, ErrIneligible) {
		return "", err
	}
	if err != nil {
		log.WithError(err).Debug("project discovery failed, generating project id")
	}
	if projectID == "" {
		projectID = RandomProjectID()
	}
	return projectID, nil
}

func (m *Manager) loadCodeAssistProject(ctx context.Context, accessToken string) (string, error) {
	payload := map[string]interface{}{
		"metadata": map[string]string{"ideType": "ANTIGRAVITY"},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.loadCodeAssistURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create loadCodeAssist request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", m.userAgent)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("loadCodeAssist: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read loadCodeAssist response: %w", err)
	}
	if ineligibleResponse(resp.StatusCode, raw) {
		return "", ErrIneligible
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("loadCodeAssist status %d", resp.StatusCode)
	}

	var result struct {
		CloudAICompanionProject string `json:"cloudaicompanionProject"`
		CodeAssistConfig        struct {
			ProjectID string `json:"projectId"`
		} `json:"codeAssistConfig"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", fmt.Errorf("decode loadCodeAssist response: %w", err)
	}

	if result.CloudAICompanionProject != "" {
		return result.CloudAICompanionProject, nil
	}
	return result.CodeAssistConfig.ProjectID, nil
}

// ineligibleResponse recognizes the upstream's account-not-allowed answer,
// which arrives either as a 403 mentioning ineligibility or as a 200 whose
// allowed tiers are all marked ineligible.
func ineligibleResponse(status int, body []byte) bool {
	if !bytes.Contains(bytes.ToLower(body), []byte("ineligible")) {
		return false
	}
	return status == http.StatusForbidden || status == http.StatusOK
}
