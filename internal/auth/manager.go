package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrAuthentication is returned when the token endpoint rejects a grant.
// It is the only error surfaced by the Manager.
var ErrAuthentication = errors.New("authentication failed")

// expiryMargin is subtracted from the server-reported lifetime so a token
// is never presented right at its expiry instant.
const expiryMargin = 60 * time.Second

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// Manager owns one bearer credential and renews it on demand. The mutex is
// held across the token request, so concurrent callers that detect an expired
// token all wait on a single in-flight refresh.
type Manager struct {
	tokenURL     string
	clientID     string
	clientSecret string
	client       *http.Client
	now          func() time.Time

	mu           sync.Mutex
	accessToken  string
	refreshToken string
	expiresAt    time.Time
}

func NewManager(tokenURL, clientID, clientSecret string) *Manager {
	return &Manager{
		tokenURL:     tokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		now: time.Now,
	}
}

// AuthHeaders returns headers carrying a valid bearer token, requesting or
// renewing the credential first when needed. Callable repeatedly and cheaply.
func (m *Manager) AuthHeaders(ctx context.Context) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.accessToken == "" || !m.now().Before(m.expiresAt) {
		log.Info().Msg("Access token is missing or expired, requesting a new one")
		if err := m.renewLocked(ctx); err != nil {
			return nil, err
		}
	}

	return map[string]string{
		"Authorization": "Bearer " + m.accessToken,
	}, nil
}

// Invalidate discards the held credential so the next call re-authenticates.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	m.accessToken = ""
	m.refreshToken = ""
	m.expiresAt = time.Time{}
	m.mu.Unlock()
}

// Close releases the idle connections held by the manager's HTTP client.
func (m *Manager) Close() {
	log.Debug().Msg("Closing credential manager HTTP client")
	m.client.CloseIdleConnections()
}

// renewLocked obtains a fresh token. A held refresh token is tried first; any
// refresh failure silently falls back to the full client-credentials grant.
func (m *Manager) renewLocked(ctx context.Context) error {
	if m.refreshToken != "" {
		err := m.requestToken(ctx, m.refreshPayload())
		if err == nil {
			return nil
		}
		log.Warn().Err(err).Msg("Refresh grant failed, falling back to client credentials")
	}
	return m.requestToken(ctx, m.clientCredentialsPayload())
}

func (m *Manager) clientCredentialsPayload() url.Values {
	return url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {m.clientID},
		"client_secret": {m.clientSecret},
	}
}

func (m *Manager) refreshPayload() url.Values {
	return url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {m.refreshToken},
		"client_id":     {m.clientID},
		"client_secret": {m.clientSecret},
	}
}

func (m *Manager) requestToken(ctx context.Context, payload url.Values) error {
	req, err := http.NewRequestWithContext(ctx, "POST", m.tokenURL, strings.NewReader(payload.Encode()))
	if err != nil {
		return fmt.Errorf("%w: failed to create token request: %v", ErrAuthentication, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.client.Do(req)
	if err != nil {
		m.clearLocked()
		return fmt.Errorf("%w: token request failed: %v", ErrAuthentication, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		m.clearLocked()
		log.Error().
			Int("status_code", resp.StatusCode).
			Str("response_body", string(body)).
			Msg("Token request rejected")
		return fmt.Errorf("%w: token endpoint returned status %d", ErrAuthentication, resp.StatusCode)
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		m.clearLocked()
		return fmt.Errorf("%w: failed to decode token response: %v", ErrAuthentication, err)
	}

	m.accessToken = token.AccessToken
	m.expiresAt = m.now().Add(time.Duration(token.ExpiresIn)*time.Second - expiryMargin)
	// Keep the previous refresh token when the server does not issue one.
	if token.RefreshToken != "" {
		m.refreshToken = token.RefreshToken
	}

	log.Info().
		Time("expires_at", m.expiresAt).
		Bool("has_refresh_token", m.refreshToken != "").
		Msg("Acquired new access token")

	return nil
}

// clearLocked resets the credential so the next call retries from scratch.
func (m *Manager) clearLocked() {
	m.accessToken = ""
	m.expiresAt = time.Time{}
}
