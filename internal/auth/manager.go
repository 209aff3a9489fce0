// Package auth manages the Google OAuth credential: the refresh token is
// held encrypted at rest and exchanged for short-lived access tokens on
// demand.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"taqwim/internal/store"
)

const defaultTokenURL = "https://oauth2.googleapis.com/token"

// expirySkew is how long before the recorded expiry a token is treated as
// stale, covering clock drift and request latency.
const expirySkew = 60 * time.Second

// Config holds the OAuth client settings.
type Config struct {
	ClientID     string
	ClientSecret string
	TokenURL     string // overridable for tests; empty means Google's endpoint
	Passphrase   string // encrypts the refresh token at rest
}

// Manager implements source.TokenProvider over the credential store.
// "Not connected" is an empty token with a nil error, never a failure.
type Manager struct {
	cfg        Config
	creds      *store.CredentialStore
	httpClient *http.Client
	logger     *slog.Logger

	mu sync.Mutex // serializes token refreshes
}

func NewManager(cfg Config, creds *store.CredentialStore, logger *slog.Logger) *Manager {
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultTokenURL
	}
	return &Manager{
		cfg:        cfg,
		creds:      creds,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
	}
}

// Connect stores a new Google credential. The refresh token is encrypted
// before it touches the database; the id token is only peeked at (unverified)
// for the account email shown in status output.
func (m *Manager) Connect(ctx context.Context, refreshToken, idToken string) error {
	if strings.TrimSpace(refreshToken) == "" {
		return fmt.Errorf("refresh token is empty")
	}

	sealed, err := Encrypt([]byte(refreshToken), m.cfg.Passphrase)
	if err != nil {
		return fmt.Errorf("seal refresh token: %w", err)
	}

	email := emailFromIDToken(idToken)

	err = m.creds.Set(&store.GoogleCredentials{
		RefreshTokenCiphertext: sealed,
		AccountEmail:           email,
	})
	if err != nil {
		return err
	}

	m.logger.Info("google account connected", "email", email)
	return nil
}

// Disconnect removes the stored credential.
func (m *Manager) Disconnect() error {
	if err := m.creds.Clear(); err != nil {
		return err
	}
	m.logger.Info("google account disconnected")
	return nil
}

// AccountEmail returns the connected account's email, or "" when not
// connected.
func (m *Manager) AccountEmail() (string, error) {
	creds, err := m.creds.Get()
	if err != nil {
		return "", err
	}
	if creds == nil {
		return "", nil
	}
	return creds.AccountEmail, nil
}

// AccessToken returns a valid bearer token for the connected account,
// refreshing it against the token endpoint when the stored one is stale.
// With no account connected it returns ("", nil).
func (m *Manager) AccessToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	creds, err := m.creds.Get()
	if err != nil {
		return "", err
	}
	if creds == nil {
		return "", nil
	}

	if creds.AccessToken != "" && time.Until(creds.AccessTokenExpiry) > expirySkew {
		return creds.AccessToken, nil
	}

	refreshToken, err := Decrypt(creds.RefreshTokenCiphertext, m.cfg.Passphrase)
	if err != nil {
		return "", fmt.Errorf("unseal refresh token: %w", err)
	}

	token, expiry, err := m.exchange(ctx, string(refreshToken))
	if err != nil {
		return "", err
	}

	if err := m.creds.UpdateAccessToken(token, expiry); err != nil {
		return "", err
	}

	m.logger.Debug("google access token refreshed", "expires", expiry)
	return token, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

func (m *Manager) exchange(ctx context.Context, refreshToken string) (string, time.Time, error) {
	form := url.Values{}
	form.Set("client_id", m.cfg.ClientID)
	form.Set("client_secret", m.cfg.ClientSecret)
	form.Set("refresh_token", refreshToken)
	form.Set("grant_type", "refresh_token")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", time.Time{}, fmt.Errorf("token endpoint returned %d", resp.StatusCode)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", time.Time{}, fmt.Errorf("decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		return "", time.Time{}, fmt.Errorf("token endpoint returned no access token")
	}

	expiry := time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	return tr.AccessToken, expiry, nil
}

// emailFromIDToken extracts the email claim from an id token without
// verifying the signature. Display only; never used for authorization.
func emailFromIDToken(idToken string) string {
	if idToken == "" {
		return ""
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err != nil {
		return ""
	}
	if email, ok := claims["email"].(string); ok {
		return email
	}
	return ""
}
