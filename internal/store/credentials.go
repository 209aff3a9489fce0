package store

import (
	"database/sql"
	"fmt"
	"time"
)

// GoogleCredentials is the single stored Google account credential. The
// refresh token is held only as ciphertext; decryption happens in the auth
// manager.
type GoogleCredentials struct {
	RefreshTokenCiphertext []byte
	AccessToken            string
	AccessTokenExpiry      time.Time
	AccountEmail           string
	UpdatedAt              time.Time
}

// CredentialStore persists the Google OAuth credential row.
type CredentialStore struct {
	db *sql.DB
}

func NewCredentialStore(db *sql.DB) *CredentialStore {
	return &CredentialStore{db: db}
}

// Get returns the stored credentials, or nil if Google is not connected.
func (s *CredentialStore) Get() (*GoogleCredentials, error) {
	var c GoogleCredentials
	var expiry sql.NullTime

	err := s.db.QueryRow(
		`SELECT refresh_token_ciphertext, access_token, access_token_expiry, account_email, updated_at
		 FROM google_credentials WHERE id = 1`,
	).Scan(&c.RefreshTokenCiphertext, &c.AccessToken, &expiry, &c.AccountEmail, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query google credentials: %w", err)
	}

	if expiry.Valid {
		c.AccessTokenExpiry = expiry.Time
	}

	return &c, nil
}

// Set replaces the stored credentials.
func (s *CredentialStore) Set(c *GoogleCredentials) error {
	_, err := s.db.Exec(
		`INSERT INTO google_credentials (id, refresh_token_ciphertext, access_token, access_token_expiry, account_email, updated_at)
		 VALUES (1, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   refresh_token_ciphertext = excluded.refresh_token_ciphertext,
		   access_token = excluded.access_token,
		   access_token_expiry = excluded.access_token_expiry,
		   account_email = excluded.account_email,
		   updated_at = excluded.updated_at`,
		c.RefreshTokenCiphertext, c.AccessToken, c.AccessTokenExpiry.UTC(), c.AccountEmail, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert google credentials: %w", err)
	}
	return nil
}

// UpdateAccessToken stores a freshly minted access token without touching the
// refresh token ciphertext.
func (s *CredentialStore) UpdateAccessToken(token string, expiry time.Time) error {
	res, err := s.db.Exec(
		`UPDATE google_credentials SET access_token = ?, access_token_expiry = ?, updated_at = ? WHERE id = 1`,
		token, expiry.UTC(), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("update access token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("update access token: not connected")
	}
	return nil
}

// Clear disconnects the Google account.
func (s *CredentialStore) Clear() error {
	_, err := s.db.Exec("DELETE FROM google_credentials WHERE id = 1")
	if err != nil {
		return fmt.Errorf("clear google credentials: %w", err)
	}
	return nil
}
