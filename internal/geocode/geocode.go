// Package geocode resolves coordinates to a human-readable place name via
// the Nominatim reverse geocoding API.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
)

const defaultBaseURL = "https://nominatim.openstreetmap.org"

// userAgent identifies the daemon to Nominatim, which rejects anonymous
// clients.
const userAgent = "taqwim/1.0"

// Place is the resolved locality for a coordinate pair.
type Place struct {
	City    string `json:"city"`
	Country string `json:"country"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type reverseResponse struct {
	Address struct {
		City    string `json:"city"`
		Town    string `json:"town"`
		Village string `json:"village"`
		County  string `json:"county"`
		Country string `json:"country"`
	} `json:"address"`
}

// retryableError marks a failure worth retrying (5xx or transport errors).
type retryableError struct{ err error }

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

// Reverse resolves the coordinates to a place. Transient failures are retried
// with fibonacci backoff, at most three attempts; a geocoding failure is
// never fatal to callers, who fall back to bare coordinates.
func (c *Client) Reverse(ctx context.Context, lat, lon float64) (*Place, error) {
	url := fmt.Sprintf("%s/reverse?format=jsonv2&lat=%f&lon=%f", c.baseURL, lat, lon)

	var place *Place
	backoff := retry.WithMaxRetries(2, retry.NewFibonacci(500*time.Millisecond))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		p, err := c.reverseOnce(ctx, url)
		if err != nil {
			var re *retryableError
			if errors.As(err, &re) {
				return retry.RetryableError(re.err)
			}
			return err
		}
		place = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return place, nil
}

func (c *Client) reverseOnce(ctx context.Context, url string) (*Place, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &retryableError{err: fmt.Errorf("reverse geocode: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, &retryableError{err: fmt.Errorf("reverse geocode: status %d", resp.StatusCode)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("reverse geocode: status %d", resp.StatusCode)
	}

	var rr reverseResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return nil, fmt.Errorf("decode reverse geocode response: %w", err)
	}

	// Nominatim reports the locality under different keys by place type.
	city := rr.Address.City
	if city == "" {
		city = rr.Address.Town
	}
	if city == "" {
		city = rr.Address.Village
	}
	if city == "" {
		city = rr.Address.County
	}

	return &Place{City: city, Country: rr.Address.Country}, nil
}
