package prayer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const defaultBaseURL = "https://api.aladhan.com/v1"

// Timings is one day of computed times as returned by the API, each a
// "HH:MM" 24-hour string in the queried location's civil time.
type Timings struct {
	Fajr       string `json:"Fajr"`
	Sunrise    string `json:"Sunrise"`
	Dhuhr      string `json:"Dhuhr"`
	Asr        string `json:"Asr"`
	Maghrib    string `json:"Maghrib"`
	Sunset     string `json:"Sunset"`
	Isha       string `json:"Isha"`
	Imsak      string `json:"Imsak"`
	Midnight   string `json:"Midnight"`
	Firstthird string `json:"Firstthird"`
	Lastthird  string `json:"Lastthird"`
}

type timingsResponse struct {
	Code   int    `json:"code"`
	Status string `json:"status"`
	Data   struct {
		Timings Timings `json:"timings"`
	} `json:"data"`
}

// APIError is a failure response from the computation API.
type APIError struct {
	StatusCode int
	Status     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("prayer API error: code %d status %q", e.StatusCode, e.Status)
}

// Client fetches prayer times from the aladhan computation API.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a prayer computation client. baseURL is overridable for
// tests; pass "" for the production endpoint.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    baseURL,
	}
}

// Timings fetches the computed times for the day containing t at the given
// coordinates. The API keys the request by Unix timestamp; callers pass the
// local midnight of the wanted day.
func (c *Client) Timings(ctx context.Context, t time.Time, latitude, longitude float64, method Method) (*Timings, error) {
	url := fmt.Sprintf("%s/timings/%d?latitude=%f&longitude=%f&method=%d",
		c.baseURL, t.Unix(), latitude, longitude, method.APIID())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("prayer API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	var tr timingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("decode prayer response: %w", err)
	}

	if tr.Code != http.StatusOK || tr.Status != "OK" {
		return nil, &APIError{StatusCode: tr.Code, Status: tr.Status}
	}

	return &tr.Data.Timings, nil
}
