package loyalty

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// BalanceFetcher fetches a user's point balance from an external
// loyalty system. It is a narrow capability interface so tests can
// substitute a fake and the engine never touches the network directly.
type BalanceFetcher interface {
	FetchBalance(ctx context.Context, telegramID int64) (int, error)
}

// HTTPBalanceFetcher talks to the external loyalty API over HTTP with
// a bounded timeout.
type HTTPBalanceFetcher struct {
	baseURL string
	client  *http.Client
}

// NewHTTPBalanceFetcher creates a fetcher for the given API base URL
func NewHTTPBalanceFetcher(baseURL string, timeout time.Duration) *HTTPBalanceFetcher {
	return &HTTPBalanceFetcher{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// FetchBalance performs GET {base}/points/{telegramID} and returns the
// reported balance.
func (f *HTTPBalanceFetcher) FetchBalance(ctx context.Context, telegramID int64) (int, error) {
	url := fmt.Sprintf("%s/points/%d", f.baseURL, telegramID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("build loyalty request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetch external balance: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("external loyalty API returned status %d", resp.StatusCode)
	}

	var payload struct {
		Points int `json:"points"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("decode external balance: %w", err)
	}
	return payload.Points, nil
}
