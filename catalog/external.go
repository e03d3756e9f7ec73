package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Fetcher pulls the item list from an external menu API. It is a
// narrow capability interface so the syncer can be tested without a
// live network dependency.
type Fetcher interface {
	FetchMenu(ctx context.Context) ([]ExternalItem, error)
}

// HTTPFetcher fetches the external menu over HTTP with a bounded
// timeout.
type HTTPFetcher struct {
	url    string
	client *http.Client
}

// NewHTTPFetcher creates a fetcher for the given menu API URL
func NewHTTPFetcher(url string, timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// FetchMenu performs GET on the menu API and decodes the item list
func (f *HTTPFetcher) FetchMenu(ctx context.Context) ([]ExternalItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build menu request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch external menu: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("external menu API returned status %d", resp.StatusCode)
	}

	var items []ExternalItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("decode external menu: %w", err)
	}
	return items, nil
}
