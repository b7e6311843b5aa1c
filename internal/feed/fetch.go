package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// FetchFunc retrieves a raw feed from a URL. It is the boundary to the
// external fetch layer: implementations hand back UTF-8 bytes or fail.
type FetchFunc func(ctx context.Context, url string) ([]byte, error)

// HTTPFetch returns a FetchFunc backed by the given HTTP client.
// A nil client gets a default with a 30s timeout.
func HTTPFetch(client *http.Client) FetchFunc {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return func(ctx context.Context, url string) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to build feed request: %w", err)
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch feed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("feed fetch returned status %d", resp.StatusCode)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read feed body: %w", err)
		}
		return body, nil
	}
}
