// Package feed retrieves and decodes the current position of the tracked
// object from a remote JSON feed.
package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// DefaultSourceURL is the open-notify ISS position endpoint.
const DefaultSourceURL = "http://api.open-notify.org/iss-now.json"

// maxBodyBytes caps the feed response size.
const maxBodyBytes = 1 << 20

// Fetcher retrieves the raw position document over HTTP.
type Fetcher struct {
	sourceURL  string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewFetcher creates a Fetcher for sourceURL, falling back to DefaultSourceURL.
func NewFetcher(sourceURL string, timeout time.Duration, logger *slog.Logger) *Fetcher {
	if sourceURL == "" {
		sourceURL = DefaultSourceURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Fetcher{
		sourceURL:  sourceURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// SourceURL returns the configured source URL.
func (f *Fetcher) SourceURL() string {
	return f.sourceURL
}

// Fetch performs an HTTP GET and returns the body. All failures are
// reported as *FetchError.
func (f *Fetcher) Fetch(ctx context.Context) ([]byte, error) {
	body, err := f.fetch(ctx)
	if err != nil {
		return nil, &FetchError{Source: f.sourceURL, Err: err}
	}
	return body, nil
}

func (f *Fetcher) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.sourceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if len(body) > maxBodyBytes {
		return nil, errors.New("response exceeds 1 MiB byte limit")
	}

	f.logger.Debug("position feed fetched",
		"component", "feed",
		"status", resp.StatusCode,
		"bytes", len(body),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return body, nil
}
