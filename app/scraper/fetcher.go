package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/time/rate"
)

const maxPageSize = 10 * 1024 * 1024

// StatusError reports a non-2xx response from the platform.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

// Fetcher downloads post pages with browser-like headers, throttled per platform.
type Fetcher struct {
	client   *http.Client
	settings PlatformSettings
	limiter  *rate.Limiter
}

func NewFetcher(client *http.Client, settings PlatformSettings) *Fetcher {
	setDefaults(&settings)
	if client == nil {
		client = &http.Client{}
	}
	return &Fetcher{
		client:   client,
		settings: settings,
		limiter:  rate.NewLimiter(rate.Limit(settings.RequestsPerSecond), settings.Burst),
	}
}

func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.settings.TimeoutDuration())
	defer cancel()

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if f.settings.UserAgent != "" {
		req.Header.Set("User-Agent", f.settings.UserAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", f.settings.AcceptLanguage)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read page body: %w", err)
	}

	return body, nil
}
