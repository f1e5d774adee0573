// Package fetcher retrieves news items from RSS feeds and Common Crawl and writes them as raw documents.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"colnews/internal/config"
	"colnews/pkg/utils"
)

// ErrUnexpectedStatusCode indicates an HTTP response with unexpected status.
var ErrUnexpectedStatusCode = errors.New("unexpected status code")

// defaultMaxBodyBytes bounds every response body read by the scraper.
const defaultMaxBodyBytes = 32 << 20

// Scraper performs GET requests with a config-driven timeout and retry policy.
type Scraper struct {
	client       *http.Client
	retryPolicy  *config.RetryPolicy
	userAgent    string
	maxBodyBytes int64
}

// NewScraperWithConfig creates a scraper with a custom retry policy and user agent.
func NewScraperWithConfig(retryPolicy *config.RetryPolicy, userAgent string) *Scraper {
	return &Scraper{
		client: &http.Client{
			Timeout: retryPolicy.GetTimeout(),
		},
		retryPolicy:  retryPolicy,
		userAgent:    userAgent,
		maxBodyBytes: defaultMaxBodyBytes,
	}
}

// WithTimeout returns a copy of the scraper using a different request timeout.
func (s *Scraper) WithTimeout(timeout time.Duration) *Scraper {
	cp := *s
	cp.client = &http.Client{Timeout: timeout, Transport: s.client.Transport}

	return &cp
}

// FetchWithMetrics returns (body, statusCode, duration, error). 200 and 206 are successes.
func (s *Scraper) FetchWithMetrics(ctx context.Context, url string, headers map[string]string) ([]byte, int, time.Duration, error) {
	var lastErr error

	var lastStatusCode int

	totalDuration := time.Duration(0)

	for attempt := 1; attempt <= s.retryPolicy.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := sleepCtx(ctx, s.retryPolicy.GetRetryDelay(attempt)); err != nil {
				return nil, lastStatusCode, totalDuration, err
			}
		}

		startTime := time.Now()

		body, status, err := s.do(ctx, url, headers)
		totalDuration += time.Since(startTime)
		lastStatusCode = status

		if err == nil {
			return body, status, totalDuration, nil
		}

		lastErr = fmt.Errorf("request failed (attempt %d/%d): %w", attempt, s.retryPolicy.MaxAttempts, err)

		if ctx.Err() != nil || (status != 0 && !isRetryableStatus(status)) {
			break
		}
	}

	return nil, lastStatusCode, totalDuration, lastErr
}

// Fetch returns the body of url.
func (s *Scraper) Fetch(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	body, _, _, err := s.FetchWithMetrics(ctx, url, headers)

	return body, err
}

func (s *Scraper) do(ctx context.Context, url string, headers map[string]string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header = utils.BuildHeaders(s.userAgent, headers)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

		return nil, resp.StatusCode, fmt.Errorf("%w: %d", ErrUnexpectedStatusCode, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBodyBytes))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}

	return body, resp.StatusCode, nil
}

// isRetryableStatus determines if we should retry based on HTTP status code.
func isRetryableStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusServiceUnavailable,
		http.StatusGatewayTimeout,
		http.StatusTooManyRequests,
		http.StatusRequestTimeout,
		http.StatusBadGateway:
		return true
	}

	return false
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
