package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"nflpickem/ingestion/internal/metrics"

	"github.com/rs/zerolog/log"
)

// ErrUpstream marks failures talking to a feed provider.
var ErrUpstream = errors.New("upstream feed error")

// StatusError is returned when a feed answers with a non-200 status.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("feed %s returned status %d: %s", e.URL, e.StatusCode, e.Body)
}

// Is makes errors.Is(err, ErrUpstream) true for status errors.
func (e *StatusError) Is(target error) bool {
	return target == ErrUpstream
}

// BodyCache stores raw feed bodies between fetches.
type BodyCache interface {
	GetBytes(ctx context.Context, key string) ([]byte, bool, error)
	SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Client fetches schedule and score feeds over HTTP
type Client struct {
	httpClient  *http.Client
	rateLimiter chan struct{} // Concurrent request semaphore
	maxRetries  int
	retryDelay  time.Duration
	userAgent   string

	cache    BodyCache
	cacheTTL time.Duration
}

// NewClient creates a feed client. maxRetries of 0 means a single attempt.
func NewClient(timeout time.Duration, maxRetries int) *Client {
	rateLimiter := make(chan struct{}, 8)
	for i := 0; i < cap(rateLimiter); i++ {
		rateLimiter <- struct{}{}
	}

	if maxRetries < 0 {
		maxRetries = 0
	}

	return &Client{
		rateLimiter: rateLimiter,
		maxRetries:  maxRetries,
		retryDelay:  1 * time.Second,
		userAgent:   "nflpickem-ingestion/1.0",
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// WithCache enables caching of CSV feed bodies for ttl. A zero ttl or nil
// cache leaves caching off.
func (c *Client) WithCache(cache BodyCache, ttl time.Duration) *Client {
	if cache == nil || ttl <= 0 {
		return c
	}
	c.cache = cache
	c.cacheTTL = ttl
	return c
}

// SetRetryDelay overrides the base backoff between attempts
func (c *Client) SetRetryDelay(d time.Duration) {
	c.retryDelay = d
}

// get performs a GET request with optional retry and concurrency limiting
func (c *Client) get(ctx context.Context, feed, rawURL string, params url.Values, accept string) ([]byte, error) {
	start := time.Now()

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff: 1s, 2s, 4s
			backoff := c.retryDelay * time.Duration(1<<uint(attempt-1))
			log.Info().
				Str("url", rawURL).
				Int("attempt", attempt).
				Dur("backoff", backoff).
				Msg("Retrying feed request after backoff")

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		body, retry, err := c.do(ctx, rawURL, params, accept, attempt)
		if err == nil {
			metrics.RecordFeedFetch(feed, "success", time.Since(start).Seconds())
			return body, nil
		}
		lastErr = err
		if !retry || ctx.Err() != nil {
			break
		}
	}

	metrics.RecordFeedFetch(feed, "error", time.Since(start).Seconds())
	return nil, lastErr
}

// do performs one attempt and reports whether a failure is worth retrying
func (c *Client) do(ctx context.Context, rawURL string, params url.Values, accept string, attempt int) ([]byte, bool, error) {
	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case <-c.rateLimiter:
	}
	defer func() { c.rateLimiter <- struct{}{} }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Cache-Control", "no-store")

	if len(params) > 0 {
		q := req.URL.Query()
		for key, values := range params {
			for _, v := range values {
				q.Add(key, v)
			}
		}
		req.URL.RawQuery = q.Encode()
	}

	log.Debug().
		Str("url", req.URL.String()).
		Int("attempt", attempt+1).
		Msg("Making feed request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("%w: request to %s failed: %w", ErrUpstream, rawURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("%w: failed to read response body: %w", ErrUpstream, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		log.Debug().
			Str("url", rawURL).
			Int("size", len(body)).
			Msg("Feed request successful")
		return body, false, nil

	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		log.Warn().
			Str("url", rawURL).
			Int("status", resp.StatusCode).
			Int("attempt", attempt+1).
			Msg("Received retryable feed status")
		return nil, true, &StatusError{URL: rawURL, StatusCode: resp.StatusCode, Body: truncate(body)}

	default:
		return nil, false, &StatusError{URL: rawURL, StatusCode: resp.StatusCode, Body: truncate(body)}
	}
}

func truncate(body []byte) string {
	const max = 256
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
