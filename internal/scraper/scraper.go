// Package scraper talks to the external Telegram metadata service. The
// service fetches a t.me page, extracts its Open Graph tags, and reports
// whether the group carries a custom photo. Responses are treated as
// soft signals: a failing or malformed response never aborts a
// resolution, it just removes the scrape step from the fallback chain.
package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"image-resolver/internal/logging"
	"image-resolver/internal/metrics"
)

// DefaultTimeout matches the upstream service's slow cold starts.
const DefaultTimeout = 60 * time.Second

const (
	retryAttempts = 3
	retryDelay    = 2 * time.Second
)

// OpenGraph carries the page metadata the scraper extracted.
type OpenGraph struct {
	Title          string `json:"title"`
	Description    string `json:"description"`
	Image          string `json:"image"`
	HasCustomImage bool   `json:"has_custom_image"`
}

// AnalyzeResult is the scraper's verdict on one Telegram URL.
type AnalyzeResult struct {
	Success                bool      `json:"success"`
	URL                    string    `json:"url"`
	FromCache              bool      `json:"from_cache"`
	OpenGraph              OpenGraph `json:"open_graph"`
	IsValidForRegistration bool      `json:"is_valid_for_registration"`
	Error                  string    `json:"error"`
}

type pendingCall struct {
	done chan struct{}
	res  *AnalyzeResult
	err  error
}

// Client calls the scraper service. Concurrent Analyze calls for the
// same URL share one request.
type Client struct {
	baseURL string
	client  *http.Client

	mu      sync.Mutex
	pending map[string]*pendingCall
}

// NewClient returns a Client for the scraper at baseURL. A zero timeout
// uses DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		pending: make(map[string]*pendingCall),
	}
}

// Analyze asks the scraper for the Open Graph metadata of telegramURL.
// Server-side failures are retried a few times before giving up.
func (c *Client) Analyze(ctx context.Context, telegramURL string) (*AnalyzeResult, error) {
	c.mu.Lock()
	if call, ok := c.pending[telegramURL]; ok {
		c.mu.Unlock()
		select {
		case <-call.done:
			return call.res, call.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	call := &pendingCall{done: make(chan struct{})}
	c.pending[telegramURL] = call
	c.mu.Unlock()

	call.res, call.err = c.analyze(ctx, telegramURL)
	close(call.done)

	c.mu.Lock()
	delete(c.pending, telegramURL)
	c.mu.Unlock()

	return call.res, call.err
}

func (c *Client) analyze(ctx context.Context, telegramURL string) (*AnalyzeResult, error) {
	start := time.Now()

	var lastErr error
	for attempt := 1; attempt <= retryAttempts; attempt++ {
		if attempt > 1 {
			logging.Debug("Retrying scraper request for %s (attempt %d/%d)", telegramURL, attempt, retryAttempts)
			select {
			case <-time.After(retryDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		res, retryable, err := c.doAnalyze(ctx, telegramURL)
		if err == nil {
			metrics.ScraperRequestDuration.Observe(time.Since(start).Seconds())
			if res.OpenGraph.Image == "" {
				metrics.ScraperRequestsTotal.WithLabelValues("no_image").Inc()
			} else {
				metrics.ScraperRequestsTotal.WithLabelValues("success").Inc()
			}
			return res, nil
		}
		lastErr = err
		if !retryable || ctx.Err() != nil {
			break
		}
	}

	metrics.ScraperRequestsTotal.WithLabelValues("error").Inc()
	return nil, lastErr
}

func (c *Client) doAnalyze(ctx context.Context, telegramURL string) (*AnalyzeResult, bool, error) {
	payload, err := json.Marshal(map[string]string{"url": telegramURL})
	if err != nil {
		return nil, false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/analyze", bytes.NewReader(payload))
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("scraper request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, true, fmt.Errorf("scraper returned status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("scraper returned status %d", resp.StatusCode)
	}

	var result AnalyzeResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, false, fmt.Errorf("failed to decode scraper response: %w", err)
	}
	if !result.Success {
		return nil, false, fmt.Errorf("scraper reported failure: %s", result.Error)
	}
	return &result, false, nil
}

// OptimizeURL wraps an image URL in the wsrv.nl resizing proxy,
// cropping to a 400px square with attention-based focus.
func OptimizeURL(imageURL string) string {
	if imageURL == "" {
		return ""
	}
	return "https://wsrv.nl/?url=" + url.QueryEscape(imageURL) + "&w=400&h=400&fit=cover&a=attention"
}
