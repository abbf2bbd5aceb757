package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// apiClient is a thin wrapper over the server's admin API.
type apiClient struct {
	baseURL string
	client  *http.Client
}

func newAPIClient(baseURL string) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
	}
}

// cacheStats mirrors the /api/cache/stats payload.
type cacheStats struct {
	Entries            int    `json:"entries"`
	TotalBytes         int64  `json:"totalBytes"`
	Hits               uint64 `json:"hits"`
	Misses             uint64 `json:"misses"`
	Evictions          uint64 `json:"evictions"`
	StaleServed        uint64 `json:"staleServed"`
	EnhancementEntries int    `json:"enhancementEntries"`
	ResolutionEntries  int    `json:"resolutionEntries"`
}

// resolveResult mirrors the /api/resolve payload.
type resolveResult struct {
	URL      string `json:"url"`
	Source   string `json:"source"`
	Repaired bool   `json:"repaired"`
}

func (c *apiClient) CacheStats(ctx context.Context) (*cacheStats, error) {
	var stats cacheStats
	if err := c.getJSON(ctx, "/api/cache/stats", &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (c *apiClient) ClearCache(ctx context.Context) (int64, error) {
	var resp struct {
		Status     string `json:"status"`
		BytesFreed int64  `json:"bytesFreed"`
	}
	if err := c.postJSON(ctx, "/api/cache/clear", nil, &resp); err != nil {
		return 0, err
	}
	return resp.BytesFreed, nil
}

func (c *apiClient) Preload(ctx context.Context, urls []string) (int, error) {
	body := map[string][]string{"urls": urls}
	var resp struct {
		Requested int `json:"requested"`
		Loaded    int `json:"loaded"`
	}
	if err := c.postJSON(ctx, "/api/cache/preload", body, &resp); err != nil {
		return 0, err
	}
	return resp.Loaded, nil
}

func (c *apiClient) Resolve(ctx context.Context, telegramURL, fallbackURL, name, id string) (*resolveResult, error) {
	q := make([]string, 0, 4)
	for _, pair := range []struct{ key, val string }{
		{"telegram_url", telegramURL},
		{"fallback_url", fallbackURL},
		{"name", name},
		{"id", id},
	} {
		if pair.val != "" {
			q = append(q, pair.key+"="+url.QueryEscape(pair.val))
		}
	}

	var res resolveResult
	if err := c.getJSON(ctx, "/api/resolve?"+strings.Join(q, "&"), &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *apiClient) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *apiClient) postJSON(ctx context.Context, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *apiClient) do(req *http.Request, out interface{}) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
