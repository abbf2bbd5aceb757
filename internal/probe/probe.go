// Package probe checks whether a URL actually serves a decodable image.
// The resolver uses it to validate each candidate before committing to
// it, so a dead CDN link or an HTML error page never reaches a client.
package probe

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"time"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp" // webp decode support

	"image-resolver/internal/logging"
	"image-resolver/internal/metrics"
)

// DefaultTimeout bounds a single probe.
const DefaultTimeout = 8 * time.Second

// maxProbeBytes caps how much of the body is read; image headers sit in
// the first few KB, so there is no need to download the whole file.
const maxProbeBytes = 64 * 1024

// Prober validates candidate image URLs over HTTP.
type Prober struct {
	client  *http.Client
	timeout time.Duration
}

// New returns a Prober. A zero timeout uses DefaultTimeout.
func New(timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Prober{
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
	}
}

// Check reports whether rawURL serves a decodable image. A nil error
// means the URL is safe to hand to clients.
func (p *Prober) Check(ctx context.Context, rawURL string) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err := p.check(ctx, rawURL)
	switch {
	case err == nil:
		metrics.ProbesTotal.WithLabelValues("ok").Inc()
	case errors.Is(err, context.DeadlineExceeded):
		metrics.ProbesTotal.WithLabelValues("timeout").Inc()
	default:
		metrics.ProbesTotal.WithLabelValues("failed").Inc()
	}
	return err
}

func (p *Prober) check(ctx context.Context, rawURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("invalid probe URL: %w", err)
	}
	req.Header.Set("Accept", "image/*")

	resp, err := p.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("probe request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("probe returned status %d", resp.StatusCode)
	}

	// Decoding the header is the real test. Content-Type lies often
	// enough (error pages served as image/jpeg) that it is not trusted.
	cfg, _, err := image.DecodeConfig(io.LimitReader(resp.Body, maxProbeBytes))
	if err != nil {
		return fmt.Errorf("body is not a decodable image: %w", err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return fmt.Errorf("image has zero dimensions")
	}

	logging.Debug("Probe ok: %s (%dx%d)", rawURL, cfg.Width, cfg.Height)
	return nil
}
