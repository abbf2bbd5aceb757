package enhance

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/disintegration/imaging"

	"image-resolver/internal/logging"
	"image-resolver/internal/metrics"
)

// Path identifies which branch of the pipeline produced a result.
type Path string

const (
	// PathEnhance is the full upscale + sharpen + denoise pipeline.
	PathEnhance Path = "enhance"
	// PathOptimize is the plain fit-and-reencode branch.
	PathOptimize Path = "optimize"
	// PathPassthrough returns the source bytes unmodified.
	PathPassthrough Path = "passthrough"
)

// Result is a processed image. ContentType is image/jpeg except on the
// passthrough path, where the source bytes keep their original type.
type Result struct {
	Data        []byte
	ContentType string
	Path        Path
}

type call struct {
	done chan struct{}
	res  *Result
	err  error
}

// Enhancer runs the enhancement pipeline behind a URL-keyed cache.
// Entries never expire; the cache is cleared only explicitly. Concurrent
// requests for the same URL share one pipeline run.
type Enhancer struct {
	mu       sync.Mutex
	cache    map[string]*Result
	inflight map[string]*call
}

// New returns an empty Enhancer.
func New() *Enhancer {
	return &Enhancer{
		cache:    make(map[string]*Result),
		inflight: make(map[string]*call),
	}
}

// Process returns the processed form of src, computing and caching it
// on first request for url. Processing never fails outright: a broken
// enhancement pass degrades to the optimize pass, and a broken optimize
// pass returns the source bytes unmodified. The only returned error is
// context cancellation.
func (e *Enhancer) Process(ctx context.Context, url, contentType string, src []byte, opts Options) (*Result, error) {
	e.mu.Lock()
	if res, ok := e.cache[url]; ok {
		e.mu.Unlock()
		metrics.EnhancementCacheHits.Inc()
		return res, nil
	}
	if c, ok := e.inflight[url]; ok {
		e.mu.Unlock()
		select {
		case <-c.done:
			return c.res, c.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	c := &call{done: make(chan struct{})}
	e.inflight[url] = c
	e.mu.Unlock()

	c.res, c.err = e.process(ctx, url, contentType, src, opts.withDefaults())
	close(c.done)

	e.mu.Lock()
	delete(e.inflight, url)
	if c.err == nil {
		e.cache[url] = c.res
		metrics.EnhancementCacheEntries.Set(float64(len(e.cache)))
	}
	e.mu.Unlock()

	return c.res, c.err
}

func (e *Enhancer) process(ctx context.Context, url, contentType string, src []byte, opts Options) (*Result, error) {
	start := time.Now()

	img, err := imaging.Decode(bytes.NewReader(src))
	if err != nil {
		logging.Warn("Failed to decode image for enhancement (%s): %v", url, err)
		metrics.EnhancementsTotal.WithLabelValues(string(PathPassthrough), "decode_error").Inc()
		return &Result{Data: src, ContentType: contentType, Path: PathPassthrough}, nil
	}

	if NeedsEnhancement(img) {
		data, err := enhanceImage(ctx, img, opts)
		if err == nil {
			metrics.EnhancementsTotal.WithLabelValues(string(PathEnhance), "success").Inc()
			metrics.EnhancementDuration.WithLabelValues(string(PathEnhance)).Observe(time.Since(start).Seconds())
			return &Result{Data: data, ContentType: "image/jpeg", Path: PathEnhance}, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logging.Warn("Enhancement failed for %s, falling back to optimize: %v", url, err)
		metrics.EnhancementsTotal.WithLabelValues(string(PathEnhance), "error").Inc()
	}

	data, err := optimizeImage(img, opts)
	if err == nil {
		metrics.EnhancementsTotal.WithLabelValues(string(PathOptimize), "success").Inc()
		metrics.EnhancementDuration.WithLabelValues(string(PathOptimize)).Observe(time.Since(start).Seconds())
		return &Result{Data: data, ContentType: "image/jpeg", Path: PathOptimize}, nil
	}
	logging.Warn("Optimize failed for %s, returning original bytes: %v", url, err)
	metrics.EnhancementsTotal.WithLabelValues(string(PathOptimize), "error").Inc()
	return &Result{Data: src, ContentType: contentType, Path: PathPassthrough}, nil
}

// ClearCache drops every cached result.
func (e *Enhancer) ClearCache() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cache = make(map[string]*Result)
	metrics.EnhancementCacheEntries.Set(0)
}

// Size returns the number of cached results.
func (e *Enhancer) Size() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.cache)
}
