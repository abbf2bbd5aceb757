package imagecache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"image-resolver/internal/logging"
	"image-resolver/internal/metrics"
	"image-resolver/internal/workers"
)

// ErrUncachedClass marks URLs no strategy rule claims.
var ErrUncachedClass = errors.New("url matches no cache rule")

// maxBodySize caps a single cached response.
const maxBodySize = 20 << 20 // 20MB

// Result is a response served by the manager, either from cache or
// from the network.
type Result struct {
	Body        []byte
	ContentType string
	StatusCode  int
	FromCache   bool
	// Stale marks an expired entry served as a last resort after a
	// network failure.
	Stale bool
}

// Stats summarizes the cache contents and manager counters.
type Stats struct {
	Entries    int    `json:"entries"`
	TotalBytes int64  `json:"totalBytes"`
	Hits       uint64 `json:"hits"`
	Misses     uint64 `json:"misses"`
	Evictions  uint64 `json:"evictions"`
	StaleServe uint64 `json:"staleServed"`
}

// fetchCall is a shared in-flight fetch for one URL.
type fetchCall struct {
	done chan struct{}
	res  *Result
	err  error
}

// Manager fronts the disk store with the strategy table: it decides
// per URL whether to serve cached bytes, hit the network, or both.
// Concurrent requests for the same URL share a single upstream fetch.
type Manager struct {
	store  *Store
	table  *Table
	client *http.Client

	mu       sync.Mutex
	inflight map[string]*fetchCall

	statsMu sync.Mutex
	stats   Stats

	// now is swappable in tests.
	now func() time.Time
}

// NewManager creates a manager over store using table. A nil client
// gets a default with a 30 second timeout.
func NewManager(store *Store, table *Table, client *http.Client) *Manager {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if table == nil {
		table = DefaultTable()
	}
	return &Manager{
		store:    store,
		table:    table,
		client:   client,
		inflight: make(map[string]*fetchCall),
		now:      time.Now,
	}
}

// Fetch resolves url through its strategy rule. URLs outside every
// rule return ErrUncachedClass; callers decide whether to pass those
// through uncached.
func (m *Manager) Fetch(ctx context.Context, url string) (*Result, error) {
	rule := m.table.Classify(url)
	if rule == nil {
		return nil, ErrUncachedClass
	}

	switch rule.Strategy {
	case NetworkFirst:
		return m.networkFirst(ctx, url, rule)
	case StaleWhileRevalidate:
		return m.staleWhileRevalidate(ctx, url, rule)
	default:
		return m.cacheFirst(ctx, url, rule)
	}
}

// cacheFirst serves a fresh entry without network I/O, refetches on
// miss or expiry, and falls back to a stale entry when the network is
// down.
func (m *Manager) cacheFirst(ctx context.Context, url string, rule *Rule) (*Result, error) {
	var stale *Entry
	if entry, ok := m.store.Get(url); ok {
		if !m.expired(entry.Meta, rule) {
			logging.Debug("Cache hit: %s", url)
			m.countHit()
			return cachedResult(entry, false), nil
		}
		// Keep the expired entry in hand: a successful refetch
		// overwrites it, and a failed one can still serve it.
		logging.Debug("Cache entry expired, refetching: %s", url)
		stale = entry
	}
	m.countMiss()

	res, err := m.fetchAndCache(ctx, url)
	if err == nil {
		return res, nil
	}

	// Network down: a stale entry beats no image at all.
	if stale != nil {
		logging.Warn("Network fetch failed for %s, serving stale cache: %v", url, err)
		m.countStale()
		return cachedResult(stale, true), nil
	}
	return nil, err
}

// networkFirst prefers fresh bytes and degrades to however old a
// cached copy exists.
func (m *Manager) networkFirst(ctx context.Context, url string, _ *Rule) (*Result, error) {
	res, err := m.fetchAndCache(ctx, url)
	if err == nil {
		return res, nil
	}

	if entry, ok := m.store.Get(url); ok {
		m.countStale()
		return cachedResult(entry, true), nil
	}
	return nil, err
}

// staleWhileRevalidate serves any cached entry immediately and
// refreshes expired ones in the background.
func (m *Manager) staleWhileRevalidate(ctx context.Context, url string, rule *Rule) (*Result, error) {
	if entry, ok := m.store.Get(url); ok {
		m.countHit()
		if m.expired(entry.Meta, rule) {
			go func() {
				bg, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				if _, err := m.fetchAndCache(bg, url); err != nil {
					logging.Debug("Background revalidation failed for %s: %v", url, err)
				}
			}()
			return cachedResult(entry, true), nil
		}
		return cachedResult(entry, false), nil
	}

	m.countMiss()
	return m.fetchAndCache(ctx, url)
}

// fetchAndCache performs the deduplicated network fetch and, on a 200,
// persists the body and runs the eviction sweep.
func (m *Manager) fetchAndCache(ctx context.Context, url string) (*Result, error) {
	m.mu.Lock()
	if call, ok := m.inflight[url]; ok {
		m.mu.Unlock()
		select {
		case <-call.done:
			return call.res, call.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	call := &fetchCall{done: make(chan struct{})}
	m.inflight[url] = call
	m.mu.Unlock()

	call.res, call.err = m.doFetch(ctx, url)

	m.mu.Lock()
	delete(m.inflight, url)
	m.mu.Unlock()
	close(call.done)

	return call.res, call.err
}

func (m *Manager) doFetch(ctx context.Context, url string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid image url: %w", err)
	}
	// No cookies or auth ever accompany an image fetch.
	req.Header.Set("Accept", "image/*;q=0.9,*/*;q=0.5")

	resp, err := m.client.Do(req)
	if err != nil {
		metrics.ImageFetchesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("image fetch failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		metrics.ImageFetchesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to read image body: %w", err)
	}

	res := &Result{
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		StatusCode:  resp.StatusCode,
	}

	// Only clean 200s are worth keeping.
	if resp.StatusCode != http.StatusOK {
		metrics.ImageFetchesTotal.WithLabelValues("upstream_error").Inc()
		return res, nil
	}
	metrics.ImageFetchesTotal.WithLabelValues("success").Inc()

	meta := Meta{
		URL:         url,
		CachedAt:    m.now(),
		ContentType: res.ContentType,
		StatusCode:  resp.StatusCode,
	}
	if err := m.store.Put(meta, body); err != nil {
		logging.Warn("Failed to cache %s: %v", url, err)
		return res, nil
	}

	m.cleanup()
	return res, nil
}

// cleanup enforces the entry-count bound: past MaxEntries, the oldest
// fifth is dropped. Insertion order, not access order; refreshing an
// entry is what keeps it alive.
func (m *Manager) cleanup() {
	count := m.store.Count()
	if count <= m.table.MaxEntries {
		return
	}

	drop := int(float64(m.table.MaxEntries) * evictFraction)
	deleted := m.store.EvictOldest(drop)
	if deleted > 0 {
		logging.Info("Image cache sweep: removed %d of %d entries", deleted, count)
		m.statsMu.Lock()
		m.stats.Evictions += uint64(deleted)
		m.statsMu.Unlock()
		metrics.ImageCacheEvictions.Add(float64(deleted))
	}
}

// Preload fetches urls through the cache with an I/O-sized worker
// pool. Individual failures are logged and skipped.
func (m *Manager) Preload(ctx context.Context, urls []string) int {
	if len(urls) == 0 {
		return 0
	}

	sem := make(chan struct{}, workers.ForIO(16))
	var wg sync.WaitGroup
	var okMu sync.Mutex
	loaded := 0

	for _, u := range urls {
		wg.Add(1)
		sem <- struct{}{}
		go func(u string) {
			defer wg.Done()
			defer func() { <-sem }()

			if _, err := m.Fetch(ctx, u); err != nil {
				logging.Debug("Preload failed for %s: %v", u, err)
				return
			}
			okMu.Lock()
			loaded++
			okMu.Unlock()
		}(u)
	}
	wg.Wait()

	logging.Info("Preloaded %d/%d images", loaded, len(urls))
	return loaded
}

// Clear wipes the whole cache and returns bytes freed.
func (m *Manager) Clear() (int64, error) {
	return m.store.Clear()
}

// Stats returns a snapshot of cache contents and counters.
func (m *Manager) Stats() Stats {
	m.statsMu.Lock()
	s := m.stats
	m.statsMu.Unlock()

	s.Entries = m.store.Count()
	s.TotalBytes = m.store.TotalBytes()
	return s
}

func (m *Manager) expired(meta Meta, rule *Rule) bool {
	return m.now().Sub(meta.CachedAt) > time.Duration(rule.MaxAge)
}

func (m *Manager) countHit() {
	m.statsMu.Lock()
	m.stats.Hits++
	m.statsMu.Unlock()
	metrics.ImageCacheHits.Inc()
}

func (m *Manager) countMiss() {
	m.statsMu.Lock()
	m.stats.Misses++
	m.statsMu.Unlock()
	metrics.ImageCacheMisses.Inc()
}

func (m *Manager) countStale() {
	m.statsMu.Lock()
	m.stats.StaleServe++
	m.statsMu.Unlock()
	metrics.ImageCacheStaleServed.Inc()
}

func cachedResult(entry *Entry, stale bool) *Result {
	return &Result{
		Body:        entry.Body,
		ContentType: entry.Meta.ContentType,
		StatusCode:  entry.Meta.StatusCode,
		FromCache:   true,
		Stale:       stale,
	}
}
