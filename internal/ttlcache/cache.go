package ttlcache

import (
	"context"
	"sort"
	"sync"
	"time"
)

// DefaultTTL is used when Set is called with a zero TTL.
const DefaultTTL = 30 * time.Second

// entry holds a cached value with its insertion and expiry times.
// The expiry invariant (expiresAt > timestamp) is enforced by Set.
type entry[T any] struct {
	data      T
	timestamp time.Time
	expiresAt time.Time
}

// call tracks a single in-flight computation shared by concurrent callers.
type call[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// Cache is a bounded in-memory cache with per-entry TTLs.
//
// Expired entries are removed lazily on Get/Has. When the entry count
// exceeds maxEntries, the oldest fifth (by insertion time) is evicted,
// matching the generational policy of the image cache.
type Cache[T any] struct {
	mu         sync.Mutex
	entries    map[string]entry[T]
	inflight   map[string]*call[T]
	defaultTTL time.Duration
	maxEntries int

	// now is swappable in tests to simulate clock advancement.
	now func() time.Time
}

// New creates a cache. A zero defaultTTL falls back to DefaultTTL;
// maxEntries <= 0 disables the size bound.
func New[T any](defaultTTL time.Duration, maxEntries int) *Cache[T] {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	return &Cache[T]{
		entries:    make(map[string]entry[T]),
		inflight:   make(map[string]*call[T]),
		defaultTTL: defaultTTL,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Set stores data under key for the given TTL (defaultTTL when ttl <= 0).
// An existing entry is overwritten wholesale.
func (c *Cache[T]) Set(key string, data T, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.entries[key] = entry[T]{
		data:      data,
		timestamp: now,
		expiresAt: now.Add(ttl),
	}
	c.evictLocked()
}

// Get returns the value for key if present and not expired.
// An expired entry is deleted on the spot.
func (c *Cache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	e, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	if c.now().After(e.expiresAt) {
		delete(c.entries, key)
		return zero, false
	}
	return e.data, true
}

// Has reports whether key is present and fresh, deleting it if expired.
func (c *Cache[T]) Has(key string) bool {
	_, ok := c.Get(key)
	return ok
}

// Delete removes key if present.
func (c *Cache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear empties the cache.
func (c *Cache[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry[T])
}

// Size reports the number of stored entries, including any not yet
// swept expired ones.
func (c *Cache[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// GetOrCompute returns the cached value for key, or runs fn to compute
// and store it. Concurrent callers for the same key share one in-flight
// fn invocation; all of them receive its result. Errors are not cached.
func (c *Cache[T]) GetOrCompute(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	c.mu.Lock()
	if e, ok := c.entries[key]; ok && !c.now().After(e.expiresAt) {
		c.mu.Unlock()
		return e.data, nil
	}
	if cl, ok := c.inflight[key]; ok {
		c.mu.Unlock()
		select {
		case <-cl.done:
			return cl.val, cl.err
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
	cl := &call[T]{done: make(chan struct{})}
	c.inflight[key] = cl
	c.mu.Unlock()

	cl.val, cl.err = fn(ctx)

	c.mu.Lock()
	delete(c.inflight, key)
	if cl.err == nil {
		if ttl <= 0 {
			ttl = c.defaultTTL
		}
		now := c.now()
		c.entries[key] = entry[T]{data: cl.val, timestamp: now, expiresAt: now.Add(ttl)}
		c.evictLocked()
	}
	c.mu.Unlock()
	close(cl.done)

	return cl.val, cl.err
}

// evictLocked drops the oldest fifth of entries by insertion time once
// the count exceeds maxEntries. Caller must hold c.mu.
func (c *Cache[T]) evictLocked() {
	if c.maxEntries <= 0 || len(c.entries) <= c.maxEntries {
		return
	}

	type aged struct {
		key string
		ts  time.Time
	}
	all := make([]aged, 0, len(c.entries))
	for k, e := range c.entries {
		all = append(all, aged{k, e.timestamp})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ts.Before(all[j].ts) })

	drop := c.maxEntries / 5
	if drop < 1 {
		drop = 1
	}
	for i := 0; i < drop && i < len(all); i++ {
		delete(c.entries, all[i].key)
	}
}
