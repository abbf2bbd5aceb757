// Package imagecache implements the caching image proxy: a disk-backed
// response store fronted by a configurable strategy table.
//
// The store keeps one body file plus one JSON metadata sidecar per URL
// under a version-suffixed directory; bumping CacheVersion invalidates
// everything on the next startup. The recorded CachedAt timestamp is
// the only staleness signal.
//
// The manager applies one of three strategies per request class
// (cache-first, network-first, stale-while-revalidate), declared in a
// YAML table instead of being copy-pasted per worker. Concurrent
// requests for one URL share a single upstream fetch, and a
// generational sweep drops the oldest fifth of entries once the count
// bound is exceeded.
package imagecache
