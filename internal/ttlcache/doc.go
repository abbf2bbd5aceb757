// Package ttlcache provides a small bounded in-memory cache with
// per-entry TTLs and single-flight computation.
//
// It backs the resolver's short-lived result caching, replacing the
// unbounded check-then-store maps the service grew out of. Concurrent
// lookups for a missing key share one computation instead of each
// hitting the upstream source.
package ttlcache
