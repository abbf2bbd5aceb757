// Package memory configures the Go runtime memory limit from
// container limits.
//
// Image enhancement decodes full frames into memory, so an
// unconstrained heap inside a memory-limited container risks OOM
// kills during bursts. ConfigureFromEnv sets GOMEMLIMIT to a fraction
// of the container limit (passed via the Kubernetes Downward API as
// MEMORY_LIMIT), leaving headroom for decode buffers and the page
// cache.
package memory
