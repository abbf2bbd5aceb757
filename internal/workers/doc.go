// Package workers sizes worker pools for containerized deployments.
//
// The cache preloader fans out upstream image fetches across a bounded
// pool. Sizing that pool from runtime.NumCPU overshoots in containers,
// where cgroup CPU limits apply but NumCPU still reports the host's
// core count; GOMAXPROCS tracks the cgroup limit (Go 1.19+), so the
// helpers here derive counts from it instead:
//
//	sem := make(chan struct{}, workers.ForIO(16))
//
// Fetches are network-bound, so ForIO runs two workers per available
// CPU, capped by the caller. PRELOAD_WORKERS overrides the computed
// count when a deployment needs manual tuning.
package workers
