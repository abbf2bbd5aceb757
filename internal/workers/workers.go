package workers

import (
	"os"
	"runtime"
	"strconv"
)

// Count sizes a worker pool from the CPUs actually available to the
// process. GOMAXPROCS tracks container CPU limits (Go 1.19+), where
// runtime.NumCPU still reports the host count.
//
// The multiplier scales per-CPU concurrency: image fetches are
// I/O-bound and tolerate more workers than CPUs. limit caps the pool;
// 0 means uncapped. PRELOAD_WORKERS overrides the computed count.
func Count(multiplier float64, limit int) int {
	if override := os.Getenv("PRELOAD_WORKERS"); override != "" {
		if count, err := strconv.Atoi(override); err == nil && count > 0 {
			if limit > 0 && count > limit {
				return limit
			}
			return count
		}
	}

	available := runtime.GOMAXPROCS(0)

	workers := int(float64(available) * multiplier)

	if workers < 1 {
		workers = 1
	}
	if limit > 0 && workers > limit {
		workers = limit
	}

	return workers
}

// ForIO returns the pool size for I/O-bound work (2 workers per CPU):
// upstream image fetches spend most of their time waiting on the
// network, so the pool runs wider than the CPU count.
func ForIO(limit int) int {
	return Count(2.0, limit)
}
