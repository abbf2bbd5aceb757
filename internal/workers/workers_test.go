package workers

import (
	"runtime"
	"testing"
)

func TestCount(t *testing.T) {
	t.Setenv("PRELOAD_WORKERS", "")
	available := runtime.GOMAXPROCS(0)

	tests := []struct {
		name       string
		multiplier float64
		limit      int
		want       int
	}{
		{"one per cpu", 1.0, 0, available},
		{"two per cpu", 2.0, 0, available * 2},
		{"capped by limit", 2.0, 1, 1},
		{"zero multiplier floors at one", 0.0, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Count(tt.multiplier, tt.limit); got != tt.want {
				t.Errorf("Count(%v, %d) = %d, want %d", tt.multiplier, tt.limit, got, tt.want)
			}
		})
	}
}

func TestCountOverride(t *testing.T) {
	tests := []struct {
		name     string
		override string
		limit    int
		want     int
	}{
		{"override respected", "3", 0, 3},
		{"override capped by limit", "64", 4, 4},
		{"invalid override ignored", "lots", 0, runtime.GOMAXPROCS(0)},
		{"zero override ignored", "0", 0, runtime.GOMAXPROCS(0)},
		{"negative override ignored", "-2", 0, runtime.GOMAXPROCS(0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("PRELOAD_WORKERS", tt.override)
			if got := Count(1.0, tt.limit); got != tt.want {
				t.Errorf("Count(1.0, %d) with PRELOAD_WORKERS=%q = %d, want %d",
					tt.limit, tt.override, got, tt.want)
			}
		})
	}
}

func TestForIO(t *testing.T) {
	t.Setenv("PRELOAD_WORKERS", "")

	want := runtime.GOMAXPROCS(0) * 2
	if got := ForIO(0); got != want {
		t.Errorf("ForIO(0) = %d, want %d", got, want)
	}

	// A preload batch of a handful of URLs never needs a wide pool.
	if got := ForIO(2); got > 2 {
		t.Errorf("ForIO(2) = %d, want at most 2", got)
	}
}
