// Package metrics declares the service's Prometheus metrics.
//
// All metrics are registered with the default registry at package load
// time using promauto. Expose them by mounting promhttp.Handler() on
// the metrics listener:
//
//	import "github.com/prometheus/client_golang/prometheus/promhttp"
//
//	mux.Handle("/metrics", promhttp.Handler())
//
// Call InitializeMetrics once at startup so counters with fixed label
// sets appear in the first scrape, and run a Collector to keep the
// size gauges current.
package metrics
