package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_resolver_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "image_resolver_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "image_resolver_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Image cache metrics
var (
	ImageCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "image_resolver_image_cache_hits_total",
			Help: "Total number of image cache hits",
		},
	)

	ImageCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "image_resolver_image_cache_misses_total",
			Help: "Total number of image cache misses",
		},
	)

	ImageCacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "image_resolver_image_cache_evictions_total",
			Help: "Total number of image cache entries removed by the eviction sweep",
		},
	)

	ImageCacheStaleServed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "image_resolver_image_cache_stale_served_total",
			Help: "Total number of expired cache entries served after a network failure",
		},
	)

	ImageCacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "image_resolver_image_cache_entries",
			Help: "Current number of cached image entries",
		},
	)

	ImageCacheSizeBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "image_resolver_image_cache_size_bytes",
			Help: "Total size of cached image bodies in bytes",
		},
	)

	ImageFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_resolver_image_fetches_total",
			Help: "Total number of upstream image fetches",
		},
		[]string{"status"}, // "success", "upstream_error", "error"
	)
)

// Resolution metrics
var (
	ResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_resolver_resolutions_total",
			Help: "Total number of image resolutions by final source",
		},
		[]string{"source", "status"},
	)

	ResolutionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "image_resolver_resolution_duration_seconds",
			Help:    "End-to-end image resolution duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	ResolutionRepairsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "image_resolver_resolution_repairs_total",
			Help: "Total number of stored image records repaired with a freshly scraped URL",
		},
	)

	ProbesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_resolver_probes_total",
			Help: "Total number of image validity probes",
		},
		[]string{"result"}, // "ok", "failed", "timeout"
	)
)

// Enhancement metrics
var (
	EnhancementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_resolver_enhancements_total",
			Help: "Total number of enhancement pipeline runs",
		},
		[]string{"path", "status"}, // path: "enhance", "optimize", "passthrough"
	)

	EnhancementDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "image_resolver_enhancement_duration_seconds",
			Help:    "Enhancement pipeline duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"path"},
	)

	EnhancementCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "image_resolver_enhancement_cache_hits_total",
			Help: "Total number of enhancement cache hits",
		},
	)

	EnhancementCacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "image_resolver_enhancement_cache_entries",
			Help: "Current number of cached enhanced images",
		},
	)
)

// Scraper metrics
var (
	ScraperRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_resolver_scraper_requests_total",
			Help: "Total number of metadata scraper requests",
		},
		[]string{"status"}, // "success", "no_image", "error"
	)

	ScraperRequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "image_resolver_scraper_request_duration_seconds",
			Help:    "Metadata scraper request duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_resolver_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "image_resolver_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"operation"},
	)

	DBRecordsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "image_resolver_db_resolution_records",
			Help: "Current number of persisted resolution records",
		},
	)
)

// Application info
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "image_resolver_app_info",
			Help: "Application build information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo records build information as a constant gauge.
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
