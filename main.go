package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"image-resolver/internal/database"
	"image-resolver/internal/enhance"
	"image-resolver/internal/handlers"
	"image-resolver/internal/imagecache"
	"image-resolver/internal/logging"
	"image-resolver/internal/memory"
	"image-resolver/internal/metrics"
	"image-resolver/internal/middleware"
	"image-resolver/internal/probe"
	"image-resolver/internal/resolver"
	"image-resolver/internal/scraper"
	"image-resolver/internal/startup"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	startTime := time.Now()

	// Configure the runtime memory limit before anything allocates
	memory.ConfigureFromEnv()

	// Load configuration
	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	// Initialize database
	dbStart := time.Now()
	db, err := database.New(context.Background(), config.DatabasePath)
	if err != nil {
		startup.LogFatal("Failed to initialize database: %v", err)
	}
	defer db.Close()
	startup.LogDatabaseInit(time.Since(dbStart))

	// Clean up expired resolution records periodically
	cleanCtx, stopCleaner := context.WithCancel(context.Background())
	go recordCleaner(cleanCtx, db, config.CleanInterval, config.RecordMaxAge)

	// Initialize image cache
	store, err := imagecache.NewStore(config.ImageCacheDir)
	if err != nil {
		startup.LogFatal("Failed to initialize image cache: %v", err)
	}
	table := imagecache.DefaultTable()
	if config.StrategyConfig != "" {
		table, err = imagecache.LoadTable(config.StrategyConfig)
		if err != nil {
			startup.LogFatal("Failed to load strategy config %s: %v", config.StrategyConfig, err)
		}
	}
	cache := imagecache.NewManager(store, table, nil)
	cacheStats := cache.Stats()
	startup.LogCacheInit(cacheStats.Entries, cacheStats.TotalBytes)

	// Initialize enhancement pipeline
	enhancer := enhance.New()

	// Initialize resolver chain
	var metadata resolver.MetadataClient
	if config.ScraperEnabled {
		metadata = scraper.NewClient(config.ScraperURL, config.ScraperTimeout)
	}
	prober := probe.New(config.ProbeTimeout)
	res := resolver.New(db, metadata, prober, config.ResolveCacheTTL)
	startup.LogResolverInit(config.ScraperEnabled, config.ResolveCacheTTL)

	// Initialize handlers
	h := handlers.New(db, res, cache, enhancer)

	// Setup router
	router := setupRouter(h)

	// Log routes dynamically
	startup.LogHTTPRoutes(router, config.LogHealthChecks)

	// Apply request ID middleware (innermost, so logging sees the ID)
	identified := middleware.RequestID(router)

	// Apply logging middleware
	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	logged := middleware.Logger(loggingConfig)(identified)

	// Apply metrics middleware
	measured := middleware.Metrics(middleware.DefaultMetricsConfig())(logged)

	// Apply compression middleware
	handler := middleware.Compression(middleware.DefaultCompressionConfig())(measured)

	// Start metrics server
	var collector *metrics.Collector
	if config.MetricsEnabled {
		metrics.InitializeMetrics()
		metrics.SetAppInfo(startup.Version, startup.Commit, startup.GoVersion)
		collector = metrics.NewCollector(h, 15*time.Second)
		collector.Start()
		go serveMetrics(config.MetricsPort)
	}

	// Create server
	srv := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start graceful shutdown handler
	go handleShutdown(srv, collector, stopCleaner, db)

	// Start server
	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		startup.LogFatal("Server error: %v", err)
	}
}

func setupRouter(h *handlers.Handlers) *mux.Router {
	r := mux.NewRouter()

	// Health check and version routes
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	// Resolution and image routes
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/resolve", h.ResolveImage).Methods("GET")
	api.HandleFunc("/image", h.GetImage).Methods("GET")
	api.HandleFunc("/enhance", h.EnhanceImage).Methods("GET")
	api.HandleFunc("/stats", h.GetServerStats).Methods("GET")

	// Cache administration routes
	api.HandleFunc("/cache/stats", h.GetCacheStats).Methods("GET")
	api.HandleFunc("/cache/clear", h.ClearCache).Methods("POST")
	api.HandleFunc("/cache/preload", h.PreloadCache).Methods("POST")

	return r
}

// recordCleaner drops resolution records older than maxAge on a fixed
// interval until ctx is canceled.
func recordCleaner(ctx context.Context, db *database.Database, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := db.CleanExpired(ctx, maxAge); err != nil {
				logging.Warn("Record cleanup failed: %v", err)
			}
		}
	}
}

func serveMetrics(port string) {
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(":"+port, metricsMux); err != nil {
		logging.Error("Metrics server error: %v", err)
	}
}

func handleShutdown(srv *http.Server, collector *metrics.Collector, stopCleaner context.CancelFunc, db *database.Database) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	startup.LogShutdownStep("Stopping background workers")
	stopCleaner()
	if collector != nil {
		collector.Stop()
	}
	startup.LogShutdownStepComplete("Background workers stopped")

	startup.LogShutdownStep("Draining HTTP connections")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("HTTP shutdown did not complete cleanly: %v", err)
	}
	startup.LogShutdownStepComplete("HTTP connections drained")

	startup.LogShutdownStep("Closing database")
	if err := db.Close(); err != nil {
		logging.Warn("Database close failed: %v", err)
	}
	startup.LogShutdownStepComplete("Database closed")

	startup.LogShutdownComplete()
	os.Exit(0)
}
