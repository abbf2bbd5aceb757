// Package main provides the entry point for the image-resolver server.
//
// Image Resolver is a caching image proxy for Telegram group
// directories. Given a group's t.me URL, stored image URL, or display
// name, it produces one URL that is known to serve a real image,
// falling back through persisted resolutions, fresh Open Graph
// scrapes, generated letter avatars, and a locally rendered
// placeholder.
//
// # Application Lifecycle
//
// The application follows a structured initialization sequence:
//
//  1. Configuration Loading: Reads environment variables and validates directories
//  2. Database Initialization: Opens the SQLite resolution store in WAL mode
//  3. Component Initialization:
//     - Image Cache: Disk-backed cache with per-class strategies
//     - Enhancement Pipeline: Upscaling and sharpening for low-res sources
//     - Scraper Client: Open Graph metadata service client (if configured)
//     - Prober: Validates candidate URLs before they are committed
//     - Resolver: Runs the fallback chain with a short-lived result cache
//     - Metrics Collector: Gathers Prometheus gauges
//  4. HTTP Server Setup: Configures routes, middleware, and starts serving
//  5. Graceful Shutdown: Handles SIGINT/SIGTERM, stops all components cleanly
//
// # Background Services
//
//   - Record Cleaner: Drops resolution records older than RECORD_MAX_AGE
//   - Metrics Collector: Updates Prometheus gauges every 15 seconds
//
// # HTTP Server
//
// The application runs two HTTP servers:
//
//  1. Main Server (default port 8080):
//     - Resolution endpoint (/api/resolve)
//     - Cached image delivery (/api/image)
//     - On-demand enhancement (/api/enhance)
//     - Cache administration (/api/cache/*)
//     - Health and version endpoints
//
//  2. Metrics Server (default port 9090, optional):
//     - Prometheus metrics endpoint (/metrics)
//
// # Environment Variables
//
// Configuration is through environment variables; see
// [image-resolver/internal/startup] for the full list. The important
// ones:
//
//   - CACHE_DIR: Directory for cached image bytes (default: /cache)
//   - DATABASE_DIR: Directory for the SQLite database (default: /database)
//   - SCRAPER_URL: Base URL of the metadata scraper service (optional)
//   - PORT, METRICS_PORT: HTTP listener ports
//   - LOG_LEVEL: Logging level (debug/info/warn/error)
//
// # Build Requirements
//
// The application requires CGO for SQLite:
//
//	go build -o image-resolver .
//
// # Related Packages
//
//   - [image-resolver/internal/resolver]: The image resolution fallback chain
//   - [image-resolver/internal/imagecache]: Disk-backed image cache
//   - [image-resolver/internal/enhance]: Image enhancement pipeline
//   - [image-resolver/internal/database]: SQLite resolution store
//   - [image-resolver/internal/handlers]: HTTP request handlers
//   - [image-resolver/internal/middleware]: HTTP middleware (logging, metrics, compression)
//   - [image-resolver/internal/startup]: Configuration and initialization
package main
