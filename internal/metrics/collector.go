package metrics

import (
	"time"

	"image-resolver/internal/logging"
)

// StatsProvider supplies the gauges the collector publishes.
type StatsProvider interface {
	GetStats() Stats
}

// Stats holds the current cache and store sizes.
type Stats struct {
	CacheEntries       int
	CacheBytes         int64
	EnhancementEntries int
	ResolutionRecords  int
}

// Collector periodically polls a StatsProvider and updates the
// corresponding Prometheus gauges.
type Collector struct {
	statsProvider StatsProvider
	interval      time.Duration
	stopChan      chan struct{}
}

// NewCollector creates a collector polling provider every interval.
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		interval:      interval,
		stopChan:      make(chan struct{}),
	}
}

// Start begins the collection loop.
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop ends the collection loop.
func (c *Collector) Stop() {
	close(c.stopChan)
}

func (c *Collector) collectLoop() {
	// Collect immediately on start
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	if c.statsProvider == nil {
		return
	}

	stats := c.statsProvider.GetStats()

	ImageCacheEntries.Set(float64(stats.CacheEntries))
	ImageCacheSizeBytes.Set(float64(stats.CacheBytes))
	EnhancementCacheEntries.Set(float64(stats.EnhancementEntries))
	DBRecordsTotal.Set(float64(stats.ResolutionRecords))

	logging.Debug("Metrics collected: cache entries=%d bytes=%d enhanced=%d records=%d",
		stats.CacheEntries, stats.CacheBytes, stats.EnhancementEntries, stats.ResolutionRecords)
}
