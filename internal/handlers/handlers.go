package handlers

import (
	"context"
	"time"

	"image-resolver/internal/enhance"
	"image-resolver/internal/imagecache"
	"image-resolver/internal/metrics"
	"image-resolver/internal/resolver"
)

// RecordCounter is the slice of the database the stats endpoints need.
type RecordCounter interface {
	CountRecords(ctx context.Context) (int64, error)
}

type Handlers struct {
	db        RecordCounter
	resolver  *resolver.Resolver
	cache     *imagecache.Manager
	enhancer  *enhance.Enhancer
	startTime time.Time
}

func New(db RecordCounter, res *resolver.Resolver, cache *imagecache.Manager, enhancer *enhance.Enhancer) *Handlers {
	return &Handlers{
		db:        db,
		resolver:  res,
		cache:     cache,
		enhancer:  enhancer,
		startTime: time.Now(),
	}
}

// GetStats implements metrics.StatsProvider for the gauge collector.
func (h *Handlers) GetStats() metrics.Stats {
	cacheStats := h.cache.Stats()

	stats := metrics.Stats{
		CacheEntries:       cacheStats.Entries,
		CacheBytes:         cacheStats.TotalBytes,
		EnhancementEntries: h.enhancer.Size(),
	}

	if h.db != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if count, err := h.db.CountRecords(ctx); err == nil {
			stats.ResolutionRecords = int(count)
		}
	}

	return stats
}
