package handlers

import (
	"context"
	"net/http"
	"time"
)

// StatsResponse is the /api/stats payload: a single snapshot of every
// subsystem, convenient for dashboards that do not scrape Prometheus.
type StatsResponse struct {
	Uptime            string `json:"uptime"`
	CacheEntries      int    `json:"cacheEntries"`
	CacheBytes        int64  `json:"cacheBytes"`
	CacheHits         uint64 `json:"cacheHits"`
	CacheMisses       uint64 `json:"cacheMisses"`
	Enhancements      int    `json:"enhancements"`
	Resolutions       int    `json:"resolutions"`
	ResolutionRecords int64  `json:"resolutionRecords"`
}

// GetServerStats returns an aggregate statistics snapshot.
func (h *Handlers) GetServerStats(w http.ResponseWriter, r *http.Request) {
	cacheStats := h.cache.Stats()

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	records, _ := h.db.CountRecords(ctx)

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, StatsResponse{
		Uptime:            time.Since(h.startTime).Round(time.Second).String(),
		CacheEntries:      cacheStats.Entries,
		CacheBytes:        cacheStats.TotalBytes,
		CacheHits:         cacheStats.Hits,
		CacheMisses:       cacheStats.Misses,
		Enhancements:      h.enhancer.Size(),
		Resolutions:       h.resolver.CacheSize(),
		ResolutionRecords: records,
	})
}
