package handlers

import (
	"encoding/json"
	"net/http"

	"image-resolver/internal/logging"
)

// CacheStatsResponse is the /api/cache/stats payload.
type CacheStatsResponse struct {
	Entries            int    `json:"entries"`
	TotalBytes         int64  `json:"totalBytes"`
	Hits               uint64 `json:"hits"`
	Misses             uint64 `json:"misses"`
	Evictions          uint64 `json:"evictions"`
	StaleServed        uint64 `json:"staleServed"`
	EnhancementEntries int    `json:"enhancementEntries"`
	ResolutionEntries  int    `json:"resolutionEntries"`
}

// GetCacheStats reports image cache counters and sizes.
func (h *Handlers) GetCacheStats(w http.ResponseWriter, _ *http.Request) {
	stats := h.cache.Stats()

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, CacheStatsResponse{
		Entries:            stats.Entries,
		TotalBytes:         stats.TotalBytes,
		Hits:               stats.Hits,
		Misses:             stats.Misses,
		Evictions:          stats.Evictions,
		StaleServed:        stats.StaleServe,
		EnhancementEntries: h.enhancer.Size(),
		ResolutionEntries:  h.resolver.CacheSize(),
	})
}

// ClearCache empties every cache layer: image bytes on disk, enhanced
// renditions, and in-memory resolutions.
func (h *Handlers) ClearCache(w http.ResponseWriter, _ *http.Request) {
	freed, err := h.cache.Clear()
	if err != nil {
		logging.Error("Cache clear failed: %v", err)
		writeJSONError(w, "failed to clear image cache", http.StatusInternalServerError)
		return
	}

	h.enhancer.ClearCache()
	h.resolver.ClearCache()

	logging.Info("Caches cleared (%d bytes freed)", freed)
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]interface{}{
		"status":     "cleared",
		"bytesFreed": freed,
	})
}

// PreloadRequest is the /api/cache/preload body.
type PreloadRequest struct {
	URLs []string `json:"urls"`
}

// PreloadCache warms the image cache with a list of URLs. Responds with
// how many fetched successfully; individual failures are not errors.
func (h *Handlers) PreloadCache(w http.ResponseWriter, r *http.Request) {
	var req PreloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if len(req.URLs) == 0 {
		writeJSONError(w, "urls is required", http.StatusBadRequest)
		return
	}
	const maxPreloadBatch = 100
	if len(req.URLs) > maxPreloadBatch {
		writeJSONError(w, "too many urls in one batch", http.StatusBadRequest)
		return
	}

	loaded := h.cache.Preload(r.Context(), req.URLs)

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]interface{}{
		"requested": len(req.URLs),
		"loaded":    loaded,
	})
}
