package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"image-resolver/internal/imagecache"
	"image-resolver/internal/logging"
)

// GetImage proxies image bytes through the cache.
//
// Query parameters:
//   - url: the upstream image URL (required)
//
// The X-Cache response header reports HIT, MISS, or STALE.
func (h *Handlers) GetImage(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		writeJSONError(w, "url is required", http.StatusBadRequest)
		return
	}

	result, err := h.cache.Fetch(r.Context(), url)
	if err != nil {
		if errors.Is(err, imagecache.ErrUncachedClass) {
			writeJSONError(w, "url is not a cacheable image", http.StatusBadRequest)
			return
		}
		logging.Warn("Image fetch failed for %s: %v", url, err)
		writeJSONError(w, "upstream unavailable and no cached copy", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", result.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Body)))
	w.Header().Set("X-Cache", cacheState(result))
	if result.StatusCode == http.StatusOK {
		// Clients may cache aggressively; the proxy handles staleness.
		w.Header().Set("Cache-Control", "public, max-age=86400")
	}

	// Non-200 upstream responses pass through with their own status.
	w.WriteHeader(result.StatusCode)
	if _, err := w.Write(result.Body); err != nil {
		logging.Debug("Failed to write image response: %v", err)
	}
}

func cacheState(result *imagecache.Result) string {
	switch {
	case result.Stale:
		return "STALE"
	case result.FromCache:
		return "HIT"
	default:
		return "MISS"
	}
}
