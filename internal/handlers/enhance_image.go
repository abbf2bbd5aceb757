package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"image-resolver/internal/enhance"
	"image-resolver/internal/imagecache"
	"image-resolver/internal/logging"
)

// EnhanceImage serves an enhanced rendition of an upstream image. The
// source bytes come through the image cache, so repeated enhancements
// of the same URL hit neither the network nor the pipeline.
//
// Query parameters:
//   - url:     the upstream image URL (required)
//   - max:     output bound in pixels (optional)
//   - quality: JPEG quality for already-large sources (optional)
func (h *Handlers) EnhanceImage(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		writeJSONError(w, "url is required", http.StatusBadRequest)
		return
	}

	opts := enhance.Options{
		MaxDimension: queryInt(r, "max"),
		Quality:      queryInt(r, "quality"),
	}

	fetched, err := h.cache.Fetch(r.Context(), url)
	if err != nil {
		if errors.Is(err, imagecache.ErrUncachedClass) {
			writeJSONError(w, "url is not a cacheable image", http.StatusBadRequest)
			return
		}
		logging.Warn("Enhance source fetch failed for %s: %v", url, err)
		writeJSONError(w, "upstream unavailable and no cached copy", http.StatusServiceUnavailable)
		return
	}

	// A non-200 upstream body is an error page, not an image; pass it
	// through untouched rather than feeding it to the pipeline.
	if fetched.StatusCode != http.StatusOK {
		w.Header().Set("Content-Type", fetched.ContentType)
		w.Header().Set("Content-Length", strconv.Itoa(len(fetched.Body)))
		w.WriteHeader(fetched.StatusCode)
		if _, err := w.Write(fetched.Body); err != nil {
			logging.Debug("Failed to write passthrough response: %v", err)
		}
		return
	}

	result, err := h.enhancer.Process(r.Context(), url, fetched.ContentType, fetched.Body, opts)
	if err != nil {
		writeJSONError(w, "enhancement canceled", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", result.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Data)))
	w.Header().Set("X-Enhance-Path", string(result.Path))
	w.Header().Set("Cache-Control", "public, max-age=86400")

	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(result.Data); err != nil {
		logging.Debug("Failed to write enhanced image response: %v", err)
	}
}

func queryInt(r *http.Request, name string) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0
	}
	return v
}
