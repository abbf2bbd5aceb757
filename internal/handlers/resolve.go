package handlers

import (
	"net/http"

	"image-resolver/internal/resolver"
)

// ResolveResponse is the /api/resolve payload.
type ResolveResponse struct {
	URL      string `json:"url"`
	Source   string `json:"source"`
	Repaired bool   `json:"repaired,omitempty"`
}

// ResolveImage resolves one group to a displayable image URL.
//
// Query parameters:
//   - telegram_url: the group's t.me URL
//   - fallback_url: the image URL stored on the group record, if any
//   - name:         the group's display name (drives avatar fallback)
//   - id:           the group's directory ID
//
// At least one of telegram_url, name, or id must be present.
func (h *Handlers) ResolveImage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := resolver.Request{
		TelegramURL: q.Get("telegram_url"),
		FallbackURL: q.Get("fallback_url"),
		GroupName:   q.Get("name"),
		GroupID:     q.Get("id"),
	}

	if req.TelegramURL == "" && req.GroupName == "" && req.GroupID == "" {
		writeJSONError(w, "telegram_url, name, or id is required", http.StatusBadRequest)
		return
	}

	res, err := h.resolver.Resolve(r.Context(), req)
	if err != nil {
		// Only context cancellation reaches here; the chain itself
		// always terminates at the placeholder.
		writeJSONError(w, "resolution canceled", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, ResolveResponse{
		URL:      res.URL,
		Source:   string(res.Source),
		Repaired: res.Repaired,
	})
}
