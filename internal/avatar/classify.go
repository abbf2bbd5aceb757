package avatar

import "strings"

// IsRealImage reports whether url points at a genuine uploaded or
// fetched group image, as opposed to a generated placeholder.
//
// Placeholder shapes rejected: the avatar service itself, inline SVG
// data URLs, and Telegram's generic userpic endpoint (initials on a
// colored circle, indistinguishable from our own fallback). Trusted
// hosts (telesco.pe, Firebase Storage, CDN domains) and everything
// else pass.
//
// The fail-open default is deliberate: uploaded images land on
// arbitrary hosts and a strict allowlist would blank them out.
func IsRealImage(url string) bool {
	if url == "" {
		return false
	}

	switch {
	case strings.Contains(url, avatarHost):
		return false
	case strings.HasPrefix(url, "data:image/svg+xml"):
		return false
	case strings.Contains(url, "t.me/i/userpic"):
		return false
	}

	return true
}
