package avatar

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"
)

const (
	// DefaultSize is the avatar dimension requested when the caller
	// does not specify one.
	DefaultSize = 800

	// avatarHost is the external avatar-rendering service. IsRealImage
	// must reject every URL FallbackURL produces, so the host lives
	// here next to both.
	avatarHost = "ui-avatars.com"

	// fallbackName replaces titles that sanitize down to nothing.
	fallbackName = "Grupo sem nome"

	maxTitleLength = 100
)

// palette holds the background colors an avatar can get. The color is
// picked by title length so the same group always renders the same.
var palette = []string{
	"3b82f6", "8b5cf6", "f59e0b", "ef4444", "10b981",
	"6366f1", "f97316", "ec4899", "06b6d4", "84cc16",
}

// SanitizeTitle normalizes a group title for display and avatar
// generation: zero-width characters stripped, whitespace collapsed,
// length capped. Empty results fall back to a placeholder name.
func SanitizeTitle(title string) string {
	var b strings.Builder
	for _, r := range title {
		switch {
		case r >= '\u200b' && r <= '\u200d', r == '\ufeff':
			// zero-width characters
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		case unicode.IsControl(r):
		default:
			b.WriteRune(r)
		}
	}

	sanitized := strings.Join(strings.Fields(b.String()), " ")
	if sanitized == "" {
		return fallbackName
	}

	runes := []rune(sanitized)
	if len(runes) > maxTitleLength {
		sanitized = strings.TrimSpace(string(runes[:maxTitleLength])) + "..."
	}
	return sanitized
}

// Initials extracts up to two ASCII alphanumeric initials from a
// sanitized title, uppercased. Returns "?" when no usable character
// exists (e.g. emoji-only names).
func Initials(name string) string {
	var b strings.Builder
	for _, word := range strings.Fields(SanitizeTitle(name)) {
		r := []rune(word)[0]
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(unicode.ToUpper(r))
			if b.Len() == 2 {
				break
			}
		}
	}
	if b.Len() == 0 {
		return "?"
	}
	return b.String()
}

// BackgroundColor deterministically picks a palette color for a title.
func BackgroundColor(name string) string {
	sanitized := SanitizeTitle(name)
	return palette[len([]rune(sanitized))%len(palette)]
}

// FallbackURL builds the external avatar-service URL for a group name.
// The produced URL is always rejected by IsRealImage, which keeps the
// resolver from mistaking a placeholder for an uploaded image.
func FallbackURL(name string, size int) string {
	if size <= 0 {
		size = DefaultSize
	}

	initials := Initials(name)
	background := BackgroundColor(name)

	u := url.URL{Scheme: "https", Host: avatarHost, Path: "/api/"}
	q := url.Values{}
	q.Set("name", initials)
	q.Set("background", background)
	q.Set("color", "ffffff")
	q.Set("size", fmt.Sprintf("%d", size))
	q.Set("font-size", "0.6")
	q.Set("format", "png")
	q.Set("rounded", "true")
	q.Set("bold", "true")
	u.RawQuery = q.Encode()
	return u.String()
}
