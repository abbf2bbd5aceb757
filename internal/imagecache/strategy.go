package imagecache

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Strategy names a freshness policy for a class of requests.
type Strategy string

const (
	// CacheFirst serves a fresh cached entry without touching the
	// network; expired entries are deleted and refetched.
	CacheFirst Strategy = "cache-first"
	// NetworkFirst always tries the network and falls back to any
	// cached entry, regardless of age, on failure.
	NetworkFirst Strategy = "network-first"
	// StaleWhileRevalidate serves whatever is cached immediately and
	// refreshes it in the background for the next request.
	StaleWhileRevalidate Strategy = "stale-while-revalidate"
)

func (s Strategy) valid() bool {
	switch s {
	case CacheFirst, NetworkFirst, StaleWhileRevalidate:
		return true
	}
	return false
}

// Duration wraps time.Duration so YAML configs can say "720h".
type Duration time.Duration

// UnmarshalYAML parses Go duration strings.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Rule maps a request class to a strategy. A URL matches when its path
// carries one of the extensions or the URL contains one of the host
// indicators.
type Rule struct {
	Name       string   `yaml:"name"`
	Strategy   Strategy `yaml:"strategy"`
	MaxAge     Duration `yaml:"maxAge"`
	Extensions []string `yaml:"extensions"`
	Hosts      []string `yaml:"hosts"`
}

// Table is an ordered strategy table. The first matching rule wins;
// unmatched URLs get no caching at all.
type Table struct {
	MaxEntries int    `yaml:"maxEntries"`
	Rules      []Rule `yaml:"rules"`
}

const (
	DefaultMaxAge     = Duration(30 * 24 * time.Hour)
	DefaultMaxEntries = 200

	// evictFraction of MaxEntries is dropped per cleanup sweep.
	evictFraction = 0.2
)

var imageExtPattern = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|gif|webp|svg)$`)

// imageHostIndicators flag URLs served by known image hosts even
// without a recognizable file extension.
var imageHostIndicators = []string{
	"ui-avatars.com",
	"cdn.",
	"images.",
	"img.",
	"photo",
	"avatar",
	"profile",
	"firebase",
	"imgbb.com",
	"wsrv.nl",
	"weserv.nl",
	"telesco.pe",
}

// DefaultTable returns the built-in strategy table: images cache-first
// for 30 days, everything else uncached.
func DefaultTable() *Table {
	return &Table{
		MaxEntries: DefaultMaxEntries,
		Rules: []Rule{
			{
				Name:     "images",
				Strategy: CacheFirst,
				MaxAge:   DefaultMaxAge,
				Hosts:    imageHostIndicators,
				Extensions: []string{
					".jpg", ".jpeg", ".png", ".gif", ".webp", ".svg",
				},
			},
		},
	}
}

// LoadTable reads a strategy table from a YAML file, validating rule
// strategies and filling zero max ages with the default.
func LoadTable(path string) (*Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read strategy config: %w", err)
	}

	var t Table
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("failed to parse strategy config: %w", err)
	}

	if t.MaxEntries <= 0 {
		t.MaxEntries = DefaultMaxEntries
	}
	for i := range t.Rules {
		r := &t.Rules[i]
		if !r.Strategy.valid() {
			return nil, fmt.Errorf("rule %q: unknown strategy %q", r.Name, r.Strategy)
		}
		if r.MaxAge <= 0 {
			r.MaxAge = DefaultMaxAge
		}
	}
	return &t, nil
}

// Classify returns the first rule matching rawURL, or nil when the URL
// belongs to no cached class.
func (t *Table) Classify(rawURL string) *Rule {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}
	pathname := strings.ToLower(u.Path)

	for i := range t.Rules {
		r := &t.Rules[i]
		for _, ext := range r.Extensions {
			if strings.HasSuffix(pathname, strings.ToLower(ext)) {
				return r
			}
		}
		for _, host := range r.Hosts {
			if strings.Contains(u.Hostname(), host) || strings.Contains(rawURL, host) {
				return r
			}
		}
	}
	return nil
}

// IsImageRequest reports whether rawURL looks like an image fetch,
// either by extension or by image-host indicator.
func IsImageRequest(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if imageExtPattern.MatchString(strings.ToLower(u.Path)) {
		return true
	}
	for _, host := range imageHostIndicators {
		if strings.Contains(u.Hostname(), host) || strings.Contains(rawURL, host) {
			return true
		}
	}
	return false
}
