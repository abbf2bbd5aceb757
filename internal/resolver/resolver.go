// Package resolver picks one displayable image URL per Telegram group.
// Candidates are tried in order: the stored image record, a fresh
// scrape of the group's Open Graph metadata, a generated letter
// avatar, and finally a locally rendered placeholder. Every remote
// candidate is probed before being committed, so the resolved URL is
// known to serve a real image at resolution time.
package resolver

import (
	"context"
	"errors"
	"time"

	"image-resolver/internal/avatar"
	"image-resolver/internal/database"
	"image-resolver/internal/logging"
	"image-resolver/internal/metrics"
	"image-resolver/internal/scraper"
	"image-resolver/internal/ttlcache"
)

// Source identifies which step of the fallback chain produced a URL.
type Source string

const (
	SourceStored      Source = "stored"
	SourceTelegram    Source = "telegram"
	SourceAvatar      Source = "avatar"
	SourcePlaceholder Source = "placeholder"
)

// DefaultCacheTTL bounds how long a resolution is reused before the
// chain runs again.
const DefaultCacheTTL = 30 * time.Second

// Request describes one group to resolve.
type Request struct {
	TelegramURL string `json:"telegram_url"`
	FallbackURL string `json:"fallback_url"`
	GroupName   string `json:"group_name"`
	GroupID     string `json:"group_id"`
}

// Resolution is the outcome of a resolve: the final URL and where it
// came from. Repaired is set when a dead stored URL was replaced with
// a freshly scraped one.
type Resolution struct {
	URL      string `json:"url"`
	Source   Source `json:"source"`
	Repaired bool   `json:"repaired"`
}

// MetadataClient scrapes Open Graph metadata for a Telegram URL.
type MetadataClient interface {
	Analyze(ctx context.Context, telegramURL string) (*scraper.AnalyzeResult, error)
}

// ImageProber validates that a URL serves a decodable image.
type ImageProber interface {
	Check(ctx context.Context, rawURL string) error
}

// RecordStore persists resolved URLs across restarts.
type RecordStore interface {
	GetRecord(ctx context.Context, telegramURL string) (*database.ResolutionRecord, error)
	UpsertRecord(ctx context.Context, rec *database.ResolutionRecord) error
	DeleteRecord(ctx context.Context, telegramURL string) error
}

// Resolver runs the fallback chain. Results are cached briefly so a
// burst of requests for the same group resolves once, and persisted so
// they survive restarts.
type Resolver struct {
	store    RecordStore
	metadata MetadataClient
	prober   ImageProber
	cache    *ttlcache.Cache[Resolution]
}

// New creates a Resolver. store may be nil when persistence is
// disabled; resolution then relies on the in-memory cache alone.
func New(store RecordStore, metadata MetadataClient, prober ImageProber, cacheTTL time.Duration) *Resolver {
	if cacheTTL <= 0 {
		cacheTTL = DefaultCacheTTL
	}
	return &Resolver{
		store:    store,
		metadata: metadata,
		prober:   prober,
		cache:    ttlcache.New[Resolution](cacheTTL, 1000),
	}
}

// Resolve returns a displayable image URL for req. It never fails: the
// placeholder step is local and always succeeds. Concurrent calls for
// the same group share one chain run.
func (r *Resolver) Resolve(ctx context.Context, req Request) (Resolution, error) {
	return r.cache.GetOrCompute(ctx, cacheKey(req), 0, func(ctx context.Context) (Resolution, error) {
		start := time.Now()
		res := r.resolve(ctx, req)
		metrics.ResolutionDuration.Observe(time.Since(start).Seconds())
		metrics.ResolutionsTotal.WithLabelValues(string(res.Source), "success").Inc()
		return res, nil
	})
}

func cacheKey(req Request) string {
	if req.TelegramURL != "" {
		return req.TelegramURL
	}
	if req.GroupID != "" {
		return "id:" + req.GroupID
	}
	return "name:" + req.GroupName
}

func (r *Resolver) resolve(ctx context.Context, req Request) Resolution {
	storedDead := false

	// Step 1: a previously persisted record for this group.
	if rec := r.storedRecord(ctx, req.TelegramURL); rec != nil {
		if err := r.prober.Check(ctx, rec.ImageURL); err == nil {
			return Resolution{URL: rec.ImageURL, Source: SourceStored}
		}
		logging.Info("Stored record for %s is dead, removing: %s", req.TelegramURL, rec.ImageURL)
		r.deleteRecord(ctx, req.TelegramURL)
		storedDead = true
	}

	// Step 2: the fallback URL carried by the group record itself,
	// provided the classifier does not flag it as a generated avatar.
	if req.FallbackURL != "" && avatar.IsRealImage(req.FallbackURL) {
		if err := r.prober.Check(ctx, req.FallbackURL); err == nil {
			r.persist(ctx, req.TelegramURL, req.FallbackURL, SourceStored)
			return Resolution{URL: req.FallbackURL, Source: SourceStored}
		}
		logging.Debug("Fallback URL failed probe for %s: %s", req.TelegramURL, req.FallbackURL)
		storedDead = true
	}

	// Step 3: scrape the group page for its Open Graph image.
	if url := r.scrape(ctx, req.TelegramURL); url != "" {
		if err := r.prober.Check(ctx, url); err == nil {
			r.persist(ctx, req.TelegramURL, url, SourceTelegram)
			repaired := storedDead
			if repaired {
				metrics.ResolutionRepairsTotal.Inc()
				logging.Info("Repaired image for %s: %s", req.TelegramURL, url)
			}
			return Resolution{URL: url, Source: SourceTelegram, Repaired: repaired}
		}
	}

	// Step 4: a generated letter avatar. Probed like any other remote
	// URL; the avatar service being down should not produce broken
	// images.
	avatarURL := avatar.FallbackURL(req.GroupName, 0)
	if err := r.prober.Check(ctx, avatarURL); err == nil {
		return Resolution{URL: avatarURL, Source: SourceAvatar}
	}

	// Step 5: a locally rendered placeholder. Terminal, nothing to
	// probe.
	dataURL, err := avatar.PlaceholderDataURL(req.GroupName, 0)
	if err != nil {
		// Rendering is local and deterministic; if it somehow fails,
		// the avatar URL is still a better answer than nothing.
		logging.Error("Placeholder rendering failed for %q: %v", req.GroupName, err)
		return Resolution{URL: avatarURL, Source: SourceAvatar}
	}
	return Resolution{URL: dataURL, Source: SourcePlaceholder}
}

// storedRecord is a soft lookup: storage failures degrade to a cache
// miss.
func (r *Resolver) storedRecord(ctx context.Context, telegramURL string) *database.ResolutionRecord {
	if r.store == nil || telegramURL == "" {
		return nil
	}
	rec, err := r.store.GetRecord(ctx, telegramURL)
	if err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			logging.Warn("Record lookup failed for %s: %v", telegramURL, err)
		}
		return nil
	}
	return rec
}

func (r *Resolver) persist(ctx context.Context, telegramURL, imageURL string, source Source) {
	if r.store == nil || telegramURL == "" {
		return
	}
	rec := &database.ResolutionRecord{
		TelegramURL: telegramURL,
		ImageURL:    imageURL,
		Source:      string(source),
		ResolvedAt:  time.Now().UTC(),
	}
	if err := r.store.UpsertRecord(ctx, rec); err != nil {
		logging.Warn("Failed to persist resolution for %s: %v", telegramURL, err)
	}
}

func (r *Resolver) deleteRecord(ctx context.Context, telegramURL string) {
	if r.store == nil {
		return
	}
	if err := r.store.DeleteRecord(ctx, telegramURL); err != nil {
		logging.Warn("Failed to delete dead record for %s: %v", telegramURL, err)
	}
}

// scrape asks the metadata service for the group's Open Graph image
// and wraps it in the resizing proxy. Scraper failures are soft.
func (r *Resolver) scrape(ctx context.Context, telegramURL string) string {
	if r.metadata == nil || telegramURL == "" {
		return ""
	}
	res, err := r.metadata.Analyze(ctx, telegramURL)
	if err != nil {
		logging.Debug("Scrape failed for %s: %v", telegramURL, err)
		return ""
	}
	if !res.OpenGraph.HasCustomImage || res.OpenGraph.Image == "" {
		return ""
	}
	if !avatar.IsRealImage(res.OpenGraph.Image) {
		return ""
	}
	return scraper.OptimizeURL(res.OpenGraph.Image)
}

// ClearCache drops cached resolutions, forcing the next request per
// group to run the chain again.
func (r *Resolver) ClearCache() {
	r.cache.Clear()
}

// CacheSize returns the number of cached resolutions.
func (r *Resolver) CacheSize() int {
	return r.cache.Size()
}
