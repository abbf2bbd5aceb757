package imagecache

import (
	"crypto/md5"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"image-resolver/internal/logging"
)

// CacheVersion namespaces entries on disk. Bumping it invalidates the
// whole cache: old-version directories are swept on startup.
const CacheVersion = "images-v2"

// Meta is the sidecar metadata stored next to each cached body. CachedAt
// is the only staleness signal; upstream cache-control headers are
// ignored on purpose.
type Meta struct {
	URL         string    `json:"url"`
	CachedAt    time.Time `json:"cachedAt"`
	ContentType string    `json:"contentType"`
	StatusCode  int       `json:"statusCode"`
	Size        int64     `json:"size"`
}

// Entry is a cached response read back from disk.
type Entry struct {
	Meta Meta
	Body []byte
}

// Store persists cached image responses under a version-suffixed
// directory: one .body file and one .json sidecar per URL, keyed by
// the URL's md5.
type Store struct {
	dir string
	mu  sync.Mutex
}

// NewStore opens (creating if needed) the versioned cache directory
// under baseDir and removes stale sibling versions.
func NewStore(baseDir string) (*Store, error) {
	dir := filepath.Join(baseDir, CacheVersion)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	sweepOldVersions(baseDir)

	return &Store{dir: dir}, nil
}

// sweepOldVersions deletes sibling cache directories left behind by
// previous format versions. Runs once at startup.
func sweepOldVersions(baseDir string) {
	entries, err := os.ReadDir(baseDir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if !e.IsDir() || e.Name() == CacheVersion {
			continue
		}
		if strings.HasPrefix(e.Name(), "images-") {
			path := filepath.Join(baseDir, e.Name())
			logging.Info("Removing old image cache version: %s", e.Name())
			if err := os.RemoveAll(path); err != nil {
				logging.Warn("Failed to remove old cache %s: %v", path, err)
			}
		}
	}
}

func (s *Store) key(url string) string {
	return fmt.Sprintf("%x", md5.Sum([]byte(url)))
}

func (s *Store) bodyPath(url string) string {
	return filepath.Join(s.dir, s.key(url)+".body")
}

func (s *Store) metaPath(url string) string {
	return filepath.Join(s.dir, s.key(url)+".json")
}

// Put stores a response body and its metadata, overwriting any
// previous entry for the same URL.
func (s *Store) Put(meta Meta, body []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta.Size = int64(len(body))
	raw, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to marshal cache metadata: %w", err)
	}

	if err := os.WriteFile(s.bodyPath(meta.URL), body, 0o644); err != nil {
		return fmt.Errorf("failed to write cache body: %w", err)
	}
	if err := os.WriteFile(s.metaPath(meta.URL), raw, 0o644); err != nil {
		// Remove the orphaned body so Get never sees a half entry.
		os.Remove(s.bodyPath(meta.URL))
		return fmt.Errorf("failed to write cache metadata: %w", err)
	}
	return nil
}

// Get reads a cached entry. The second return is false on miss or on a
// corrupt entry (which is removed).
func (s *Store) Get(url string) (*Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(url)
}

func (s *Store) getLocked(url string) (*Entry, bool) {
	raw, err := os.ReadFile(s.metaPath(url))
	if err != nil {
		return nil, false
	}

	var meta Meta
	if err := json.Unmarshal(raw, &meta); err != nil {
		logging.Warn("Corrupt cache metadata for %s, dropping entry: %v", url, err)
		s.deleteLocked(url)
		return nil, false
	}

	body, err := os.ReadFile(s.bodyPath(url))
	if err != nil {
		logging.Warn("Missing cache body for %s, dropping entry", url)
		s.deleteLocked(url)
		return nil, false
	}

	return &Entry{Meta: meta, Body: body}, true
}

// Delete removes an entry if present.
func (s *Store) Delete(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteLocked(url)
}

func (s *Store) deleteLocked(url string) {
	os.Remove(s.bodyPath(url))
	os.Remove(s.metaPath(url))
}

// Metas returns the metadata of every entry, unordered.
func (s *Store) Metas() []Meta {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil
	}

	metas := make([]Meta, 0, len(entries)/2)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(s.dir, e.Name()))
		if err != nil {
			continue
		}
		var meta Meta
		if err := json.Unmarshal(raw, &meta); err != nil {
			continue
		}
		metas = append(metas, meta)
	}
	return metas
}

// Count reports the number of entries.
func (s *Store) Count() int {
	return len(s.Metas())
}

// TotalBytes reports the summed body size of all entries.
func (s *Store) TotalBytes() int64 {
	var total int64
	for _, m := range s.Metas() {
		total += m.Size
	}
	return total
}

// EvictOldest removes the n entries with the oldest CachedAt and
// returns how many were actually deleted.
func (s *Store) EvictOldest(n int) int {
	if n <= 0 {
		return 0
	}

	metas := s.Metas()
	sort.Slice(metas, func(i, j int) bool {
		return metas[i].CachedAt.Before(metas[j].CachedAt)
	})

	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for i := 0; i < n && i < len(metas); i++ {
		s.deleteLocked(metas[i].URL)
		deleted++
	}
	return deleted
}

// Clear removes every entry and returns the number of bytes freed.
func (s *Store) Clear() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read cache directory: %w", err)
	}

	var freed int64
	for _, e := range entries {
		path := filepath.Join(s.dir, e.Name())
		if info, err := e.Info(); err == nil {
			freed += info.Size()
		}
		if err := os.Remove(path); err != nil {
			logging.Warn("Failed to remove %s: %v", path, err)
		}
	}

	logging.Info("Cleared image cache: freed %d bytes", freed)
	return freed, nil
}
