package dedup

import (
	"encoding/json"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/purell"
)

const (
	cacheFile = "seen_candidates.json"
	maxAge    = 30 * 24 * time.Hour
)

type seenEntry struct {
	URL       string `json:"url"`
	Timestamp int64  `json:"timestamp"`
}

// SeenCache remembers which candidate profiles earlier runs already saved.
// Entries older than 30 days are dropped on load.
type SeenCache struct {
	mu       sync.Mutex
	filePath string
	seen     map[string]int64
	now      func() time.Time
}

func NewSeenCache(cacheDir string) *SeenCache {
	return newSeenCache(cacheDir, time.Now)
}

func newSeenCache(cacheDir string, now func() time.Time) *SeenCache {
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		slog.Warn("⚠️ failed to create cache directory", "dir", cacheDir, "err", err)
	}
	c := &SeenCache{
		filePath: filepath.Join(cacheDir, cacheFile),
		seen:     make(map[string]int64),
		now:      now,
	}
	c.load()
	return c
}

// Key canonicalises a profile URL: lower-case host, no fragment, no query
// string (search tracking parameters differ per listing).
func Key(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return strings.TrimSpace(raw)
	}
	u.RawQuery = ""
	return purell.NormalizeURL(u,
		purell.FlagsSafe|
			purell.FlagsUsuallySafeNonGreedy|
			purell.FlagRemoveFragment|
			purell.FlagRemoveDuplicateSlashes,
	)
}

func (c *SeenCache) IsSeen(profileURL string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.seen[Key(profileURL)]
	return ok
}

// Add marks profile URLs as seen and persists the cache when it changed.
func (c *SeenCache) Add(profileURLs ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now().UnixMilli()
	changed := false
	for _, u := range profileURLs {
		if u == "" {
			continue
		}
		k := Key(u)
		if _, ok := c.seen[k]; !ok {
			c.seen[k] = now
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return c.save()
}

func (c *SeenCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}

func (c *SeenCache) load() {
	data, err := os.ReadFile(c.filePath)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("⚠️ failed to read seen cache", "path", c.filePath, "err", err)
		}
		return
	}

	var entries []seenEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		slog.Warn("⚠️ failed to parse seen cache", "path", c.filePath, "err", err)
		return
	}

	cutoff := c.now().Add(-maxAge).UnixMilli()
	for _, e := range entries {
		if e.Timestamp > cutoff {
			c.seen[Key(e.URL)] = e.Timestamp
		}
	}
	slog.Debug("📋 loaded seen candidates", "count", len(c.seen), "expired", len(entries)-len(c.seen))
}

func (c *SeenCache) save() error {
	entries := make([]seenEntry, 0, len(c.seen))
	for u, ts := range c.seen {
		entries = append(entries, seenEntry{URL: u, Timestamp: ts})
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	tmp := c.filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, c.filePath)
}
