// Package filecache implements the DomainCache port as a single JSON file whose
// modification time is the write timestamp.
package filecache

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	gojson "github.com/goccy/go-json"
	"github.com/natefinch/atomic"

	"github.com/ericfisherdev/stadatax/internal/domain/model"
	"github.com/ericfisherdev/stadatax/internal/domain/port/driven"
)

// DefaultTTL is how long a cached domain list is served.
const DefaultTTL = 7 * 24 * time.Hour

// Compile-time interface satisfaction check.
var _ driven.DomainCache = (*Cache)(nil)

// Cache stores the domain list at a fixed path.
type Cache struct {
	path string
	ttl  time.Duration
	now  func() time.Time
}

// New creates a Cache backed by the file at path. A non-positive ttl selects
// DefaultTTL.
func New(path string, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{path: path, ttl: ttl, now: time.Now}
}

// Path returns the backing file path.
func (c *Cache) Path() string { return c.path }

// Load reads the cached list. Every failure is reported as a miss.
func (c *Cache) Load(_ context.Context) (model.CacheEntry, bool) {
	info, err := os.Stat(c.path)
	if err != nil {
		return model.CacheEntry{}, false
	}

	entry := model.CacheEntry{WrittenAt: info.ModTime()}
	if entry.Age(c.now()) >= c.ttl {
		slog.Debug("domain cache expired", "path", c.path, "written_at", entry.WrittenAt)
		return model.CacheEntry{}, false
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		slog.Debug("domain cache unreadable", "path", c.path, "error", err)
		return model.CacheEntry{}, false
	}
	if err := gojson.Unmarshal(data, &entry.Domains); err != nil {
		slog.Debug("domain cache malformed", "path", c.path, "error", err)
		return model.CacheEntry{}, false
	}
	return entry, true
}

// Save writes domains to a temporary file and renames it over the cache file,
// so concurrent readers see either the old or the new list.
func (c *Cache) Save(_ context.Context, domains []model.Domain) error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}

	data, err := gojson.MarshalIndent(domains, "", "  ")
	if err != nil {
		return fmt.Errorf("encode domain cache: %w", err)
	}

	if err := atomic.WriteFile(c.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write domain cache: %w", err)
	}
	return nil
}

// Invalidate removes the cache file. A missing file is not an error.
func (c *Cache) Invalidate(_ context.Context) error {
	if err := os.Remove(c.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove domain cache: %w", err)
	}
	return nil
}
