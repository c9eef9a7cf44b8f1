// Package buildcache persists processed post bodies between builds.
//
// The cache is a single JSON document mapping a post's path (relative to the
// posts directory) to the modification time and content fingerprint it was
// processed at, plus the transformer output. It is an internal format: a
// missing, unreadable or corrupt file is treated as empty, and deleting it
// simply forces a full rebuild.
package buildcache

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/inful/mdfp"

	"git.home.luguber.info/inful/marksite/internal/config"
	foundationerrors "git.home.luguber.info/inful/marksite/internal/foundation/errors"
	"git.home.luguber.info/inful/marksite/internal/logfields"
	"git.home.luguber.info/inful/marksite/internal/markdown"
)

// formatVersion is bumped whenever Entry or markdown.Result change shape.
const formatVersion = 1

// Entry is one cached post.
type Entry struct {
	ModTime     int64            `json:"mtime"`
	Fingerprint string           `json:"fingerprint,omitempty"`
	Result      *markdown.Result `json:"result"`
}

type document struct {
	Version int              `json:"version"`
	Options markdown.Options `json:"options"`
	Entries map[string]Entry `json:"entries"`
}

// Key identifies the state of a source file for validation.
type Key struct {
	ModTime     time.Time
	Fingerprint string
}

// Fingerprint hashes a post's raw front matter and body.
func Fingerprint(frontmatter []byte, body string) string {
	return mdfp.CalculateFingerprintFromParts(string(frontmatter), body)
}

// Cache is safe for concurrent Lookup/Put from collector workers.
type Cache struct {
	path    string
	mode    config.CacheValidation
	options markdown.Options
	logger  *slog.Logger

	mu      sync.Mutex
	entries map[string]Entry
	dirty   bool
	hits    int
	misses  int
}

// Load reads the cache at path. It never fails: problems are logged and an
// empty cache is returned. Entries produced with different transformer
// options are discarded.
func Load(path string, mode config.CacheValidation, opts markdown.Options, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Cache{
		path:    path,
		mode:    mode,
		options: opts,
		logger:  logger,
		entries: map[string]Entry{},
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Warn("Build cache unreadable, starting empty", logfields.Path(path), logfields.Error(err))
		}
		return c
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		logger.Warn("Build cache corrupt, starting empty", logfields.Path(path), logfields.Error(err))
		c.dirty = true
		return c
	}
	if doc.Version != formatVersion || doc.Options != opts {
		logger.Info("Build cache invalidated by settings change", logfields.Path(path))
		c.dirty = true
		return c
	}
	for rel, entry := range doc.Entries {
		if entry.Result != nil {
			c.entries[rel] = entry
		}
	}
	return c
}

// Lookup returns the cached output for rel when it is still valid for key.
func (c *Cache) Lookup(rel string, key Key) (*markdown.Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[rel]
	if ok && c.valid(entry, key) {
		c.hits++
		return entry.Result, true
	}
	c.misses++
	return nil, false
}

func (c *Cache) valid(entry Entry, key Key) bool {
	if c.mode == config.CacheValidationContent {
		return key.Fingerprint != "" && entry.Fingerprint == key.Fingerprint
	}
	return entry.ModTime == key.ModTime.UnixNano()
}

// Put replaces the entry for rel.
func (c *Cache) Put(rel string, key Key, result *markdown.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[rel] = Entry{
		ModTime:     key.ModTime.UnixNano(),
		Fingerprint: key.Fingerprint,
		Result:      result,
	}
	c.dirty = true
}

// Retain drops entries whose source file no longer exists.
func (c *Cache) Retain(present map[string]struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for rel := range c.entries {
		if _, ok := present[rel]; !ok {
			delete(c.entries, rel)
			c.dirty = true
		}
	}
}

// Stats returns the lookup counters since Load.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Save writes the cache atomically (temp file + rename). It is a no-op when
// nothing changed since Load.
func (c *Cache) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.dirty {
		return nil
	}

	data, err := json.Marshal(document{Version: formatVersion, Options: c.options, Entries: c.entries})
	if err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryCache, "failed to encode build cache").Build()
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o750); err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryCache, "failed to create cache directory").
			WithContext("path", c.path).
			Build()
	}

	tempPath := c.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0o600); err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryCache, "failed to write temporary cache file").
			WithContext("path", tempPath).
			Build()
	}
	if err := os.Rename(tempPath, c.path); err != nil {
		_ = os.Remove(tempPath)
		return foundationerrors.WrapError(err, foundationerrors.CategoryCache, "failed to replace cache file").
			WithContext("path", c.path).
			Build()
	}
	c.dirty = false
	return nil
}

// Clear deletes the cache file at path. A missing file is not an error.
func Clear(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, fmt.Sprintf("failed to remove cache file %s", path)).Build()
	}
	return nil
}
