package buildcache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/marksite/internal/config"
	"git.home.luguber.info/inful/marksite/internal/markdown"
)

var testOpts = markdown.Options{TableOfContents: true, ExcerptLength: 200}

func sampleResult() *markdown.Result {
	return &markdown.Result{
		HTML:        "<p>hi</p>\n",
		Excerpt:     "hi",
		ReadingTime: markdown.ReadingTime{Minutes: 1, Words: 1, Label: "1 min read"},
	}
}

func TestRoundTripMTime(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".marksite-cache.json")
	mtime := time.Date(2024, 3, 1, 10, 0, 0, 123456789, time.UTC)

	c := Load(path, config.CacheValidationMTime, testOpts, nil)
	_, ok := c.Lookup("a.md", Key{ModTime: mtime})
	require.False(t, ok)
	c.Put("a.md", Key{ModTime: mtime}, sampleResult())
	require.NoError(t, c.Save())

	reloaded := Load(path, config.CacheValidationMTime, testOpts, nil)
	got, ok := reloaded.Lookup("a.md", Key{ModTime: mtime})
	require.True(t, ok)
	assert.Equal(t, sampleResult(), got)

	_, ok = reloaded.Lookup("a.md", Key{ModTime: mtime.Add(time.Second)})
	assert.False(t, ok)

	hits, misses := reloaded.Stats()
	assert.Equal(t, 1, hits)
	assert.Equal(t, 1, misses)
}

func TestContentModeIgnoresMTime(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	fp := Fingerprint([]byte("title: A\n"), "body")

	c := Load(path, config.CacheValidationContent, testOpts, nil)
	c.Put("a.md", Key{ModTime: time.Unix(1, 0), Fingerprint: fp}, sampleResult())

	_, ok := c.Lookup("a.md", Key{ModTime: time.Unix(99, 0), Fingerprint: fp})
	assert.True(t, ok)
	_, ok = c.Lookup("a.md", Key{ModTime: time.Unix(1, 0), Fingerprint: Fingerprint([]byte("title: A\n"), "changed")})
	assert.False(t, ok)
}

func TestCorruptCacheIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	c := Load(path, config.CacheValidationMTime, testOpts, nil)
	assert.Equal(t, 0, c.Len())
	// Saving replaces the corrupt file with a valid one.
	require.NoError(t, c.Save())
	assert.Equal(t, 0, Load(path, config.CacheValidationMTime, testOpts, nil).Len())
}

func TestOptionsChangeInvalidates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	c := Load(path, config.CacheValidationMTime, testOpts, nil)
	c.Put("a.md", Key{ModTime: time.Unix(1, 0)}, sampleResult())
	require.NoError(t, c.Save())

	other := testOpts
	other.ExcerptLength = 50
	assert.Equal(t, 0, Load(path, config.CacheValidationMTime, other, nil).Len())
}

func TestRetainDropsDeletedFiles(t *testing.T) {
	c := Load(filepath.Join(t.TempDir(), "cache.json"), config.CacheValidationMTime, testOpts, nil)
	c.Put("keep.md", Key{ModTime: time.Unix(1, 0)}, sampleResult())
	c.Put("gone.md", Key{ModTime: time.Unix(1, 0)}, sampleResult())

	c.Retain(map[string]struct{}{"keep.md": {}})
	assert.Equal(t, 1, c.Len())
}

func TestSaveWithoutChangesIsNoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	require.NoError(t, Load(path, config.CacheValidationMTime, testOpts, nil).Save())
	assert.NoFileExists(t, path)
}

func TestClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	require.NoError(t, Clear(path))
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))
	require.NoError(t, Clear(path))
	assert.NoFileExists(t, path)
}
