package site

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/marksite/internal/config"
	foundationerrors "git.home.luguber.info/inful/marksite/internal/foundation/errors"
	"git.home.luguber.info/inful/marksite/internal/metrics"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type siteFixture struct {
	root string
	cfg  *config.Config
}

func newSite(t *testing.T) *siteFixture {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.Site.Title = "Test Blog"
	cfg.Site.URL = "https://example.com"
	cfg.Site.Author = "Ada"
	cfg.Build.Source = filepath.Join(root, "content")
	cfg.Build.Destination = filepath.Join(root, "_site")
	cfg.Build.Templates = filepath.Join(root, "templates")
	cfg.Build.Assets = filepath.Join(root, "assets")
	cfg.Blog.PostsPerPage = 2
	require.NoError(t, os.MkdirAll(cfg.PostsDir(), 0o755))
	return &siteFixture{root: root, cfg: cfg}
}

func (f *siteFixture) write(t *testing.T, rel, body string) {
	t.Helper()
	path := filepath.Join(f.root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
}

func (f *siteFixture) read(t *testing.T, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(f.cfg.Build.Destination, filepath.FromSlash(rel)))
	require.NoError(t, err, rel)
	return string(data)
}

func (f *siteFixture) build(t *testing.T, opts ...Option) (*Report, error) {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewBuilder(f.cfg, opts...).Build(context.Background())
}

func (f *siteFixture) writePosts(t *testing.T) {
	f.write(t, "content/posts/january.md", "---\ntitle: January\ndate: 2024-01-01\ntags: [Go, testing]\ncategories: Notes\n---\nFirst post.\n")
	f.write(t, "content/posts/march.md", "---\ntitle: March\ndate: 2024-03-01\ntags: [go]\n---\nSecond post.\n\n## Details\n")
	f.write(t, "content/posts/undated.md", "---\ntitle: Undated\n---\nNo date here.\n")
	f.write(t, "content/posts/draft.md", "---\ntitle: Draft\ndraft: true\n---\nNot yet.\n")
}

func TestBuildWritesCompleteSite(t *testing.T) {
	f := newSite(t)
	f.writePosts(t)
	f.write(t, "content/about.md", "---\ntitle: About me\n---\nHello there.\n")

	report, err := f.build(t)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Posts)
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, metrics.BuildOutcomeSuccess, report.Outcome)
	assert.NotEmpty(t, report.BuildID)
	assert.NotEmpty(t, report.Digest)

	for _, rel := range []string{
		"index.html",
		"blog/index.html",
		"blog/page/2/index.html",
		"blog/undated/index.html",
		"blog/march/index.html",
		"blog/january/index.html",
		"tag/go/index.html",
		"tag/testing/index.html",
		"tags/index.html",
		"category/notes/index.html",
		"categories/index.html",
		"about/index.html",
		"archive/index.html",
		"search/index.html",
		"search-index.json",
		"404.html",
		"sitemap.xml",
		"feed.xml",
		"atom.xml",
		"feed.json",
		"robots.txt",
		"assets/css/site.css",
		"assets/js/search.js",
	} {
		_, err := os.Stat(filepath.Join(f.cfg.Build.Destination, filepath.FromSlash(rel)))
		assert.NoError(t, err, rel)
	}
	_, err = os.Stat(filepath.Join(f.cfg.Build.Destination, "blog", "draft", "index.html"))
	assert.True(t, os.IsNotExist(err))

	page1 := f.read(t, "blog/index.html")
	assert.Contains(t, page1, "Undated")
	assert.Contains(t, page1, "March")
	assert.NotContains(t, page1, ">January<")
	assert.Contains(t, page1, `href="/blog/page/2/"`)

	march := f.read(t, "blog/march/index.html")
	assert.Contains(t, march, `id="details"`)
	assert.Contains(t, march, `href="/blog/january/"`, "related or previous link")
	assert.Contains(t, march, `<link rel="canonical" href="https://example.com/blog/march/">`)

	tagGo := f.read(t, "tag/go/index.html")
	assert.Contains(t, tagGo, "Tag: go", "label comes from the newest post")
	assert.Contains(t, tagGo, "January")
	assert.Contains(t, tagGo, "March")

	assert.Contains(t, f.read(t, "about/index.html"), "Hello there.")
	assert.Contains(t, f.read(t, "sitemap.xml"), "<loc>https://example.com/about/</loc>")
	assert.Contains(t, f.read(t, "robots.txt"), "Sitemap: https://example.com/sitemap.xml")
	assert.Contains(t, f.read(t, "archive/index.html"), "March 2024")
}

func TestRebuildUsesCacheAndIsStable(t *testing.T) {
	f := newSite(t)
	f.writePosts(t)

	first, err := f.build(t)
	require.NoError(t, err)
	assert.Equal(t, 4, first.Rendered, "drafts are rendered and cached too")

	second, err := f.build(t)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Rendered)
	assert.Equal(t, 4, second.CacheHits)
	assert.Equal(t, first.Digest, second.Digest)
	assert.Empty(t, second.Changed)
}

func TestIndexPageReplacesHome(t *testing.T) {
	f := newSite(t)
	f.writePosts(t)
	f.write(t, "content/index.md", "---\ntitle: Welcome\n---\nCustom landing page.\n")

	_, err := f.build(t)
	require.NoError(t, err)

	home := f.read(t, "index.html")
	assert.Contains(t, home, "Custom landing page.")
	assert.Contains(t, home, "<title>Welcome | Test Blog</title>")
}

func TestEmptySiteStillBuilds(t *testing.T) {
	f := newSite(t)

	report, err := f.build(t)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Posts)
	assert.Contains(t, f.read(t, "blog/index.html"), "No posts yet.")
	_, err = os.Stat(filepath.Join(f.cfg.Build.Destination, "blog", "page", "2"))
	assert.True(t, os.IsNotExist(err))
}

func TestMinifyAndBasePath(t *testing.T) {
	f := newSite(t)
	f.cfg.Features.Minify = true
	f.cfg.Site.BaseURL = "/sub/"
	f.writePosts(t)
	f.write(t, "templates/partials/footer.html", "{{define \"footer\"}}<!-- footer -->\n\n   </main></body></html>{{end}}")

	_, err := f.build(t)
	require.NoError(t, err)

	page := f.read(t, "blog/march/index.html")
	assert.NotContains(t, page, "<!-- footer -->")
	assert.Contains(t, page, `href="/sub/blog/"`)
	assert.Contains(t, f.read(t, "sitemap.xml"), "https://example.com/sub/blog/march/")
}

func TestBrokenTemplateFailsBuild(t *testing.T) {
	f := newSite(t)
	f.writePosts(t)
	f.write(t, "templates/post.html", "{{.DoesNotExist}}")

	report, err := f.build(t)
	require.Error(t, err)
	assert.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryTemplate))
	assert.Equal(t, metrics.BuildOutcomeFailed, report.Outcome)
}

func TestCanceledBuild(t *testing.T) {
	f := newSite(t)
	f.writePosts(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := NewBuilder(f.cfg).Build(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, metrics.BuildOutcomeCanceled, report.Outcome)
}

func TestScheduledPostReported(t *testing.T) {
	f := newSite(t)
	f.write(t, "content/posts/later.md", "---\ntitle: Later\ndate: 2025-07-01\n---\nSoon.\n")

	report, err := f.build(t)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Posts)
	assert.True(t, report.NextScheduled.Equal(time.Date(2025, 7, 1, 0, 0, 0, 0, time.Local)))
}
