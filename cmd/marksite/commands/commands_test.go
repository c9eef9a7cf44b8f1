package commands

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	foundationerrors "git.home.luguber.info/inful/marksite/internal/foundation/errors"
	"git.home.luguber.info/inful/marksite/internal/livereload"
)

const testConfig = `site:
  title: Test Blog
  url: https://example.com
`

type project struct {
	root string
	cli  *CLI
	out  *bytes.Buffer
	g    *Global
}

func newProject(t *testing.T) *project {
	t.Helper()
	root := t.TempDir()
	p := &project{
		root: root,
		// Verbose keeps the discarding test logger in place.
		cli: &CLI{Config: filepath.Join(root, "config.yaml"), Verbose: true},
		out: &bytes.Buffer{},
	}
	p.g = &Global{Logger: slog.New(slog.NewTextHandler(io.Discard, nil)), Out: p.out}
	p.write(t, "config.yaml", testConfig)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "content", "posts"), 0o755))
	return p
}

func (p *project) write(t *testing.T, rel, body string) {
	t.Helper()
	path := filepath.Join(p.root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
}

func (p *project) exists(rel string) bool {
	_, err := os.Stat(filepath.Join(p.root, rel))
	return err == nil
}

func TestBuildCmdWritesSite(t *testing.T) {
	p := newProject(t)
	p.write(t, "content/posts/hello.md", "---\ntitle: Hello World\ndate: 2024-01-10\ntags: [go]\n---\nHi there.\n")
	p.write(t, "content/posts/draft.md", "---\ntitle: Unfinished\ndate: 2024-01-11\ndraft: true\n---\nLater.\n")

	require.NoError(t, (&BuildCmd{}).Run(p.g, p.cli))

	assert.True(t, p.exists("_site/index.html"))
	assert.True(t, p.exists("_site/blog/hello-world/index.html"))
	assert.True(t, p.exists("_site/tag/go/index.html"))
	assert.False(t, p.exists("_site/blog/unfinished/index.html"))
	assert.True(t, p.exists("content/.marksite-cache.json"))
	assert.Contains(t, p.out.String(), "Built 1 posts")
}

func TestBuildCmdDraftsFlag(t *testing.T) {
	p := newProject(t)
	p.write(t, "content/posts/draft.md", "---\ntitle: Unfinished\ndate: 2024-01-11\ndraft: true\n---\nLater.\n")

	require.NoError(t, (&BuildCmd{Drafts: true}).Run(p.g, p.cli))
	assert.True(t, p.exists("_site/blog/unfinished/index.html"))
}

func TestBuildCmdInvalidConfig(t *testing.T) {
	p := newProject(t)
	p.write(t, "config.yaml", "site: [unclosed\n")

	err := (&BuildCmd{}).Run(p.g, p.cli)
	require.Error(t, err)
	assert.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryConfig))
}

func TestCleanCmd(t *testing.T) {
	p := newProject(t)
	p.write(t, "_site/old.html", "stale")
	p.write(t, "content/.marksite-cache.json", "{}")

	require.NoError(t, (&CleanCmd{}).Run(p.g, p.cli))
	assert.False(t, p.exists("_site/old.html"))
	assert.True(t, p.exists("_site"))
	assert.True(t, p.exists("content/.marksite-cache.json"))

	require.NoError(t, (&CleanCmd{Cache: true}).Run(p.g, p.cli))
	assert.False(t, p.exists("content/.marksite-cache.json"))
}

func TestCacheClearCmd(t *testing.T) {
	p := newProject(t)
	p.write(t, "content/.marksite-cache.json", "{}")

	require.NoError(t, (&CacheClearCmd{}).Run(p.g, p.cli))
	assert.False(t, p.exists("content/.marksite-cache.json"))

	// Clearing twice is fine.
	require.NoError(t, (&CacheClearCmd{}).Run(p.g, p.cli))
	assert.Contains(t, p.out.String(), "Removed cache")
}

func TestDoctorReportsProblems(t *testing.T) {
	p := newProject(t)
	p.write(t, "content/posts/untitled.md", "---\ndate: 2024-01-10\n---\nNo title.\n")
	p.write(t, "content/posts/undated.md", "---\ntitle: Undated\n---\nNo date.\n")
	p.write(t, "content/posts/baddate.md", "---\ntitle: Bad\ndate: someday\n---\nBad date.\n")

	err := (&DoctorCmd{}).Run(p.g, p.cli)
	require.Error(t, err)
	assert.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryValidation))

	out := p.out.String()
	assert.Contains(t, out, "untitled.md: missing title")
	assert.Contains(t, out, "undated.md: missing date")
	assert.Contains(t, out, `baddate.md: unparsable date "someday"`)
	assert.Contains(t, out, "build.templates directory does not exist")
	assert.Contains(t, out, "1 errors")
}

func TestDoctorHealthySite(t *testing.T) {
	p := newProject(t)
	p.write(t, "content/posts/hello.md", "---\ntitle: Hello\ndate: 2024-01-10\n---\nHi.\n")
	require.NoError(t, os.MkdirAll(filepath.Join(p.root, "templates"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(p.root, "assets"), 0o755))

	require.NoError(t, (&DoctorCmd{}).Run(p.g, p.cli))
	assert.Contains(t, p.out.String(), "0 errors, 0 warnings")
}

func TestDoctorInvalidConfig(t *testing.T) {
	p := newProject(t)
	p.write(t, "config.yaml", "site:\n  title: \"\"\n")

	err := (&DoctorCmd{}).Run(p.g, p.cli)
	require.Error(t, err)
	assert.Contains(t, p.out.String(), "error")
}

func TestVersionCmd(t *testing.T) {
	p := newProject(t)
	require.NoError(t, (&VersionCmd{}).Run(p.g, p.cli))
	assert.Contains(t, p.out.String(), "marksite ")
}

func TestDevLoopRebuild(t *testing.T) {
	p := newProject(t)
	p.write(t, "content/posts/hello.md", "---\ntitle: Hello\ndate: 2024-01-10\n---\nHi.\n")

	loop := newDevLoop(p.cli, p.g, nil)
	loop.hub = livereload.NewHub()
	sub := loop.hub.Subscribe()
	require.NotNil(t, sub)

	loop.rebuild(context.Background())
	err, good := loop.status.Get()
	require.NoError(t, err)
	assert.True(t, good)
	assert.Equal(t, livereload.ReloadSignal, <-sub.C())
	assert.True(t, p.exists("_site/blog/hello/index.html"))

	t.Run("failure is recorded and still broadcast", func(t *testing.T) {
		p.write(t, "config.yaml", "site: [unclosed\n")
		loop.rebuild(context.Background())

		err, good := loop.status.Get()
		require.Error(t, err)
		assert.True(t, good)
		assert.Equal(t, livereload.ReloadSignal, <-sub.C())
	})
}

func TestServeOverrides(t *testing.T) {
	p := newProject(t)
	cfg, err := p.cli.loadConfig(p.g)
	require.NoError(t, err)

	(&ServeCmd{Port: 4321, NoLiveReload: true, Drafts: true}).overrides(cfg)
	assert.Equal(t, 4321, cfg.Server.Port)
	assert.False(t, cfg.Server.LiveReload)
	assert.True(t, cfg.Blog.IncludeDrafts)
	assert.False(t, cfg.Blog.AllowFuture)
}
