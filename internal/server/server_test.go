package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	foundationerrors "git.home.luguber.info/inful/marksite/internal/foundation/errors"
	"git.home.luguber.info/inful/marksite/internal/livereload"
)

func writeSite(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"index.html":          "<html><body>home</body></html>",
		"about/index.html":    "<html><body>about</body></html>",
		"404.html":            "<html><body>custom not found</body></html>",
		"assets/css/site.css": "body{}",
		"feed.xml":            "<rss></rss>",
	}
	for rel, body := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	}
	return root
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestServesSiteWithCleanURLs(t *testing.T) {
	h := New(Options{Root: writeSite(t)}).Handler()

	rec := get(t, h, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "home")
	assert.Equal(t, noCache, rec.Header().Get("Cache-Control"))

	for _, p := range []string{"/about/", "/about"} {
		rec = get(t, h, p)
		assert.Equal(t, http.StatusOK, rec.Code, p)
		assert.Contains(t, rec.Body.String(), "about", p)
	}

	rec = get(t, h, "/assets/css/site.css")
	assert.Equal(t, "body{}", rec.Body.String())
}

func TestMissingPageUsesCustom404(t *testing.T) {
	h := New(Options{Root: writeSite(t)}).Handler()
	rec := get(t, h, "/nope/")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "custom not found")

	rec = get(t, h, "/../../etc/passwd")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBasePath(t *testing.T) {
	h := New(Options{Root: writeSite(t), BasePath: "/sub"}).Handler()

	rec := get(t, h, "/")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/sub/", rec.Header().Get("Location"))

	rec = get(t, h, "/sub/about/")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = get(t, h, "/subway/")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLiveReloadInjection(t *testing.T) {
	hub := livereload.NewHub()
	h := New(Options{Root: writeSite(t), LiveReload: hub}).Handler()

	rec := get(t, h, "/about/")
	assert.Contains(t, rec.Body.String(), `src="`+livereload.ScriptPath+`"`)

	rec = get(t, h, "/feed.xml")
	assert.NotContains(t, rec.Body.String(), livereload.ScriptPath)

	rec = get(t, h, livereload.ScriptPath)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "EventSource")
}

func TestNoLiveReloadRoutesWhenDisabled(t *testing.T) {
	h := New(Options{Root: writeSite(t)}).Handler()
	rec := get(t, h, "/about/")
	assert.NotContains(t, rec.Body.String(), livereload.ScriptPath)
	rec = get(t, h, livereload.ScriptPath)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBuildErrorPage(t *testing.T) {
	status := &BuildStatus{}
	status.SetSuccess()
	status.SetError(errors.New("template <post> failed"))

	h := New(Options{Root: writeSite(t), Status: status, LiveReload: livereload.NewHub()}).Handler()

	rec := get(t, h, "/about/")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Build failed")
	assert.Contains(t, body, "template &lt;post&gt; failed")
	assert.Contains(t, body, livereload.ScriptPath, "error page reloads once fixed")

	// Assets still load.
	rec = get(t, h, "/assets/css/site.css")
	assert.Equal(t, http.StatusOK, rec.Code)

	status.SetSuccess()
	rec = get(t, h, "/about/")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPendingPageBeforeFirstBuild(t *testing.T) {
	h := New(Options{Root: t.TempDir(), Status: &BuildStatus{}}).Handler()
	rec := get(t, h, "/")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "being built")
}

func TestHealthAndMetrics(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("marksite_builds_total 1"))
	})
	h := New(Options{Root: writeSite(t), Metrics: metrics}).Handler()

	rec := get(t, h, "/healthz")
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = get(t, h, "/metrics")
	assert.Contains(t, rec.Body.String(), "marksite_builds_total")
}

func TestStartFailsWhenPortTaken(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	port := ln.Addr().(*net.TCPAddr).Port

	s := New(Options{Root: t.TempDir(), Host: "127.0.0.1", Port: port})
	err = s.Start(context.Background())
	require.Error(t, err)
	assert.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryServer))
}

func TestStartAndShutdown(t *testing.T) {
	s := New(Options{Root: writeSite(t), Host: "127.0.0.1", Port: 0, LiveReload: livereload.NewHub()})
	require.NoError(t, s.Start(context.Background()))
	assert.NotZero(t, s.Port())

	resp, err := http.Get(s.URL() + "healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, s.Shutdown(context.Background()))
}
