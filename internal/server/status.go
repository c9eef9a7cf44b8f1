package server

import (
	"fmt"
	"html"
	"net/http"
	"sync"
	"time"
)

// BuildStatus tracks the outcome of the most recent build for the error page.
type BuildStatus struct {
	mu           sync.RWMutex
	lastError    error
	hasGoodBuild bool
	finishedAt   time.Time
}

// SetError records a failed build.
func (bs *BuildStatus) SetError(err error) {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	bs.lastError = err
	bs.finishedAt = time.Now()
}

// SetSuccess records a successful build.
func (bs *BuildStatus) SetSuccess() {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	bs.lastError = nil
	bs.hasGoodBuild = true
	bs.finishedAt = time.Now()
}

// Get returns the last build error (nil after a success) and whether any
// build has succeeded so far.
func (bs *BuildStatus) Get() (err error, hasGoodBuild bool) {
	bs.mu.RLock()
	defer bs.mu.RUnlock()
	return bs.lastError, bs.hasGoodBuild
}

// renderBuildErrorPage renders the page shown instead of the site while the
// latest build is broken. The live reload script is injected downstream.
func renderBuildErrorPage(w http.ResponseWriter, buildErr error) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", noCache)
	w.WriteHeader(http.StatusServiceUnavailable)

	msg := "Unknown error"
	if buildErr != nil {
		msg = buildErr.Error()
	}
	_, _ = fmt.Fprintf(w, `<!doctype html><html><head><meta charset="utf-8"><title>Build failed</title><style>body{font-family:sans-serif;max-width:800px;margin:50px auto;padding:20px}h1{color:#d32f2f}pre{background:#f5f5f5;padding:15px;border-radius:4px;overflow-x:auto;white-space:pre-wrap}</style></head><body><h1>Build failed</h1><p>The site failed to build. Fix the error below and save to rebuild automatically.</p><pre>%s</pre></body></html>`, html.EscapeString(msg))
}

// renderBuildPendingPage is shown before the first build has written anything.
func renderBuildPendingPage(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", noCache)
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = fmt.Fprint(w, `<!doctype html><html><head><meta charset="utf-8"><title>Building</title></head><body><h1>The site is being built</h1><p>This page reloads once the build completes.</p></body></html>`)
}
