package server

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

const noCache = "no-cache, no-store, must-revalidate"

// staticHandler serves the build output with clean URLs and the site's
// 404.html.
type staticHandler struct {
	root     string
	basePath string
	status   *BuildStatus
}

func (h *staticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	urlPath := r.URL.Path
	if h.basePath != "" {
		if urlPath == "/" {
			http.Redirect(w, r, h.basePath+"/", http.StatusFound)
			return
		}
		rest, ok := strings.CutPrefix(urlPath, h.basePath)
		if !ok || (rest != "" && !strings.HasPrefix(rest, "/")) {
			h.notFound(w, r)
			return
		}
		if rest == "" {
			rest = "/"
		}
		urlPath = rest
	}

	if h.status != nil && isPageRequest(urlPath) {
		buildErr, hasGood := h.status.Get()
		if buildErr != nil {
			renderBuildErrorPage(w, buildErr)
			return
		}
		if !hasGood && !h.exists("index.html") {
			renderBuildPendingPage(w)
			return
		}
	}

	file, ok := h.resolve(urlPath)
	if !ok {
		h.notFound(w, r)
		return
	}
	w.Header().Set("Cache-Control", noCache)
	http.ServeFile(w, r, file)
}

// resolve maps a URL path to a file below root: directories serve their
// index.html and extensionless paths fall back to index.html or .html.
func (h *staticHandler) resolve(urlPath string) (string, bool) {
	clean := path.Clean("/" + urlPath)
	var candidates []string
	if strings.HasSuffix(urlPath, "/") {
		candidates = []string{path.Join(clean, "index.html")}
	} else {
		candidates = []string{clean, path.Join(clean, "index.html")}
		if path.Ext(clean) == "" {
			candidates = append(candidates, clean+".html")
		}
	}
	for _, c := range candidates {
		full := filepath.Join(h.root, filepath.FromSlash(c))
		if info, err := os.Stat(full); err == nil && info.Mode().IsRegular() {
			return full, true
		}
	}
	return "", false
}

func (h *staticHandler) exists(rel string) bool {
	_, err := os.Stat(filepath.Join(h.root, rel))
	return err == nil
}

func (h *staticHandler) notFound(w http.ResponseWriter, r *http.Request) {
	page := filepath.Join(h.root, "404.html")
	data, err := os.ReadFile(page)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", noCache)
	w.WriteHeader(http.StatusNotFound)
	if r.Method != http.MethodHead {
		_, _ = w.Write(data)
	}
}

func isPageRequest(urlPath string) bool {
	ext := path.Ext(urlPath)
	return ext == "" || ext == ".html"
}
