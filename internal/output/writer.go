// Package output persists rendered pages into the destination tree.
package output

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"

	foundationerrors "git.home.luguber.info/inful/marksite/internal/foundation/errors"
)

// Transform post-processes HTML before it is written (minification).
type Transform func(html string) string

// Writer writes files below a root directory. Files whose content is
// unchanged are left untouched so their modification time survives.
// It is safe for concurrent use.
type Writer struct {
	root      string
	transform Transform

	mu      sync.Mutex
	hashes  map[string]uint64
	changed []string
}

// Option configures a Writer.
type Option func(*Writer)

// WithTransform applies t to every page written with WritePage.
func WithTransform(t Transform) Option {
	return func(w *Writer) { w.transform = t }
}

// NewWriter creates a Writer rooted at root.
func NewWriter(root string, opts ...Option) *Writer {
	w := &Writer{root: root, hashes: map[string]uint64{}}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Root returns the destination directory.
func (w *Writer) Root() string { return w.root }

// PagePath maps a site URL path to the file it is served from:
// "/blog/x/" -> "blog/x/index.html", "/" -> "index.html", "/404.html" stays.
func PagePath(urlPath string) string {
	p := strings.TrimPrefix(urlPath, "/")
	if p == "" || strings.HasSuffix(p, "/") {
		return p + "index.html"
	}
	if filepath.Ext(p) == "" {
		return p + "/index.html"
	}
	return p
}

// WritePage writes rendered HTML for a site URL path.
func (w *Writer) WritePage(urlPath, html string) error {
	if w.transform != nil {
		html = w.transform(html)
	}
	return w.WriteFile(PagePath(urlPath), []byte(html))
}

// WriteFile writes data to rel (slash separated, relative to the root).
func (w *Writer) WriteFile(rel string, data []byte) error {
	target, err := w.resolve(rel)
	if err != nil {
		return err
	}
	sum := xxhash.Sum64(data)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.hashes[rel] = sum

	if existing, err := os.ReadFile(target); err == nil && xxhash.Sum64(existing) == sum && bytes.Equal(existing, data) {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "failed to create output directory").
			WithContext("path", filepath.Dir(target)).
			Build()
	}
	if err := os.WriteFile(target, data, 0o644); err != nil { //nolint:gosec // published site files are world readable
		return foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "failed to write output file").
			WithContext("path", target).
			Build()
	}
	w.changed = append(w.changed, rel)
	return nil
}

func (w *Writer) resolve(rel string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(strings.TrimPrefix(rel, "/")))
	if clean == "." || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) || filepath.IsAbs(clean) {
		return "", foundationerrors.ValidationError(fmt.Sprintf("output path %q escapes the destination", rel)).Build()
	}
	return filepath.Join(w.root, clean), nil
}

// CopyDir mirrors every regular file below src into dst (relative to the
// root). A missing src is not an error.
func (w *Writer) CopyDir(src, dst string) (int, error) {
	if _, err := os.Stat(src); os.IsNotExist(err) {
		return 0, nil
	}
	copied := 0
	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		copied++
		return w.WriteFile(filepath.ToSlash(filepath.Join(dst, rel)), data)
	})
	if err != nil {
		return copied, foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "failed to copy directory").
			WithContext("src", src).
			Build()
	}
	return copied, nil
}

// Written returns every path written (or confirmed unchanged) so far, sorted.
func (w *Writer) Written() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.hashes))
	for rel := range w.hashes {
		out = append(out, rel)
	}
	sort.Strings(out)
	return out
}

// Changed returns the paths whose content actually changed on disk.
func (w *Writer) Changed() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := append([]string(nil), w.changed...)
	sort.Strings(out)
	return out
}

// Digest is a stable hash over every written path and its content.
func (w *Writer) Digest() string {
	paths := w.Written()
	d := xxhash.New()
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, rel := range paths {
		fmt.Fprintf(d, "%s:%016x\n", rel, w.hashes[rel])
	}
	return fmt.Sprintf("%016x", d.Sum64())
}

// Clean removes everything inside dir but keeps dir itself.
func Clean(dir string) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "failed to read destination").
			WithContext("path", dir).
			Build()
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "failed to clean destination").
				WithContext("path", dir).
				Build()
		}
	}
	return nil
}
