// Package watch turns filesystem changes into debounced rebuilds.
package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fsnotify/fsnotify"

	foundationerrors "git.home.luguber.info/inful/marksite/internal/foundation/errors"
	"git.home.luguber.info/inful/marksite/internal/logfields"
)

// Watcher observes a set of directories (recursively) and individual files.
type Watcher struct {
	fs     *fsnotify.Watcher
	dirs   []string
	files  map[string]struct{}
	ignore []string
	logger *slog.Logger
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithIgnoredDir drops events below dir, typically the build destination.
func WithIgnoredDir(dir string) Option {
	return func(w *Watcher) {
		if dir == "" {
			return
		}
		if abs, err := filepath.Abs(dir); err == nil {
			w.ignore = append(w.ignore, abs)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(w *Watcher) { w.logger = l } }

// New registers paths with a new fsnotify watcher. Empty and non-existent
// paths are dropped; if nothing is left to watch New fails.
func New(paths []string, opts ...Option) (*Watcher, error) {
	w := &Watcher{files: map[string]struct{}{}, logger: slog.Default()}
	for _, opt := range opts {
		opt(w)
	}

	seen := map[string]struct{}{}
	for _, p := range paths {
		if strings.TrimSpace(p) == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			continue
		}
		if _, dup := seen[abs]; dup {
			continue
		}
		fi, err := os.Stat(abs)
		if err != nil {
			w.logger.Debug("Skipping watch path", logfields.Path(abs), logfields.Error(err))
			continue
		}
		seen[abs] = struct{}{}
		if fi.IsDir() {
			w.dirs = append(w.dirs, abs)
		} else {
			w.files[abs] = struct{}{}
		}
	}
	if len(w.dirs) == 0 && len(w.files) == 0 {
		return nil, foundationerrors.WatchError("no existing paths to watch").
			WithContext("paths", strings.Join(paths, ",")).
			Build()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryWatch, "failed to create filesystem watcher").Fatal().Build()
	}
	w.fs = fsw

	for _, dir := range w.dirs {
		if err := w.addDirsRecursive(dir); err != nil {
			_ = fsw.Close()
			return nil, err
		}
	}
	// Files are watched through their parent so editors that replace the
	// file on save keep being observed.
	for file := range w.files {
		if err := fsw.Add(filepath.Dir(file)); err != nil {
			_ = fsw.Close()
			return nil, foundationerrors.WrapError(err, foundationerrors.CategoryWatch, "failed to watch file").
				WithContext("path", file).
				Fatal().
				Build()
		}
	}
	return w, nil
}

// Paths returns the directories and files being watched, sorted.
func (w *Watcher) Paths() []string {
	out := append([]string{}, w.dirs...)
	for f := range w.files {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Run forwards relevant change events to onChange until ctx is done or the
// watcher is closed.
func (w *Watcher) Run(ctx context.Context, onChange func(path string)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ev, onChange)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Watcher error", logfields.Error(err))
		}
	}
}

// Close releases the underlying watcher.
func (w *Watcher) Close() error {
	if w.fs == nil {
		return nil
	}
	return w.fs.Close()
}

func (w *Watcher) handleEvent(ev fsnotify.Event, onChange func(string)) {
	if ev.Op == fsnotify.Chmod {
		return
	}
	if !w.relevant(ev.Name) {
		return
	}
	if ev.Op.Has(fsnotify.Create) {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			_ = w.addDirsRecursive(ev.Name)
		}
	}
	w.logger.Debug("File change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
	onChange(ev.Name)
}

func (w *Watcher) relevant(path string) bool {
	if ShouldIgnore(path) {
		return false
	}
	for _, dir := range w.ignore {
		if within(dir, path) {
			return false
		}
	}
	if _, ok := w.files[path]; ok {
		return true
	}
	for _, dir := range w.dirs {
		if within(dir, path) {
			return true
		}
	}
	return false
}

func (w *Watcher) addDirsRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		for _, dir := range w.ignore {
			if within(dir, path) {
				return filepath.SkipDir
			}
		}
		if err := w.fs.Add(path); err != nil {
			w.logger.Warn("Watch add failed", logfields.Path(path), logfields.Error(err))
		}
		return nil
	})
}

func within(dir, path string) bool {
	if path == dir {
		return true
	}
	return strings.HasPrefix(path, dir+string(filepath.Separator))
}

// ShouldIgnore reports whether path is a hidden, swap, backup or OS metadata
// file that must not trigger a rebuild.
func ShouldIgnore(path string) bool {
	base := filepath.Base(path)

	if strings.HasPrefix(base, ".") {
		return true
	}
	if strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		strings.HasSuffix(base, ".tmp") ||
		strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#") {
		return true
	}
	if base == "Thumbs.db" || base == "4913" {
		return true
	}
	return false
}
