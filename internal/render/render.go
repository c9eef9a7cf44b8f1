// Package render executes page templates.
//
// Templates are looked up in the site's templates directory first
// (<dir>/<name>.html, partials in <dir>/partials/*.html) and fall back to
// the embedded defaults, so a site only needs to override what it changes.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	foundationerrors "git.home.luguber.info/inful/marksite/internal/foundation/errors"
	"git.home.luguber.info/inful/marksite/internal/slug"
)

//go:embed defaults
var defaultFS embed.FS

// Page template names.
const (
	TemplatePost     = "post"
	TemplateList     = "list"
	TemplateTaxonomy = "taxonomy"
	TemplateTerms    = "terms"
	TemplatePage     = "page"
	TemplateHome     = "home"
	TemplateArchive  = "archive"
	TemplateSearch   = "search"
	TemplateNotFound = "404"
)

// Options configures the template helpers.
type Options struct {
	// Dir is the site's templates directory; it may not exist.
	Dir string
	// BasePath is prefixed by the url helper ("" or "/sub").
	BasePath string
	// DateFormat is the Go layout used by formatDate.
	DateFormat string
}

// Renderer renders named page templates. It is safe for concurrent use.
type Renderer struct {
	opts Options

	mu    sync.Mutex
	pages map[string]*template.Template
	site  fs.FS
}

// New creates a Renderer. Template files are parsed lazily on first use.
func New(opts Options) *Renderer {
	if opts.DateFormat == "" {
		opts.DateFormat = "January 2, 2006"
	}
	r := &Renderer{opts: opts, pages: map[string]*template.Template{}}
	if opts.Dir != "" {
		if info, err := os.Stat(opts.Dir); err == nil && info.IsDir() {
			r.site = os.DirFS(opts.Dir)
		}
	}
	return r
}

// Render executes the named template with data.
func (r *Renderer) Render(name string, data any) (string, error) {
	tmpl, err := r.lookup(name)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", foundationerrors.WrapError(err, foundationerrors.CategoryTemplate, "failed to render template").
			WithContext("template", name).
			Build()
	}
	return buf.String(), nil
}

// Has reports whether a template with that name exists.
func (r *Renderer) Has(name string) bool {
	_, err := r.lookup(name)
	return err == nil
}

func (r *Renderer) lookup(name string) (*template.Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.pages[name]; ok {
		return t, nil
	}
	t, err := r.parse(name)
	if err != nil {
		return nil, err
	}
	r.pages[name] = t
	return t, nil
}

func (r *Renderer) parse(name string) (*template.Template, error) {
	page, err := r.read(name + ".html")
	if err != nil {
		return nil, foundationerrors.TemplateError(fmt.Sprintf("template %q not found", name)).
			WithCause(err).
			WithContext("dir", r.opts.Dir).
			Build()
	}

	t := template.New(name).Funcs(r.funcs())
	partials, err := r.partials()
	if err != nil {
		return nil, err
	}
	for _, p := range partials {
		if _, err := t.New("partials/" + p.name).Parse(p.body); err != nil {
			return nil, foundationerrors.WrapError(err, foundationerrors.CategoryTemplate, "failed to parse partial").
				WithContext("partial", p.name).
				Build()
		}
	}
	if _, err := t.Parse(page); err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryTemplate, "failed to parse template").
			WithContext("template", name).
			Build()
	}
	return t, nil
}

// read prefers the site's file over the embedded default.
func (r *Renderer) read(file string) (string, error) {
	if r.site != nil {
		if data, err := fs.ReadFile(r.site, file); err == nil {
			return string(data), nil
		}
	}
	data, err := fs.ReadFile(defaultFS, "defaults/"+file)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

type partial struct {
	name string
	body string
}

// partials returns the default partials followed by the site's, so that a
// site partial redefines a default one of the same name.
func (r *Renderer) partials() ([]partial, error) {
	var out []partial
	collect := func(fsys fs.FS, dir string) error {
		entries, err := fs.ReadDir(fsys, dir)
		if err != nil {
			return nil
		}
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			if !e.IsDir() && strings.HasSuffix(e.Name(), ".html") {
				names = append(names, e.Name())
			}
		}
		sort.Strings(names)
		for _, n := range names {
			data, err := fs.ReadFile(fsys, dir+"/"+n)
			if err != nil {
				return err
			}
			out = append(out, partial{name: n, body: string(data)})
		}
		return nil
	}
	if err := collect(defaultFS, "defaults/partials"); err != nil {
		return nil, err
	}
	if r.site != nil {
		if err := collect(r.site, "partials"); err != nil {
			return nil, foundationerrors.WrapError(err, foundationerrors.CategoryTemplate, "failed to read partials").
				WithContext("dir", filepath.Join(r.opts.Dir, "partials")).
				Build()
		}
	}
	return out, nil
}

func (r *Renderer) funcs() template.FuncMap {
	return template.FuncMap{
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format(r.opts.DateFormat)
		},
		"isoDate": func(t time.Time) string { return t.Format(time.RFC3339) },
		"url":     r.URL,
		"safeHTML": func(s string) template.HTML {
			return template.HTML(s) //nolint:gosec // rendered Markdown is trusted site content
		},
		"slugify": slug.Make,
		"join":    strings.Join,
		"year":    func() int { return time.Now().Year() },
	}
}

// URL prefixes a site-relative path with the base path.
func (r *Renderer) URL(path string) string {
	if strings.Contains(path, "://") || strings.HasPrefix(path, "#") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return r.opts.BasePath + path
}
