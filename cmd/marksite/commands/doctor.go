package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"git.home.luguber.info/inful/marksite/internal/config"
	"git.home.luguber.info/inful/marksite/internal/content"
	foundationerrors "git.home.luguber.info/inful/marksite/internal/foundation/errors"
	"git.home.luguber.info/inful/marksite/internal/frontmatter"
)

// DoctorCmd checks the configuration and every post without building.
type DoctorCmd struct{}

type severity string

const (
	severityError   severity = "error"
	severityWarning severity = "warning"
	severityInfo    severity = "info"
)

type finding struct {
	severity severity
	subject  string
	message  string
}

type doctorReport struct {
	findings []finding
}

func (r *doctorReport) add(s severity, subject, format string, args ...any) {
	r.findings = append(r.findings, finding{severity: s, subject: subject, message: fmt.Sprintf(format, args...)})
}

func (r *doctorReport) count(s severity) int {
	n := 0
	for _, f := range r.findings {
		if f.severity == s {
			n++
		}
	}
	return n
}

func (d *DoctorCmd) Run(g *Global, cli *CLI) error {
	report := &doctorReport{}
	path := config.ResolvePath(cli.Config)

	cfg, err := config.Load(path)
	if err != nil {
		report.add(severityError, path, "%v", err)
	} else {
		cli.applyLogging(g, cfg)
		checkConfig(report, cfg)
		checkPosts(report, cfg.PostsDir())
	}

	out := g.out()
	for _, f := range report.findings {
		_, _ = fmt.Fprintf(out, "%-7s %s: %s\n", f.severity, f.subject, f.message)
	}
	errs, warns := report.count(severityError), report.count(severityWarning)
	_, _ = fmt.Fprintf(out, "%d errors, %d warnings\n", errs, warns)
	if errs > 0 {
		return foundationerrors.ValidationError(fmt.Sprintf("doctor found %d errors", errs)).Build()
	}
	return nil
}

func checkConfig(r *doctorReport, cfg *config.Config) {
	subject := cfg.Path()
	if _, err := os.Stat(subject); os.IsNotExist(err) {
		r.add(severityWarning, subject, "configuration file not found, defaults in use")
	}
	if cfg.Site.URL == "" {
		r.add(severityWarning, subject, "site.url is empty, generated links are site-relative")
	}
	dirs := []struct{ key, path string }{
		{"build.templates", cfg.Build.Templates},
		{"build.assets", cfg.Build.Assets},
	}
	for _, d := range dirs {
		if !isDir(d.path) {
			r.add(severityWarning, d.path, "%s directory does not exist, built-in defaults will be used", d.key)
		}
	}
	if !isDir(cfg.PostsDir()) {
		r.add(severityError, cfg.PostsDir(), "posts directory does not exist")
	}
}

func checkPosts(r *doctorReport, dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && content.IsMarkdown(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		checkPost(r, filepath.Join(dir, name), name)
	}
	if len(names) == 0 {
		r.add(severityWarning, dir, "no posts found")
	}
}

func checkPost(r *doctorReport, path, name string) {
	raw, err := os.ReadFile(path)
	if err != nil {
		r.add(severityError, name, "unreadable: %v", err)
		return
	}
	doc, err := frontmatter.Parse(raw)
	if err != nil {
		r.add(severityError, name, "invalid front matter: %v", err)
		return
	}
	attrs := doc.Attributes
	if attrs.String("title") == "" {
		r.add(severityError, name, "missing title")
	}
	switch _, ok := attrs.Time("date"); {
	case !ok && attrs.Has("date"):
		r.add(severityWarning, name, "unparsable date %q", attrs.String("date"))
	case !ok:
		r.add(severityWarning, name, "missing date, the build time will be used")
	}
	if attrs.Bool("draft") {
		r.add(severityInfo, name, "draft, not published")
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
