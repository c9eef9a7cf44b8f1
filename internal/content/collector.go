package content

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/marksite/internal/buildcache"
	"git.home.luguber.info/inful/marksite/internal/config"
	"git.home.luguber.info/inful/marksite/internal/frontmatter"
	"git.home.luguber.info/inful/marksite/internal/logfields"
	"git.home.luguber.info/inful/marksite/internal/markdown"
	"git.home.luguber.info/inful/marksite/internal/slug"
)

// Transformer renders a post body. *markdown.Transformer satisfies it.
type Transformer interface {
	Transform(body string) (*markdown.Result, error)
	Options() markdown.Options
}

// Options configures a Collector.
type Options struct {
	PostsDir        string
	CachePath       string
	CacheValidation config.CacheValidation
	IncludeDrafts   bool
	AllowFuture     bool
	DefaultAuthor   string
	Concurrency     int
	// Now defaults to time.Now; it is read once per Collect.
	Now func() time.Time
}

// OptionsFromConfig maps the site configuration onto collector options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		PostsDir:        cfg.PostsDir(),
		CachePath:       cfg.CachePath(),
		CacheValidation: cfg.Build.CacheValidation,
		IncludeDrafts:   cfg.Blog.IncludeDrafts,
		AllowFuture:     cfg.Blog.AllowFuture,
		DefaultAuthor:   cfg.Site.Author,
		Concurrency:     cfg.Build.Concurrency,
	}
}

// Collector builds the post list.
type Collector struct {
	opts        Options
	transformer Transformer
	logger      *slog.Logger
}

// NewCollector creates a Collector.
func NewCollector(opts Options, transformer Transformer, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Collector{opts: opts, transformer: transformer, logger: logger}
}

// outcome is what one worker reports for one file.
type outcome struct {
	post     *Post
	skip     *Diagnostic
	warnings []Diagnostic
	rendered bool
}

// Collect runs one collection pass. An unreadable posts directory yields an
// empty result; the only error returned is context cancellation.
func (c *Collector) Collect(ctx context.Context) (*Result, error) {
	now := c.opts.Now()
	result := &Result{Posts: []*Post{}}

	files, err := c.listFiles()
	if err != nil {
		c.logger.Warn("Posts directory unreadable", logfields.Path(c.opts.PostsDir), logfields.Error(err))
		return result, nil
	}

	cache := buildcache.Load(c.opts.CachePath, c.opts.CacheValidation, c.transformer.Options(), c.logger)

	outcomes := make([]outcome, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Concurrency)
	for i, name := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = c.processFile(name, cache, now)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	taken := make(map[string]struct{}, len(files))
	for _, o := range outcomes {
		if o.rendered {
			result.Rendered++
		}
		result.Warnings = append(result.Warnings, o.warnings...)
		if o.skip != nil {
			result.Skipped = append(result.Skipped, *o.skip)
			if o.skip.Reason == ReasonScheduled && (result.NextScheduled.IsZero() || o.skip.PublishAt.Before(result.NextScheduled)) {
				result.NextScheduled = o.skip.PublishAt
			}
			continue
		}
		p := o.post
		if unique := slug.Unique(p.Slug, taken); unique != p.Slug {
			result.Warnings = append(result.Warnings, Diagnostic{
				Path:   p.SourcePath,
				Reason: ReasonSlugCollision,
				Detail: "slug " + p.Slug + " already used, published as " + unique,
			})
			p.Slug = unique
			p.URL = PostURL(unique)
		}
		result.Posts = append(result.Posts, p)
	}

	SortByDateDesc(result.Posts)
	AttachRelated(result.Posts, RelatedLimit)
	AttachNavigation(result.Posts)

	present := make(map[string]struct{}, len(files))
	for _, name := range files {
		present[name] = struct{}{}
	}
	cache.Retain(present)
	if err := cache.Save(); err != nil {
		c.logger.Warn("Failed to persist build cache", logfields.Path(c.opts.CachePath), logfields.Error(err))
	}
	result.CacheHits, result.CacheMisses = cache.Stats()

	for _, d := range result.Skipped {
		c.logger.Info("Skipped post", logfields.File(d.Path), logfields.Reason(string(d.Reason)))
	}
	for _, d := range result.Warnings {
		c.logger.Warn(d.Detail, logfields.File(d.Path), logfields.Reason(string(d.Reason)))
	}
	return result, nil
}

// listFiles returns Markdown file names directly inside the posts directory,
// sorted by name. Subdirectories and hidden files are ignored.
func (c *Collector) listFiles() ([]string, error) {
	entries, err := os.ReadDir(c.opts.PostsDir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !IsMarkdown(name) {
			continue
		}
		files = append(files, name)
	}
	return files, nil
}

// IsMarkdown reports whether name has a Markdown extension.
func IsMarkdown(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".md", ".markdown":
		return true
	default:
		return false
	}
}

func (c *Collector) processFile(name string, cache *buildcache.Cache, now time.Time) outcome {
	path := filepath.Join(c.opts.PostsDir, name)
	skip := func(reason Reason, detail string) outcome {
		return outcome{skip: &Diagnostic{Path: name, Reason: reason, Detail: detail}}
	}

	info, err := os.Stat(path)
	if err != nil {
		return skip(ReasonUnreadable, err.Error())
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return skip(ReasonUnreadable, err.Error())
	}
	doc, err := frontmatter.Parse(raw)
	if err != nil {
		return skip(ReasonInvalidFrontMatter, err.Error())
	}
	attrs := doc.Attributes
	title := attrs.String("title")
	if title == "" {
		return skip(ReasonMissingTitle, "front matter has no title")
	}

	key := buildcache.Key{ModTime: info.ModTime(), Fingerprint: buildcache.Fingerprint(doc.Raw, doc.Body)}
	var o outcome
	rendered, hit := cache.Lookup(name, key)
	if !hit {
		rendered, err = c.transformer.Transform(doc.Body)
		if err != nil {
			return skip(ReasonRenderFailed, err.Error())
		}
		cache.Put(name, key, rendered)
		o.rendered = true
	}

	date, ok := attrs.Time("date")
	if !ok {
		if attrs.Has("date") {
			o.warnings = append(o.warnings, Diagnostic{Path: name, Reason: ReasonInvalidDate, Detail: "unparsable date " + attrs.String("date") + ", using current time"})
		}
		date = now
	}

	draft := attrs.Bool("draft")
	if draft && !c.opts.IncludeDrafts {
		o.skip = &Diagnostic{Path: name, Reason: ReasonDraft}
		return o
	}
	if date.After(now) && !c.opts.AllowFuture {
		o.skip = &Diagnostic{Path: name, Reason: ReasonScheduled, PublishAt: date, Detail: "publishes at " + date.Format(time.RFC3339)}
		return o
	}

	postSlug := slug.Make(attrs.String("slug"))
	if postSlug == "" {
		postSlug = slug.Make(title)
	}
	if postSlug == "" {
		postSlug = slug.Make(strings.TrimSuffix(name, filepath.Ext(name)))
	}
	if postSlug == "" {
		postSlug = "post"
	}

	excerpt := attrs.String("excerpt")
	if excerpt == "" {
		excerpt = attrs.String("description")
	}
	if excerpt == "" {
		excerpt = rendered.Excerpt
	}
	author := attrs.String("author")
	if author == "" {
		author = c.opts.DefaultAuthor
	}

	o.post = &Post{
		Title:       title,
		Slug:        postSlug,
		URL:         PostURL(postSlug),
		Date:        date,
		Draft:       draft,
		Tags:        attrs.Strings("tags"),
		Categories:  attrs.Strings("categories"),
		Author:      author,
		Description: attrs.String("description"),
		Image:       attrs.String("image"),
		HTML:        rendered.HTML,
		Excerpt:     excerpt,
		ReadingTime: rendered.ReadingTime,
		Outline:     rendered.Outline,
		Related:     []Ref{},
		SourcePath:  name,
		ModTime:     info.ModTime(),
		Fingerprint: key.Fingerprint,
		Params:      attrs,
	}
	return o
}

// SortByDateDesc orders posts newest first. Posts with equal dates keep
// their relative order.
func SortByDateDesc(posts []*Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].Date.After(posts[j].Date)
	})
}
