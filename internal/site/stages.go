package site

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/marksite/internal/config"
	"git.home.luguber.info/inful/marksite/internal/content"
	foundationerrors "git.home.luguber.info/inful/marksite/internal/foundation/errors"
	"git.home.luguber.info/inful/marksite/internal/logfields"
	"git.home.luguber.info/inful/marksite/internal/markdown"
	"git.home.luguber.info/inful/marksite/internal/metrics"
	"git.home.luguber.info/inful/marksite/internal/observability"
	"git.home.luguber.info/inful/marksite/internal/output"
	"git.home.luguber.info/inful/marksite/internal/render"
	"git.home.luguber.info/inful/marksite/internal/seo"
	"git.home.luguber.info/inful/marksite/internal/taxonomy"
)

// StageName identifies a build stage.
type StageName string

// Build stages, in execution order.
const (
	StagePrepare    StageName = "prepare"
	StageAssets     StageName = "assets"
	StageCollect    StageName = "collect"
	StagePosts      StageName = "posts"
	StageListings   StageName = "listings"
	StageTaxonomies StageName = "taxonomies"
	StagePages      StageName = "pages"
	StageHome       StageName = "home"
	StageArchive    StageName = "archive"
	StageSearch     StageName = "search"
	StageNotFound   StageName = "not_found"
	StageSEO        StageName = "seo"
)

type stageFunc func(ctx context.Context, bs *buildState) error

type stageDef struct {
	Name StageName
	Fn   stageFunc
}

// buildState is shared by the stages of one build.
type buildState struct {
	cfg         *config.Config
	now         func() time.Time
	logger      *slog.Logger
	report      *Report
	recorder    metrics.Recorder
	transformer *markdown.Transformer
	writer      *output.Writer
	renderer    *render.Renderer
	site        SiteInfo

	posts      []*content.Post
	tags       taxonomy.Index
	categories taxonomy.Index
	// hasIndexPage is set when the content root provides index.md.
	hasIndexPage bool
	sitemap      []seo.SitemapEntry
}

func pipeline(cfg *config.Config) []stageDef {
	stages := []stageDef{
		{StagePrepare, stagePrepare},
		{StageAssets, stageAssets},
		{StageCollect, stageCollect},
		{StagePosts, stagePosts},
		{StageListings, stageListings},
		{StageTaxonomies, stageTaxonomies},
		{StagePages, stagePages},
		{StageHome, stageHome},
		{StageArchive, stageArchive},
	}
	if cfg.Features.Search {
		stages = append(stages, stageDef{StageSearch, stageSearch})
	}
	return append(stages,
		stageDef{StageNotFound, stageNotFound},
		stageDef{StageSEO, stageSEO},
	)
}

// runStages executes stages in order, recording timing and stopping on the
// first error.
func runStages(ctx context.Context, bs *buildState, stages []stageDef) error {
	for _, st := range stages {
		if err := ctx.Err(); err != nil {
			return foundationerrors.WrapError(err, foundationerrors.CategoryBuild, "build canceled").
				WithContext("stage", string(st.Name)).
				Build()
		}
		sctx := observability.WithStage(ctx, string(st.Name))
		t0 := time.Now()
		err := st.Fn(sctx, bs)
		dur := time.Since(t0)

		bs.report.StageDurations[string(st.Name)] = dur
		bs.recorder.ObserveStageDuration(string(st.Name), dur)
		observability.Logger(sctx, bs.logger).Debug("Stage finished", logfields.DurationMS(float64(dur.Microseconds())/1000))

		if err != nil {
			return classify(st.Name, err)
		}
	}
	return nil
}

func (bs *buildState) canonical(path string) string {
	if bs.cfg.Site.URL == "" {
		return bs.cfg.BasePath() + path
	}
	return bs.cfg.AbsoluteURL(path)
}

func (bs *buildState) page(title, description, path string) PageData {
	return PageData{
		Site:        bs.site,
		Title:       title,
		Description: description,
		Canonical:   bs.canonical(path),
	}
}

// writePage renders a template and writes it at the URL path.
func (bs *buildState) writePage(name, path string, data PageData) error {
	html, err := bs.renderer.Render(name, data)
	if err != nil {
		return err
	}
	if err := bs.writer.WritePage(path, html); err != nil {
		return err
	}
	bs.report.Pages++
	return nil
}

func (bs *buildState) addSitemap(path string, lastMod time.Time, freq string, priority float64) {
	bs.sitemap = append(bs.sitemap, seo.SitemapEntry{Path: path, LastMod: lastMod, ChangeFreq: freq, Priority: priority})
}

func stagePrepare(_ context.Context, bs *buildState) error {
	if err := bs.cfg.EnsureDestination(); err != nil {
		return err
	}
	if bs.cfg.Build.Clean {
		bs.logger.Debug("Cleaning destination", logfields.Path(bs.cfg.Build.Destination))
		return output.Clean(bs.cfg.Build.Destination)
	}
	return nil
}

func stageCollect(ctx context.Context, bs *buildState) error {
	opts := content.OptionsFromConfig(bs.cfg)
	opts.Now = bs.now
	result, err := content.NewCollector(opts, bs.transformer, bs.logger).Collect(ctx)
	if err != nil {
		return err
	}
	bs.posts = result.Posts
	bs.tags = taxonomy.ByTag(result.Posts)
	if bs.cfg.Features.Categories {
		bs.categories = taxonomy.ByCategory(result.Posts)
	}

	r := bs.report
	r.Posts = len(result.Posts)
	r.Skipped = result.Skipped
	r.Warnings = result.Warnings
	r.CacheHits, r.CacheMisses = result.CacheHits, result.CacheMisses
	r.Rendered = result.Rendered
	r.NextScheduled = result.NextScheduled
	bs.recorder.AddCacheLookups(result.CacheHits, result.CacheMisses)
	bs.recorder.SetPosts(len(result.Posts), len(result.Skipped))

	bs.logger.Info("Collected posts",
		logfields.Count(len(result.Posts)),
		slog.Int("skipped", len(result.Skipped)),
		slog.Int("cache_hits", result.CacheHits),
		slog.Int("rendered", result.Rendered))
	return nil
}

func stagePosts(ctx context.Context, bs *buildState) error {
	for _, p := range bs.posts {
		if err := ctx.Err(); err != nil {
			return err
		}
		data := bs.page(p.Title, postDescription(p), p.URL)
		data.Post = p
		if err := bs.writePage(render.TemplatePost, p.URL, data); err != nil {
			return err
		}
		lastMod := p.Date
		if p.ModTime.After(lastMod) {
			lastMod = p.ModTime
		}
		bs.addSitemap(p.URL, lastMod, "monthly", 0.7)
	}
	return nil
}

func postDescription(p *content.Post) string {
	if p.Description != "" {
		return p.Description
	}
	return p.Excerpt
}

func stageListings(_ context.Context, bs *buildState) error {
	pages, err := paginatePosts(bs.posts, bs.cfg.Blog.PostsPerPage, "/blog/")
	if err != nil {
		return err
	}
	if len(pages) == 0 {
		data := bs.page("Blog", bs.cfg.Site.Description, "/blog/")
		data.Heading = "Blog"
		if err := bs.writePage(render.TemplateList, "/blog/", data); err != nil {
			return err
		}
	}
	for i := range pages {
		pg := &pages[i]
		title := "Blog"
		if pg.Number > 1 {
			title = fmt.Sprintf("Blog (page %d)", pg.Number)
		}
		data := bs.page(title, bs.cfg.Site.Description, pg.URL)
		data.Heading = "Blog"
		data.Pagination = pg
		if err := bs.writePage(render.TemplateList, pg.URL, data); err != nil {
			return err
		}
	}
	bs.addSitemap("/blog/", latest(bs.posts), "daily", 0.8)
	return nil
}

func stageTaxonomies(_ context.Context, bs *buildState) error {
	if err := bs.writeTaxonomy(bs.tags, "Tag", "Tags", "/tags/"); err != nil {
		return err
	}
	if bs.cfg.Features.Categories {
		return bs.writeTaxonomy(bs.categories, "Category", "Categories", "/categories/")
	}
	return nil
}

func (bs *buildState) writeTaxonomy(idx taxonomy.Index, singular, plural, termsURL string) error {
	groups := idx.Sorted()
	for _, g := range groups {
		pages, err := paginatePosts(g.Posts, bs.cfg.Blog.PostsPerPage, g.URL)
		if err != nil {
			return err
		}
		for i := range pages {
			pg := &pages[i]
			heading := fmt.Sprintf("%s: %s", singular, g.Label)
			data := bs.page(heading, fmt.Sprintf("Posts in %s %q", singular, g.Label), pg.URL)
			data.Heading = heading
			data.Pagination = pg
			if err := bs.writePage(render.TemplateTaxonomy, pg.URL, data); err != nil {
				return err
			}
		}
		bs.addSitemap(g.URL, latest(g.Posts), "weekly", 0.4)
	}

	data := bs.page(plural, "", termsURL)
	data.Heading = plural
	data.Groups = groups
	return bs.writePage(render.TemplateTerms, termsURL, data)
}

func stageHome(_ context.Context, bs *buildState) error {
	if !bs.hasIndexPage {
		limit := min(bs.cfg.Blog.PostsPerPage, len(bs.posts))
		data := bs.page("", bs.cfg.Site.Description, "/")
		data.Posts = bs.posts[:limit]
		if err := bs.writePage(render.TemplateHome, "/", data); err != nil {
			return err
		}
	}
	bs.addSitemap("/", latest(bs.posts), "daily", 1.0)
	return nil
}

func stageArchive(_ context.Context, bs *buildState) error {
	data := bs.page("Archive", "", "/archive/")
	data.Heading = "Archive"
	data.Archive = archive(bs.posts)
	if err := bs.writePage(render.TemplateArchive, "/archive/", data); err != nil {
		return err
	}
	bs.addSitemap("/archive/", latest(bs.posts), "weekly", 0.5)
	return nil
}

func stageSearch(_ context.Context, bs *buildState) error {
	data := bs.page("Search", "", "/search/")
	data.Heading = "Search"
	if err := bs.writePage(render.TemplateSearch, "/search/", data); err != nil {
		return err
	}
	index, err := seo.NewGenerator(bs.cfg).SearchIndex(bs.posts, bs.tags)
	if err != nil {
		return err
	}
	return bs.writer.WriteFile("search-index.json", index)
}

func stageNotFound(_ context.Context, bs *buildState) error {
	data := bs.page("Page not found", "", "/404.html")
	if err := bs.writePage(render.TemplateNotFound, "/404.html", data); err != nil {
		return err
	}
	return nil
}

func stageSEO(_ context.Context, bs *buildState) error {
	gen := seo.NewGenerator(bs.cfg)
	seoCfg := bs.cfg.SEO

	if seoCfg.Sitemap {
		data, err := gen.Sitemap(bs.sitemap)
		if err != nil {
			return err
		}
		if err := bs.writer.WriteFile("sitemap.xml", data); err != nil {
			return err
		}
	}
	feeds := []struct {
		enabled bool
		file    string
		render  func([]*content.Post) ([]byte, error)
	}{
		{seoCfg.RSS, "feed.xml", gen.RSS},
		{seoCfg.Atom, "atom.xml", gen.Atom},
		{seoCfg.JSONFeed, "feed.json", gen.JSONFeed},
	}
	for _, f := range feeds {
		if !f.enabled {
			continue
		}
		data, err := f.render(bs.posts)
		if err != nil {
			return err
		}
		if err := bs.writer.WriteFile(f.file, data); err != nil {
			return err
		}
	}
	if seoCfg.Robots {
		return bs.writer.WriteFile("robots.txt", gen.Robots(seoCfg.Sitemap))
	}
	return nil
}

func latest(posts []*content.Post) time.Time {
	if len(posts) == 0 {
		return time.Time{}
	}
	return posts[0].Date
}
