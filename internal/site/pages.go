package site

import (
	"context"
	"html/template"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"git.home.luguber.info/inful/marksite/internal/content"
	"git.home.luguber.info/inful/marksite/internal/frontmatter"
	"git.home.luguber.info/inful/marksite/internal/logfields"
	"git.home.luguber.info/inful/marksite/internal/paginate"
	"git.home.luguber.info/inful/marksite/internal/render"
	"git.home.luguber.info/inful/marksite/internal/slug"
)

func paginatePosts(posts []*content.Post, perPage int, base string) ([]paginate.Page[*content.Post], error) {
	return paginate.Paginate(posts, perPage, paginate.PathURLs(base))
}

// standalonePage is a Markdown file at the top of the content directory.
type standalonePage struct {
	title       string
	description string
	url         string
	html        string
	modTime     time.Time
}

// stagePages renders top-level Markdown files of the content root:
// index.md becomes "/", about.md "/about/". Broken or draft pages are
// skipped with a log entry; they never fail the build.
func stagePages(ctx context.Context, bs *buildState) error {
	pages, err := loadPages(bs)
	if err != nil {
		return err
	}
	for _, pg := range pages {
		if err := ctx.Err(); err != nil {
			return err
		}
		data := bs.page(pg.title, pg.description, pg.url)
		data.Content = template.HTML(pg.html) //nolint:gosec // rendered Markdown is trusted site content
		if err := bs.writePage(render.TemplatePage, pg.url, data); err != nil {
			return err
		}
		// The home stage adds "/" to the sitemap.
		if pg.url == "/" {
			bs.hasIndexPage = true
			continue
		}
		bs.addSitemap(pg.url, pg.modTime, "monthly", 0.6)
	}
	return nil
}

func loadPages(bs *buildState) ([]standalonePage, error) {
	entries, err := os.ReadDir(bs.cfg.Build.Source)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") || !content.IsMarkdown(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var out []standalonePage
	taken := map[string]struct{}{}
	for _, name := range names {
		source := filepath.Join(bs.cfg.Build.Source, name)
		pg, ok := bs.loadPage(source, name)
		if !ok {
			continue
		}
		if _, dup := taken[pg.url]; dup {
			bs.logger.Warn("Duplicate page URL, skipping", logfields.File(name), logfields.URL(pg.url))
			continue
		}
		taken[pg.url] = struct{}{}
		out = append(out, pg)
	}
	return out, nil
}

func (bs *buildState) loadPage(source, name string) (standalonePage, bool) {
	info, err := os.Stat(source)
	if err != nil {
		bs.logger.Warn("Page unreadable", logfields.File(name), logfields.Error(err))
		return standalonePage{}, false
	}
	raw, err := os.ReadFile(source)
	if err != nil {
		bs.logger.Warn("Page unreadable", logfields.File(name), logfields.Error(err))
		return standalonePage{}, false
	}
	doc, err := frontmatter.Parse(raw)
	if err != nil {
		bs.logger.Warn("Page has invalid front matter", logfields.File(name), logfields.Error(err))
		return standalonePage{}, false
	}
	attrs := doc.Attributes
	if attrs.Bool("draft") && !bs.cfg.Blog.IncludeDrafts {
		bs.logger.Debug("Skipping draft page", logfields.File(name))
		return standalonePage{}, false
	}
	res, err := bs.transformer.Transform(doc.Body)
	if err != nil {
		bs.logger.Warn("Page failed to render", logfields.File(name), logfields.Error(err))
		return standalonePage{}, false
	}

	base := strings.TrimSuffix(name, filepath.Ext(name))
	title := attrs.String("title")
	if title == "" {
		title = cases.Title(language.English).String(strings.NewReplacer("-", " ", "_", " ").Replace(base))
	}
	url := "/"
	if !strings.EqualFold(base, "index") {
		s := attrs.String("slug")
		if s == "" {
			s = base
		}
		url = "/" + slug.Make(s) + "/"
	}
	description := attrs.String("description")
	if description == "" {
		description = res.Excerpt
	}
	return standalonePage{title: title, description: description, url: url, html: res.HTML, modTime: info.ModTime()}, true
}
