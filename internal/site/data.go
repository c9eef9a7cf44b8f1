package site

import (
	"html/template"

	"git.home.luguber.info/inful/marksite/internal/config"
	"git.home.luguber.info/inful/marksite/internal/content"
	"git.home.luguber.info/inful/marksite/internal/paginate"
	"git.home.luguber.info/inful/marksite/internal/taxonomy"
)

// SiteInfo is the site-wide part of every template context.
type SiteInfo struct {
	Title       string
	Description string
	URL         string
	Language    string
	Author      string
	RSS         bool
	Atom        bool
	JSONFeed    bool
	Search      bool
}

func siteInfo(cfg *config.Config) SiteInfo {
	return SiteInfo{
		Title:       cfg.Site.Title,
		Description: cfg.Site.Description,
		URL:         cfg.AbsoluteURL("/"),
		Language:    cfg.Site.Language,
		Author:      cfg.Site.Author,
		RSS:         cfg.SEO.RSS,
		Atom:        cfg.SEO.Atom,
		JSONFeed:    cfg.SEO.JSONFeed,
		Search:      cfg.Features.Search,
	}
}

// PageData is the template context. Only the fields relevant to a page
// kind are set.
type PageData struct {
	Site        SiteInfo
	Title       string
	Description string
	Canonical   string
	Heading     string

	Post       *content.Post
	Posts      []*content.Post
	Pagination *paginate.Page[*content.Post]
	Groups     []*taxonomy.Group
	Archive    []ArchiveGroup
	Content    template.HTML
}

// ArchiveGroup is the posts of one calendar month.
type ArchiveGroup struct {
	Label string
	Posts []*content.Post
}

// archive groups posts (already newest first) by year and month.
func archive(posts []*content.Post) []ArchiveGroup {
	var out []ArchiveGroup
	for _, p := range posts {
		label := p.Date.Format("January 2006")
		if n := len(out); n > 0 && out[n-1].Label == label {
			out[n-1].Posts = append(out[n-1].Posts, p)
			continue
		}
		out = append(out, ArchiveGroup{Label: label, Posts: []*content.Post{p}})
	}
	return out
}
