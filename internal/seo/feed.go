package seo

import (
	"fmt"
	"time"

	"github.com/gorilla/feeds"

	"git.home.luguber.info/inful/marksite/internal/content"
)

// Feed builds the syndication feed over the newest posts.
func (g *Generator) Feed(posts []*content.Post) *feeds.Feed {
	site := g.cfg.Site
	feed := &feeds.Feed{
		Title:       site.Title,
		Link:        &feeds.Link{Href: g.abs("/")},
		Description: site.Description,
		Id:          g.abs("/"),
	}
	if site.Author != "" || site.Email != "" {
		feed.Author = &feeds.Author{Name: site.Author, Email: site.Email}
	}
	if site.Author != "" {
		feed.Copyright = fmt.Sprintf("© %s", site.Author)
	}

	limit := min(g.cfg.SEO.FeedItems, len(posts))
	for _, p := range posts[:limit] {
		item := &feeds.Item{
			Title:       p.Title,
			Link:        &feeds.Link{Href: g.abs(p.URL)},
			Id:          g.abs(p.URL),
			Description: p.Excerpt,
			Content:     p.HTML,
			Created:     p.Date,
			Updated:     p.ModTime,
		}
		if p.Author != "" {
			item.Author = &feeds.Author{Name: p.Author}
		}
		feed.Items = append(feed.Items, item)
	}

	if len(posts) > 0 {
		feed.Updated = posts[0].Date
		feed.Created = posts[0].Date
	} else {
		feed.Updated = time.Now()
	}
	return feed
}

// RSS renders an RSS 2.0 feed.
func (g *Generator) RSS(posts []*content.Post) ([]byte, error) {
	out, err := g.Feed(posts).ToRss()
	if err != nil {
		return nil, fmt.Errorf("encode rss: %w", err)
	}
	return []byte(out), nil
}

// Atom renders an Atom 1.0 feed.
func (g *Generator) Atom(posts []*content.Post) ([]byte, error) {
	out, err := g.Feed(posts).ToAtom()
	if err != nil {
		return nil, fmt.Errorf("encode atom: %w", err)
	}
	return []byte(out), nil
}

// JSONFeed renders a JSON Feed 1.0 document.
func (g *Generator) JSONFeed(posts []*content.Post) ([]byte, error) {
	out, err := g.Feed(posts).ToJSON()
	if err != nil {
		return nil, fmt.Errorf("encode json feed: %w", err)
	}
	return []byte(out), nil
}
