package seo

import (
	"encoding/json"
	"fmt"
	"time"

	"git.home.luguber.info/inful/marksite/internal/content"
	"git.home.luguber.info/inful/marksite/internal/markdown"
	"git.home.luguber.info/inful/marksite/internal/taxonomy"
)

// SearchDocument is one post in search-index.json.
type SearchDocument struct {
	Title      string    `json:"title"`
	URL        string    `json:"url"`
	Date       time.Time `json:"date"`
	Excerpt    string    `json:"excerpt"`
	Content    string    `json:"content"`
	Tags       []string  `json:"tags"`
	Categories []string  `json:"categories"`
}

// SearchTag is a tag with its post count.
type SearchTag struct {
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Count int    `json:"count"`
}

// SearchIndex is the search-index.json document.
type SearchIndex struct {
	Posts []SearchDocument `json:"posts"`
	Tags  []SearchTag      `json:"tags"`
}

// SearchIndex renders the client-side search index. URLs include the base path.
func (g *Generator) SearchIndex(posts []*content.Post, tags taxonomy.Index) ([]byte, error) {
	idx := SearchIndex{Posts: make([]SearchDocument, 0, len(posts)), Tags: []SearchTag{}}
	for _, p := range posts {
		idx.Posts = append(idx.Posts, SearchDocument{
			Title:      p.Title,
			URL:        g.cfg.BasePath() + p.URL,
			Date:       p.Date,
			Excerpt:    p.Excerpt,
			Content:    markdown.Truncate(markdown.PlainText(p.HTML), SearchContentLimit),
			Tags:       p.Tags,
			Categories: p.Categories,
		})
	}
	for _, grp := range tags.ByCount() {
		idx.Tags = append(idx.Tags, SearchTag{Name: grp.Label, Slug: grp.Slug, Count: grp.Count()})
	}
	out, err := json.Marshal(idx)
	if err != nil {
		return nil, fmt.Errorf("encode search index: %w", err)
	}
	return out, nil
}
