// Package content collects blog posts from the posts directory.
//
// A Collector reads every Markdown file directly inside the posts directory,
// renders bodies through a Transformer (reusing cached output when the file
// is unchanged), applies the publication policy and returns the posts sorted
// newest first with related posts and previous/next links attached.
package content

import (
	"time"

	"git.home.luguber.info/inful/marksite/internal/frontmatter"
	"git.home.luguber.info/inful/marksite/internal/markdown"
)

// RelatedLimit caps the related-posts list.
const RelatedLimit = 3

// Post is one published blog post.
type Post struct {
	Title       string
	Slug        string
	URL         string
	Date        time.Time
	Draft       bool
	Tags        []string
	Categories  []string
	Author      string
	Description string
	Image       string
	HTML        string
	Excerpt     string
	ReadingTime markdown.ReadingTime
	// Outline is nil when the feature is disabled or the post has no headings.
	Outline []markdown.Heading
	Related []Ref
	// Previous is the older neighbour, Next the newer one.
	Previous *Ref
	Next     *Ref

	// SourcePath is relative to the posts directory.
	SourcePath  string
	ModTime     time.Time
	Fingerprint string
	Params      frontmatter.Attributes
}

// Ref is a lightweight reference to another post.
type Ref struct {
	Title   string
	Slug    string
	URL     string
	Date    time.Time
	Excerpt string
}

// Ref returns the lightweight reference for p.
func (p *Post) Ref() Ref {
	return Ref{Title: p.Title, Slug: p.Slug, URL: p.URL, Date: p.Date, Excerpt: p.Excerpt}
}

// PostURL returns the site-relative URL of a post slug.
func PostURL(slug string) string {
	return "/blog/" + slug + "/"
}
