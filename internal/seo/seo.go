// Package seo generates the sitemap, syndication feeds, robots.txt and the
// client-side search index from the collected posts.
package seo

import (
	"git.home.luguber.info/inful/marksite/internal/config"
)

// SearchContentLimit caps the plain-text content stored per post in the search index.
const SearchContentLimit = 5000

// Generator produces SEO artifacts for one site.
type Generator struct {
	cfg *config.Config
}

// NewGenerator creates a Generator. cfg.Site.URL must be set for artifacts
// that need absolute URLs.
func NewGenerator(cfg *config.Config) *Generator {
	return &Generator{cfg: cfg}
}

func (g *Generator) abs(path string) string {
	return g.cfg.AbsoluteURL(path)
}
