package seo

import (
	"encoding/xml"
	"fmt"
	"time"
)

// SitemapEntry is one URL of the sitemap.
type SitemapEntry struct {
	Path       string
	LastMod    time.Time
	ChangeFreq string
	Priority   float64
}

type urlset struct {
	XMLName xml.Name     `xml:"urlset"`
	Xmlns   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq,omitempty"`
	Priority   string `xml:"priority,omitempty"`
}

// Sitemap renders a sitemaps.org urlset.
func (g *Generator) Sitemap(entries []SitemapEntry) ([]byte, error) {
	set := urlset{Xmlns: "http://www.sitemaps.org/schemas/sitemap/0.9"}
	for _, e := range entries {
		u := sitemapURL{Loc: g.abs(e.Path), ChangeFreq: e.ChangeFreq}
		if !e.LastMod.IsZero() {
			u.LastMod = e.LastMod.UTC().Format("2006-01-02")
		}
		if e.Priority > 0 {
			u.Priority = fmt.Sprintf("%.1f", e.Priority)
		}
		set.URLs = append(set.URLs, u)
	}
	out, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode sitemap: %w", err)
	}
	return append([]byte(xml.Header), append(out, '\n')...), nil
}

// Robots renders robots.txt allowing everything and pointing at the sitemap.
func (g *Generator) Robots(includeSitemap bool) []byte {
	out := "User-agent: *\nAllow: /\n"
	if includeSitemap && g.cfg.Site.URL != "" {
		out += "\nSitemap: " + g.abs("/sitemap.xml") + "\n"
	}
	return []byte(out)
}
