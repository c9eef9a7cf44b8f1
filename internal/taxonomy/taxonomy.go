// Package taxonomy groups posts by tag or category.
package taxonomy

import (
	"sort"

	"git.home.luguber.info/inful/marksite/internal/content"
	"git.home.luguber.info/inful/marksite/internal/slug"
)

// Group is every post carrying one tag or category.
type Group struct {
	Slug string
	// Label is the spelling of the first post that used this slug.
	Label string
	URL   string
	// Posts are sorted newest first and contain each post once.
	Posts []*content.Post
}

// Count returns the number of member posts.
func (g *Group) Count() int { return len(g.Posts) }

// Index maps group slugs to groups.
type Index map[string]*Group

// ByTag groups posts by tag. Group URLs are /tag/<slug>/.
func ByTag(posts []*content.Post) Index {
	return build(posts, func(p *content.Post) []string { return p.Tags }, "/tag/")
}

// ByCategory groups posts by category. Group URLs are /category/<slug>/.
func ByCategory(posts []*content.Post) Index {
	return build(posts, func(p *content.Post) []string { return p.Categories }, "/category/")
}

func build(posts []*content.Post, labels func(*content.Post) []string, prefix string) Index {
	idx := Index{}
	for _, p := range posts {
		seen := map[string]struct{}{}
		for _, label := range labels(p) {
			key := slug.Make(label)
			if key == "" {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}

			g, ok := idx[key]
			if !ok {
				g = &Group{Slug: key, Label: label, URL: prefix + key + "/"}
				idx[key] = g
			}
			g.Posts = append(g.Posts, p)
		}
	}
	for _, g := range idx {
		content.SortByDateDesc(g.Posts)
	}
	return idx
}

// Sorted returns the groups ordered by label (case-insensitive by slug).
func (idx Index) Sorted() []*Group {
	out := make([]*Group, 0, len(idx))
	for _, g := range idx {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out
}

// ByCount returns the groups with the most posts first, ties by slug.
func (idx Index) ByCount() []*Group {
	out := idx.Sorted()
	sort.SliceStable(out, func(i, j int) bool { return len(out[i].Posts) > len(out[j].Posts) })
	return out
}
