package content

import (
	"sort"

	"git.home.luguber.info/inful/marksite/internal/slug"
)

// RelatednessScore is the number of shared tags plus twice the number of
// shared categories. Labels are compared by slug.
func RelatednessScore(a, b *Post) int {
	return overlap(a.Tags, b.Tags) + 2*overlap(a.Categories, b.Categories)
}

func overlap(a, b []string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := labelSet(a)
	n := 0
	for key := range labelSet(b) {
		if _, ok := set[key]; ok {
			n++
		}
	}
	return n
}

func labelSet(labels []string) map[string]struct{} {
	set := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		if key := slug.Make(l); key != "" {
			set[key] = struct{}{}
		}
	}
	return set
}

// AttachRelated sets Related on every post: the top limit other posts with a
// positive score, highest score first, ties broken by newer date.
func AttachRelated(posts []*Post, limit int) {
	type candidate struct {
		post  *Post
		score int
	}
	for _, p := range posts {
		var candidates []candidate
		for _, other := range posts {
			if other == p {
				continue
			}
			if score := RelatednessScore(p, other); score > 0 {
				candidates = append(candidates, candidate{post: other, score: score})
			}
		}
		sort.SliceStable(candidates, func(i, j int) bool {
			if candidates[i].score != candidates[j].score {
				return candidates[i].score > candidates[j].score
			}
			return candidates[i].post.Date.After(candidates[j].post.Date)
		})
		if len(candidates) > limit {
			candidates = candidates[:limit]
		}
		related := make([]Ref, 0, len(candidates))
		for _, c := range candidates {
			related = append(related, c.post.Ref())
		}
		p.Related = related
	}
}

// AttachNavigation links each post of a newest-first list to its neighbours:
// Previous is the older post (next element), Next the newer one.
func AttachNavigation(posts []*Post) {
	for i, p := range posts {
		p.Previous, p.Next = nil, nil
		if i+1 < len(posts) {
			ref := posts[i+1].Ref()
			p.Previous = &ref
		}
		if i > 0 {
			ref := posts[i-1].Ref()
			p.Next = &ref
		}
	}
}
