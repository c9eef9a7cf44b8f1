package markdown

import (
	"strconv"

	gmast "github.com/yuin/goldmark/ast"

	"git.home.luguber.info/inful/marksite/internal/slug"
)

// headingIDs generates heading anchors with the site's slug rules, so that
// outline links and tag/post slugs agree. A fresh instance is used per document.
type headingIDs struct {
	seen map[string]int
}

func newHeadingIDs() *headingIDs {
	return &headingIDs{seen: map[string]int{}}
}

func (s *headingIDs) Generate(value []byte, _ gmast.NodeKind) []byte {
	base := slug.Make(string(value))
	if base == "" {
		base = "section"
	}
	n, exists := s.seen[base]
	s.seen[base] = n + 1
	if !exists {
		return []byte(base)
	}
	id := base + "-" + strconv.Itoa(n)
	s.seen[id]++
	return []byte(id)
}

func (s *headingIDs) Put(value []byte) {
	s.seen[string(value)]++
}
