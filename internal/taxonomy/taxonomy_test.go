package taxonomy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/marksite/internal/content"
)

func mkPost(title string, day int, tags, cats []string) *content.Post {
	return &content.Post{
		Title:      title,
		Date:       time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC),
		Tags:       tags,
		Categories: cats,
	}
}

func TestByTagCollapsesVariants(t *testing.T) {
	older := mkPost("older", 1, []string{"Go", "go"}, nil)
	newer := mkPost("newer", 5, []string{"go", "Web Dev"}, nil)
	middle := mkPost("middle", 3, []string{"GO!"}, nil)

	idx := ByTag([]*content.Post{older, newer, middle})
	require.Len(t, idx, 2)

	g := idx["go"]
	require.NotNil(t, g)
	assert.Equal(t, "Go", g.Label, "first spelling wins")
	assert.Equal(t, "/tag/go/", g.URL)
	assert.Equal(t, []*content.Post{newer, middle, older}, g.Posts)
	assert.Equal(t, 3, g.Count())

	assert.Equal(t, "Web Dev", idx["web-dev"].Label)
}

func TestByCategory(t *testing.T) {
	a := mkPost("a", 1, nil, []string{"Tools"})
	b := mkPost("b", 2, nil, []string{"tools", "tools"})

	idx := ByCategory([]*content.Post{a, b})
	require.Len(t, idx, 1)
	assert.Equal(t, "/category/tools/", idx["tools"].URL)
	assert.Equal(t, []*content.Post{b, a}, idx["tools"].Posts)
}

func TestEmptyLabelsIgnored(t *testing.T) {
	idx := ByTag([]*content.Post{mkPost("a", 1, []string{"", "!!!"}, nil)})
	assert.Empty(t, idx)
}

func TestOrderings(t *testing.T) {
	idx := ByTag([]*content.Post{
		mkPost("a", 1, []string{"zeta", "alpha"}, nil),
		mkPost("b", 2, []string{"zeta"}, nil),
	})
	sorted := idx.Sorted()
	require.Len(t, sorted, 2)
	assert.Equal(t, "alpha", sorted[0].Slug)
	assert.Equal(t, "zeta", idx.ByCount()[0].Slug)
}
