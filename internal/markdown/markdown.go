// Package markdown converts post bodies into HTML plus the metadata derived
// from them (excerpt, reading time, heading outline).
package markdown

import (
	"bytes"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
)

// WordsPerMinute is the reading speed used for reading time estimates.
const WordsPerMinute = 200

// Options configures a Transformer. It is passed explicitly so that
// concurrent collectors (and tests) never share renderer state.
type Options struct {
	// TableOfContents enables the heading outline (levels 2-4).
	TableOfContents bool
	// ExcerptLength is the rune budget of the automatic excerpt.
	ExcerptLength int
	// Typographer converts quotes and dashes into typographic entities.
	Typographer bool
}

// Heading is one entry of the outline.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
	ID    string `json:"id"`
}

// ReadingTime is a structured reading time estimate.
type ReadingTime struct {
	Minutes int    `json:"minutes"`
	Words   int    `json:"words"`
	Label   string `json:"label"`
}

// Result is the transformer output cached per source file.
type Result struct {
	HTML        string      `json:"html"`
	Excerpt     string      `json:"excerpt"`
	ReadingTime ReadingTime `json:"readingTime"`
	Outline     []Heading   `json:"outline,omitempty"`
}

// Transformer renders Markdown bodies. It is safe for concurrent use.
type Transformer struct {
	md   goldmark.Markdown
	opts Options
}

// New creates a Transformer for opts.
func New(opts Options) *Transformer {
	if opts.ExcerptLength <= 0 {
		opts.ExcerptLength = 200
	}
	exts := []goldmark.Extender{extension.GFM, extension.Footnote}
	if opts.Typographer {
		exts = append(exts, extension.Typographer)
	}
	return &Transformer{
		md: goldmark.New(
			goldmark.WithExtensions(exts...),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
			goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
		),
		opts: opts,
	}
}

// Options returns the configuration the transformer was built with.
func (t *Transformer) Options() Options { return t.opts }

// Transform converts body into HTML and derived metadata.
func (t *Transformer) Transform(body string) (*Result, error) {
	src := []byte(body)
	ctx := parser.NewContext(parser.WithIDs(newHeadingIDs()))
	doc := t.md.Parser().Parse(text.NewReader(src), parser.WithContext(ctx))

	var buf bytes.Buffer
	if err := t.md.Renderer().Render(&buf, src, doc); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}

	html := buf.String()
	res := &Result{
		HTML:        html,
		Excerpt:     Truncate(PlainText(html), t.opts.ExcerptLength),
		ReadingTime: EstimateReadingTime(body),
	}
	if t.opts.TableOfContents {
		res.Outline = outline(doc, src)
	}
	return res, nil
}

// EstimateReadingTime counts whitespace separated words at WordsPerMinute.
func EstimateReadingTime(body string) ReadingTime {
	words := len(strings.Fields(body))
	minutes := int(math.Ceil(float64(words) / WordsPerMinute))
	return ReadingTime{
		Minutes: minutes,
		Words:   words,
		Label:   fmt.Sprintf("%d min read", minutes),
	}
}

// Truncate cuts s to at most limit runes and appends "..." when it did.
func Truncate(s string, limit int) string {
	s = strings.TrimSpace(s)
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:limit])) + "..."
}

func outline(doc gmast.Node, src []byte) []Heading {
	var headings []Heading
	_ = gmast.Walk(doc, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		h, ok := n.(*gmast.Heading)
		if !ok {
			return gmast.WalkContinue, nil
		}
		if h.Level >= 2 && h.Level <= 4 {
			var id string
			if v, found := h.AttributeString("id"); found {
				if b, isBytes := v.([]byte); isBytes {
					id = string(b)
				}
			}
			headings = append(headings, Heading{
				Level: h.Level,
				Text:  strings.TrimSpace(nodeText(h, src)),
				ID:    id,
			})
		}
		return gmast.WalkSkipChildren, nil
	})
	return headings
}

func nodeText(n gmast.Node, src []byte) string {
	var b strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *gmast.Text:
			b.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *gmast.String:
			b.Write(t.Value)
		default:
			b.WriteString(nodeText(c, src))
		}
	}
	return b.String()
}
