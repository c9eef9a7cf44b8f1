// Package minify shrinks rendered HTML without changing what it displays.
package minify

import (
	"bytes"
	"errors"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// preserve lists elements whose text content is whitespace-sensitive.
var preserve = map[string]bool{
	"pre":      true,
	"textarea": true,
	"script":   true,
	"style":    true,
	"code":     true,
}

// HTML removes comments and collapses whitespace runs outside
// whitespace-sensitive elements. Tags and attributes are emitted exactly as
// written. On tokenizer failure the input is returned unchanged.
func HTML(src string) string {
	z := html.NewTokenizer(strings.NewReader(src))
	var out bytes.Buffer
	out.Grow(len(src))
	depth := 0
	lastWasSpace := false

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if !errors.Is(z.Err(), io.EOF) {
				return src
			}
			return strings.TrimSpace(out.String())
		case html.CommentToken:
			continue
		case html.StartTagToken:
			name, _ := z.TagName()
			if preserve[string(name)] {
				depth++
			}
			out.Write(z.Raw())
			lastWasSpace = false
		case html.EndTagToken:
			name, _ := z.TagName()
			if preserve[string(name)] && depth > 0 {
				depth--
			}
			out.Write(z.Raw())
			lastWasSpace = false
		case html.TextToken:
			raw := z.Raw()
			if depth > 0 {
				out.Write(raw)
				lastWasSpace = false
				continue
			}
			for _, b := range collapse(raw) {
				if b == ' ' {
					if lastWasSpace {
						continue
					}
					lastWasSpace = true
				} else {
					lastWasSpace = false
				}
				out.WriteByte(b)
			}
		default:
			out.Write(z.Raw())
			lastWasSpace = false
		}
	}
}

func collapse(text []byte) []byte {
	out := make([]byte, 0, len(text))
	space := false
	for _, b := range text {
		if b == ' ' || b == '\n' || b == '\t' || b == '\r' || b == '\f' {
			if !space {
				out = append(out, ' ')
				space = true
			}
			continue
		}
		space = false
		out = append(out, b)
	}
	return out
}
