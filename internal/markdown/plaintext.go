package markdown

import (
	"strings"

	"golang.org/x/net/html"
)

// PlainText strips tags from rendered HTML, drops script/style content and
// collapses whitespace.
func PlainText(fragment string) string {
	z := html.NewTokenizer(strings.NewReader(fragment))
	var b strings.Builder
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.StartTagToken:
			name, _ := z.TagName()
			switch {
			case isRawTextTag(string(name)):
				skip++
			case blockTags[string(name)]:
				b.WriteByte(' ')
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			switch {
			case isRawTextTag(string(name)):
				if skip > 0 {
					skip--
				}
			case blockTags[string(name)]:
				b.WriteByte(' ')
			}
		case html.SelfClosingTagToken:
			b.WriteByte(' ')
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		}
	}
}

var blockTags = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "ul": true, "ol": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"pre": true, "blockquote": true, "table": true, "tr": true, "td": true, "th": true,
	"section": true, "article": true, "hr": true, "dt": true, "dd": true,
}

func isRawTextTag(name string) bool {
	return name == "script" || name == "style"
}
