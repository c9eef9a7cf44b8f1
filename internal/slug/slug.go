// Package slug turns titles and labels into lowercase, hyphenated, URL-safe identifiers.
package slug

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// dropped characters vanish instead of becoming separators ("don't" -> "dont").
const dropped = `'"’*+~.()!:@`

var replacements = strings.NewReplacer(
	"&", " and ",
	"ß", "ss",
	"æ", "ae",
	"ø", "o",
	"đ", "d",
	"ł", "l",
	"œ", "oe",
)

// Make returns the slug for text. It is deterministic, lowercase and only
// contains [a-z0-9-]; accented letters fold to their ASCII base.
func Make(text string) string {
	folded := fold(strings.ToLower(text))

	var b strings.Builder
	b.Grow(len(folded))
	pendingHyphen := false
	for _, r := range folded {
		switch {
		case strings.ContainsRune(dropped, r):
			continue
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
		default:
			pendingHyphen = true
		}
	}
	return b.String()
}

// Unique returns base, or base-2, base-3... whichever is not yet in taken,
// and records the result.
func Unique(base string, taken map[string]struct{}) string {
	candidate := base
	for n := 2; ; n++ {
		if _, exists := taken[candidate]; !exists {
			taken[candidate] = struct{}{}
			return candidate
		}
		candidate = base + "-" + strconv.Itoa(n)
	}
}

func fold(s string) string {
	s = replacements.Replace(s)
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
