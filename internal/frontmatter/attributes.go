package frontmatter

import (
	"fmt"
	"strings"
	"time"
)

// Attributes is the decoded metadata block.
type Attributes map[string]any

// String returns the trimmed string form of key, or "".
func (a Attributes) String(key string) string {
	v, ok := a[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case time.Time:
		return t.Format(time.RFC3339)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

// Bool reports whether key holds true (or the string "true"/"yes").
func (a Attributes) Bool(key string) bool {
	switch t := a[key].(type) {
	case bool:
		return t
	case string:
		s := strings.ToLower(strings.TrimSpace(t))
		return s == "true" || s == "yes"
	default:
		return false
	}
}

// Strings returns key as a list. A single scalar becomes a one-element list
// (commas included) and absent keys yield an empty non-nil slice.
func (a Attributes) Strings(key string) []string {
	out := []string{}
	add := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	switch t := a[key].(type) {
	case nil:
	case []any:
		for _, item := range t {
			if item != nil {
				add(fmt.Sprint(item))
			}
		}
	case []string:
		for _, item := range t {
			add(item)
		}
	case string:
		add(t)
	default:
		add(fmt.Sprint(t))
	}
	return out
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Time parses key as a timestamp. Strings are tried against the accepted
// layouts; values without a zone are taken in local time. ok is false when
// the key is absent or unparsable.
func (a Attributes) Time(key string) (t time.Time, ok bool) {
	switch v := a[key].(type) {
	case time.Time:
		return v, true
	case string:
		s := strings.TrimSpace(v)
		for _, layout := range dateLayouts {
			if parsed, err := time.ParseInLocation(layout, s, time.Local); err == nil {
				return parsed, true
			}
		}
	}
	return time.Time{}, false
}

// Has reports whether key is present with a non-nil value.
func (a Attributes) Has(key string) bool {
	v, ok := a[key]
	return ok && v != nil
}
