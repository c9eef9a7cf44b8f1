// Package paginate splits ordered items into fixed-size pages.
package paginate

import (
	"fmt"
	"strconv"
	"strings"
)

// Page is one page of a paginated listing.
type Page[T any] struct {
	Number     int
	Items      []T
	TotalPages int
	IsFirst    bool
	IsLast     bool
	// URL is this page's URL; PrevURL/NextURL are empty at the boundaries.
	URL     string
	PrevURL string
	NextURL string
}

// URLFunc maps a 1-based page number to its URL.
type URLFunc func(page int) string

// PathURLs returns the URL scheme used for listings: page 1 lives at base,
// page n at base + "page/n/". base must end with "/".
func PathURLs(base string) URLFunc {
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return func(page int) string {
		if page <= 1 {
			return base
		}
		return base + "page/" + strconv.Itoa(page) + "/"
	}
}

// Paginate splits items into pages of perPage. Zero items yield zero pages.
// The item slices share the backing array of items.
func Paginate[T any](items []T, perPage int, urlFor URLFunc) ([]Page[T], error) {
	if perPage <= 0 {
		return nil, fmt.Errorf("page size must be positive, got %d", perPage)
	}
	if urlFor == nil {
		urlFor = PathURLs("/")
	}
	total := (len(items) + perPage - 1) / perPage
	pages := make([]Page[T], 0, total)
	for n := 1; n <= total; n++ {
		start := (n - 1) * perPage
		end := min(start+perPage, len(items))
		page := Page[T]{
			Number:     n,
			Items:      items[start:end:end],
			TotalPages: total,
			IsFirst:    n == 1,
			IsLast:     n == total,
			URL:        urlFor(n),
		}
		if n > 1 {
			page.PrevURL = urlFor(n - 1)
		}
		if n < total {
			page.NextURL = urlFor(n + 1)
		}
		pages = append(pages, page)
	}
	return pages, nil
}
