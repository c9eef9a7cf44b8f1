package content

import "time"

// Reason explains why a file produced a diagnostic.
type Reason string

const (
	ReasonMissingTitle       Reason = "missing title"
	ReasonDraft              Reason = "draft"
	ReasonScheduled          Reason = "scheduled"
	ReasonInvalidFrontMatter Reason = "invalid front matter"
	ReasonUnreadable         Reason = "read error"
	ReasonRenderFailed       Reason = "render error"

	// Warnings: the post is still published.
	ReasonInvalidDate   Reason = "invalid date"
	ReasonSlugCollision Reason = "slug collision"
)

// Diagnostic is a per-file report entry. Per-file problems never abort a
// collection; they end up here instead.
type Diagnostic struct {
	Path   string
	Reason Reason
	Detail string
	// PublishAt is set for scheduled posts.
	PublishAt time.Time
}

// Result is the output of one collection pass.
type Result struct {
	Posts    []*Post
	Skipped  []Diagnostic
	Warnings []Diagnostic
	// NextScheduled is the earliest publication time of an excluded
	// future-dated post, zero when there is none.
	NextScheduled time.Time
	CacheHits     int
	CacheMisses   int
	// Rendered counts files that went through the transformer.
	Rendered int
}

// SkippedFor returns the skipped diagnostics with the given reason.
func (r *Result) SkippedFor(reason Reason) []Diagnostic {
	var out []Diagnostic
	for _, d := range r.Skipped {
		if d.Reason == reason {
			out = append(out, d)
		}
	}
	return out
}
