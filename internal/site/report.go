package site

import (
	"fmt"
	"time"

	"git.home.luguber.info/inful/marksite/internal/content"
	"git.home.luguber.info/inful/marksite/internal/metrics"
)

// Report summarises one build.
type Report struct {
	BuildID string
	Start   time.Time
	End     time.Time

	Posts    int
	Pages    int
	Skipped  []content.Diagnostic
	Warnings []content.Diagnostic

	CacheHits   int
	CacheMisses int
	Rendered    int

	FilesWritten int
	Changed      []string
	// Digest hashes every output path and its content.
	Digest string

	// NextScheduled is the earliest pending publication, zero if none.
	NextScheduled  time.Time
	StageDurations map[string]time.Duration
	Outcome        metrics.BuildOutcomeLabel
}

func newReport(id string, start time.Time) *Report {
	return &Report{BuildID: id, Start: start, StageDurations: map[string]time.Duration{}}
}

// Duration is the wall time of the build.
func (r *Report) Duration() time.Duration { return r.End.Sub(r.Start) }

func (r *Report) deriveOutcome() {
	if len(r.Warnings) > 0 {
		r.Outcome = metrics.BuildOutcomeWarning
		return
	}
	for _, d := range r.Skipped {
		if d.Reason != content.ReasonDraft && d.Reason != content.ReasonScheduled {
			r.Outcome = metrics.BuildOutcomeWarning
			return
		}
	}
	r.Outcome = metrics.BuildOutcomeSuccess
}

// Summary is a one-line human readable description.
func (r *Report) Summary() string {
	return fmt.Sprintf("%d posts, %d pages, %d skipped, %d warnings, %d files changed in %s",
		r.Posts, r.Pages, len(r.Skipped), len(r.Warnings), len(r.Changed), r.Duration().Round(time.Millisecond))
}
