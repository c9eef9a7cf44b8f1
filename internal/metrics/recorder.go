package metrics

import "time"

// BuildOutcomeLabel enumerates final build states for counters.
type BuildOutcomeLabel string

const (
	BuildOutcomeSuccess  BuildOutcomeLabel = "success"
	BuildOutcomeWarning  BuildOutcomeLabel = "warning"
	BuildOutcomeFailed   BuildOutcomeLabel = "failed"
	BuildOutcomeCanceled BuildOutcomeLabel = "canceled"
)

// Recorder defines observability hooks for builds and the dev loop.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	ObserveBuildDuration(d time.Duration)
	IncBuildOutcome(outcome BuildOutcomeLabel)
	AddCacheLookups(hits, misses int)
	SetPosts(published, skipped int)
	AddFilesWritten(written, changed int)
	SetLiveReloadClients(n int)
	IncLiveReloadBroadcast()
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) ObserveBuildDuration(time.Duration)         {}
func (NoopRecorder) IncBuildOutcome(BuildOutcomeLabel)          {}
func (NoopRecorder) AddCacheLookups(int, int)                   {}
func (NoopRecorder) SetPosts(int, int)                          {}
func (NoopRecorder) AddFilesWritten(int, int)                   {}
func (NoopRecorder) SetLiveReloadClients(int)                   {}
func (NoopRecorder) IncLiveReloadBroadcast()                    {}
