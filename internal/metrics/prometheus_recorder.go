package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "marksite"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	stageDuration     *prom.HistogramVec
	buildDuration     prom.Histogram
	buildOutcome      *prom.CounterVec
	cacheLookups      *prom.CounterVec
	posts             *prom.GaugeVec
	filesWritten      *prom.CounterVec
	liveReloadClients prom.Gauge
	liveReloadSent    prom.Counter
}

// NewPrometheusRecorder constructs metrics and registers them with reg
// (a fresh registry when reg is nil).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual build stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"}),
		buildDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Total build duration",
			Buckets:   prom.DefBuckets,
		}),
		buildOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"outcome"}),
		cacheLookups: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Post cache lookups by result",
		}, []string{"result"}),
		posts: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "posts",
			Help:      "Posts in the last build by state",
		}, []string{"state"}),
		filesWritten: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "files_written_total",
			Help:      "Output files produced, split into changed and unchanged",
		}, []string{"result"}),
		liveReloadClients: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "livereload_clients",
			Help:      "Connected live reload clients",
		}),
		liveReloadSent: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "livereload_broadcasts_total",
			Help:      "Reload broadcasts sent to clients",
		}),
	}
	reg.MustRegister(pr.stageDuration, pr.buildDuration, pr.buildOutcome, pr.cacheLookups,
		pr.posts, pr.filesWritten, pr.liveReloadClients, pr.liveReloadSent)
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome BuildOutcomeLabel) {
	p.buildOutcome.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) AddCacheLookups(hits, misses int) {
	p.cacheLookups.WithLabelValues("hit").Add(float64(hits))
	p.cacheLookups.WithLabelValues("miss").Add(float64(misses))
}

func (p *PrometheusRecorder) SetPosts(published, skipped int) {
	p.posts.WithLabelValues("published").Set(float64(published))
	p.posts.WithLabelValues("skipped").Set(float64(skipped))
}

func (p *PrometheusRecorder) AddFilesWritten(written, changed int) {
	p.filesWritten.WithLabelValues("changed").Add(float64(changed))
	p.filesWritten.WithLabelValues("unchanged").Add(float64(written - changed))
}

func (p *PrometheusRecorder) SetLiveReloadClients(n int) {
	p.liveReloadClients.Set(float64(n))
}

func (p *PrometheusRecorder) IncLiveReloadBroadcast() {
	p.liveReloadSent.Inc()
}
