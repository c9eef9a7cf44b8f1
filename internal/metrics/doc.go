// Package metrics provides build and dev-loop metrics for marksite.
//
// Components receive a Recorder through dependency injection. NoopRecorder is
// the default so nothing needs nil checks; the dev server swaps in a
// PrometheusRecorder and exposes its registry at /metrics.
//
//	reg := prometheus.NewRegistry()
//	rec := metrics.NewPrometheusRecorder(reg)
//	builder := site.NewBuilder(cfg, site.WithRecorder(rec))
package metrics
