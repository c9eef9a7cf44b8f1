package site

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/marksite/internal/config"
	foundationerrors "git.home.luguber.info/inful/marksite/internal/foundation/errors"
	"git.home.luguber.info/inful/marksite/internal/logfields"
	"git.home.luguber.info/inful/marksite/internal/markdown"
	"git.home.luguber.info/inful/marksite/internal/metrics"
	"git.home.luguber.info/inful/marksite/internal/minify"
	"git.home.luguber.info/inful/marksite/internal/observability"
	"git.home.luguber.info/inful/marksite/internal/output"
	"git.home.luguber.info/inful/marksite/internal/render"
)

// Builder builds the site described by a configuration.
type Builder struct {
	cfg         *config.Config
	transformer *markdown.Transformer
	recorder    metrics.Recorder
	logger      *slog.Logger
	now         func() time.Time
}

// Option configures a Builder.
type Option func(*Builder)

// WithRecorder reports build metrics to r.
func WithRecorder(r metrics.Recorder) Option {
	return func(b *Builder) {
		if r != nil {
			b.recorder = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithClock overrides the time used for publication decisions.
func WithClock(now func() time.Time) Option { return func(b *Builder) { b.now = now } }

// NewBuilder creates a Builder. The Markdown transformer is created once
// and shared by every build of this Builder.
func NewBuilder(cfg *config.Config, opts ...Option) *Builder {
	b := &Builder{
		cfg: cfg,
		transformer: markdown.New(markdown.Options{
			TableOfContents: cfg.Features.TableOfContents,
			ExcerptLength:   cfg.Blog.ExcerptLength,
			Typographer:     true,
		}),
		recorder: metrics.NoopRecorder{},
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Config returns the configuration the builder was created with.
func (b *Builder) Config() *config.Config { return b.cfg }

// Build runs every stage once. The report is returned even when a stage
// fails so callers can inspect what happened.
func (b *Builder) Build(ctx context.Context) (*Report, error) {
	start := time.Now()
	report := newReport(uuid.NewString(), start)
	ctx = observability.WithBuildID(ctx, report.BuildID)
	logger := observability.Logger(ctx, b.logger)

	logger.Info("Starting build",
		logfields.Path(b.cfg.Build.Source),
		slog.String("destination", b.cfg.Build.Destination))

	var transform output.Transform
	if b.cfg.Features.Minify {
		transform = minify.HTML
	}
	bs := &buildState{
		cfg:         b.cfg,
		now:         b.now,
		logger:      logger,
		report:      report,
		recorder:    b.recorder,
		transformer: b.transformer,
		writer:      output.NewWriter(b.cfg.Build.Destination, output.WithTransform(transform)),
		renderer: render.New(render.Options{
			Dir:        b.cfg.Build.Templates,
			BasePath:   b.cfg.BasePath(),
			DateFormat: b.cfg.Blog.DateFormat,
		}),
		site: siteInfo(b.cfg),
	}

	err := runStages(ctx, bs, pipeline(b.cfg))

	report.FilesWritten = len(bs.writer.Written())
	report.Changed = bs.writer.Changed()
	report.Digest = bs.writer.Digest()
	report.End = time.Now()
	b.recorder.ObserveBuildDuration(report.Duration())
	b.recorder.AddFilesWritten(report.FilesWritten, len(report.Changed))

	if err != nil {
		report.Outcome = metrics.BuildOutcomeFailed
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			report.Outcome = metrics.BuildOutcomeCanceled
		}
		b.recorder.IncBuildOutcome(report.Outcome)
		logger.Error("Build failed", logfields.Error(err), logfields.Since(report.Start))
		return report, err
	}

	report.deriveOutcome()
	b.recorder.IncBuildOutcome(report.Outcome)
	logger.Info("Build complete",
		slog.Int("posts", report.Posts),
		slog.Int("pages", report.Pages),
		slog.Int("skipped", len(report.Skipped)),
		slog.Int("changed", len(report.Changed)),
		slog.String("outcome", string(report.Outcome)),
		logfields.Since(report.Start))
	return report, nil
}

func classify(stage StageName, err error) error {
	if _, ok := foundationerrors.AsClassified(err); ok {
		return err
	}
	return foundationerrors.WrapError(err, foundationerrors.CategoryBuild, "build stage failed").
		WithContext("stage", string(stage)).
		Fatal().
		Build()
}
