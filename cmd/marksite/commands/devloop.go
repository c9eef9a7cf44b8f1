package commands

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/marksite/internal/config"
	"git.home.luguber.info/inful/marksite/internal/livereload"
	"git.home.luguber.info/inful/marksite/internal/logfields"
	"git.home.luguber.info/inful/marksite/internal/metrics"
	"git.home.luguber.info/inful/marksite/internal/schedule"
	"git.home.luguber.info/inful/marksite/internal/server"
	"git.home.luguber.info/inful/marksite/internal/site"
	"git.home.luguber.info/inful/marksite/internal/watch"
)

const shutdownTimeout = 5 * time.Second

// devLoop rebuilds the site whenever its inputs change. It backs both
// `build --watch` and `serve`; the latter adds a server and a live reload hub.
type devLoop struct {
	cli      *CLI
	global   *Global
	override func(*config.Config)
	recorder metrics.Recorder
	logger   *slog.Logger

	hub       *livereload.Hub
	status    *server.BuildStatus
	publisher *schedule.Publisher
}

func newDevLoop(cli *CLI, g *Global, override func(*config.Config)) *devLoop {
	return &devLoop{
		cli:      cli,
		global:   g,
		override: override,
		recorder: metrics.NoopRecorder{},
		logger:   g.logger(),
		status:   &server.BuildStatus{},
	}
}

// build reloads the configuration so edits to config.yaml take effect, then
// runs one build.
func (l *devLoop) build(ctx context.Context) (*site.Report, error) {
	cfg, err := l.cli.loadConfig(l.global)
	if err != nil {
		return nil, err
	}
	if l.override != nil {
		l.override(cfg)
	}
	builder := site.NewBuilder(cfg, site.WithRecorder(l.recorder), site.WithLogger(l.logger))
	return builder.Build(ctx)
}

// rebuild is the debouncer callback. Failures are logged and shown on the
// status page; they never stop the loop.
func (l *devLoop) rebuild(ctx context.Context) {
	report, err := l.build(ctx)
	if err != nil {
		if ctx.Err() != nil && errors.Is(err, context.Canceled) {
			return
		}
		l.logger.Error("Rebuild failed", logfields.Error(err))
		l.status.SetError(err)
	} else {
		l.status.SetSuccess()
		if l.publisher != nil {
			l.publisher.SetNext(report.NextScheduled)
		}
		l.logger.Info("Rebuild complete", slog.String("summary", report.Summary()))
	}
	if l.hub != nil {
		n := l.hub.Broadcast()
		l.logger.Debug("Live reload broadcast", logfields.Clients(n))
	}
}

// run starts srv when given, performs the initial build and watches until
// ctx is canceled.
func (l *devLoop) run(ctx context.Context, cfg *config.Config, srv *server.DevServer) error {
	// Bind before building so a taken port fails fast; until the first build
	// lands the server answers with the pending page.
	if srv != nil {
		if err := srv.Start(ctx); err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				l.logger.Warn("Dev server shutdown error", logfields.Error(err))
			}
		}()
	}

	report, err := l.build(ctx)
	switch {
	case err != nil && ctx.Err() != nil:
		return err
	case err != nil:
		l.logger.Error("Initial build failed, waiting for changes", logfields.Error(err))
		l.status.SetError(err)
	default:
		l.status.SetSuccess()
		l.logger.Info("Build complete", slog.String("summary", report.Summary()))
	}

	paths := []string{cfg.Build.Source, cfg.Build.Templates, cfg.Build.Assets, cfg.Path()}
	watcher, err := watch.New(paths,
		watch.WithIgnoredDir(cfg.Build.Destination),
		watch.WithLogger(l.logger),
	)
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	debouncer := watch.NewDebouncer(cfg.Server.Debounce, l.rebuild)
	defer debouncer.Stop()

	publisher, err := schedule.NewPublisher(cfg.Server.ScheduleInterval, debouncer.Trigger, l.logger)
	if err != nil {
		return err
	}
	if report != nil {
		publisher.SetNext(report.NextScheduled)
	}
	if err := publisher.Start(ctx); err != nil {
		return err
	}
	l.publisher = publisher
	defer func() {
		if err := publisher.Stop(); err != nil {
			l.logger.Warn("Failed to stop publication scheduler", logfields.Error(err))
		}
	}()

	go debouncer.Run(ctx)
	l.logger.Info("Watching for changes", slog.Any("paths", watcher.Paths()))

	err = watcher.Run(ctx, func(path string) {
		l.logger.Debug("Change detected", logfields.Path(path))
		debouncer.Trigger()
	})
	l.logger.Info("Stopping watch loop")
	return err
}
