package commands

import (
	"net/http"

	"git.home.luguber.info/inful/marksite/internal/config"
	"git.home.luguber.info/inful/marksite/internal/livereload"
	"git.home.luguber.info/inful/marksite/internal/metrics"
	"git.home.luguber.info/inful/marksite/internal/server"
)

// ServeCmd builds the site, serves it and rebuilds on change.
type ServeCmd struct {
	Port         int    `short:"p" help:"Port to listen on (defaults to server.port)."`
	Host         string `default:"localhost" help:"Interface to bind."`
	NoLiveReload bool   `name:"no-live-reload" help:"Disable the live reload stream and script injection."`
	Drafts       bool   `help:"Include posts marked as draft."`
	Future       bool   `help:"Include posts dated in the future."`
}

func (s *ServeCmd) overrides(cfg *config.Config) {
	if s.Drafts {
		cfg.Blog.IncludeDrafts = true
	}
	if s.Future {
		cfg.Blog.AllowFuture = true
	}
	if s.Port > 0 {
		cfg.Server.Port = s.Port
	}
	if s.NoLiveReload {
		cfg.Server.LiveReload = false
	}
}

func (s *ServeCmd) Run(g *Global, cli *CLI) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg, err := cli.loadConfig(g)
	if err != nil {
		return err
	}
	s.overrides(cfg)

	loop := newDevLoop(cli, g, s.overrides)

	var metricsHandler http.Handler
	if cfg.Server.Metrics {
		reg := metrics.NewRegistry()
		loop.recorder = metrics.NewPrometheusRecorder(reg)
		metricsHandler = metrics.HTTPHandler(reg)
	}
	if cfg.Server.LiveReload {
		loop.hub = livereload.NewHub(
			livereload.WithRecorder(loop.recorder),
			livereload.WithLogger(loop.logger),
		)
	}

	srv := server.New(server.Options{
		Root:       cfg.Build.Destination,
		BasePath:   cfg.BasePath(),
		Host:       s.Host,
		Port:       cfg.Server.Port,
		LiveReload: loop.hub,
		Status:     loop.status,
		Metrics:    metricsHandler,
		Logger:     loop.logger,
	})

	return loop.run(ctx, cfg, srv)
}
