// Package server is the development HTTP server: it serves the build output,
// injects the live reload script and exposes health and metrics endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	foundationerrors "git.home.luguber.info/inful/marksite/internal/foundation/errors"
	"git.home.luguber.info/inful/marksite/internal/livereload"
	"git.home.luguber.info/inful/marksite/internal/logfields"
	smw "git.home.luguber.info/inful/marksite/internal/server/middleware"
)

// Options configures a DevServer.
type Options struct {
	// Root is the build destination directory.
	Root string
	// BasePath is the site's path prefix ("" or "/sub").
	BasePath string
	// Host defaults to localhost.
	Host string
	Port int
	// LiveReload enables /livereload and script injection when non-nil.
	LiveReload *livereload.Hub
	// Status switches HTML responses to an error page while the latest build is broken.
	Status *BuildStatus
	// Metrics is served at /metrics when non-nil.
	Metrics http.Handler
	Logger  *slog.Logger
}

// DevServer serves a built site for local preview.
type DevServer struct {
	opts   Options
	router *chi.Mux
	srv    *http.Server
	ln     net.Listener
}

// New creates a DevServer and its routes. It does not listen yet.
func New(opts Options) *DevServer {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Host == "" {
		opts.Host = "localhost"
	}
	s := &DevServer{opts: opts, router: chi.NewRouter()}
	s.setupRoutes()
	return s
}

func (s *DevServer) setupRoutes() {
	r := s.router
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if s.opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.opts.Metrics)
	}

	var site http.Handler = &staticHandler{root: s.opts.Root, basePath: s.opts.BasePath, status: s.opts.Status}
	if hub := s.opts.LiveReload; hub != nil {
		r.Method(http.MethodGet, livereload.Path, hub)
		r.Method(http.MethodGet, livereload.ScriptPath, livereload.ScriptHandler())
		site = livereload.Inject(site)
	}
	r.Handle("/*", smw.Chain(s.opts.Logger)(site))
}

// Handler returns the router, for tests and embedding.
func (s *DevServer) Handler() http.Handler { return s.router }

// Start binds the port and serves in the background. A port that is already
// in use is reported immediately as a fatal server error.
func (s *DevServer) Start(ctx context.Context) error {
	addr := net.JoinHostPort(s.opts.Host, fmt.Sprint(s.opts.Port))
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryServer, "failed to bind dev server").
			WithContext("addr", addr).
			Fatal().
			Build()
	}
	s.ln = ln
	// No WriteTimeout: live reload streams stay open.
	s.srv = &http.Server{Handler: s.router, ReadHeaderTimeout: 10 * time.Second, IdleTimeout: 120 * time.Second}

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.opts.Logger.Error("Dev server error", logfields.Error(err))
		}
	}()
	s.opts.Logger.Info("Dev server listening", logfields.URL(s.URL()), logfields.Port(s.Port()))
	return nil
}

// Port returns the bound port, useful when Options.Port was 0.
func (s *DevServer) Port() int {
	if s.ln == nil {
		return s.opts.Port
	}
	if tcp, ok := s.ln.Addr().(*net.TCPAddr); ok {
		return tcp.Port
	}
	return s.opts.Port
}

// URL is the address to open in a browser.
func (s *DevServer) URL() string {
	return fmt.Sprintf("http://%s%s/", net.JoinHostPort(s.opts.Host, fmt.Sprint(s.Port())), s.opts.BasePath)
}

// Shutdown closes live reload streams and stops the server.
func (s *DevServer) Shutdown(ctx context.Context) error {
	if s.opts.LiveReload != nil {
		s.opts.LiveReload.Shutdown()
	}
	if s.srv == nil {
		return nil
	}
	if err := s.srv.Shutdown(ctx); err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryServer, "dev server shutdown failed").Build()
	}
	return nil
}
