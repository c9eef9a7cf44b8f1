// Package commands implements the marksite command line.
package commands

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/marksite/internal/config"
)

// Global is passed to every command's Run method.
type Global struct {
	Logger *slog.Logger
	// Out receives command output meant for the user (reports, doctor results).
	Out io.Writer
}

// CLI definition and global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path (or MARKSITE_CONFIG)." default:"config.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging."`
	Version kong.VersionFlag `name:"version" help:"Show version and exit."`

	Build    BuildCmd    `cmd:"" help:"Build the site once, or keep rebuilding with --watch."`
	Serve    ServeCmd    `cmd:"" help:"Build, serve with live reload and rebuild on change."`
	Clean    CleanCmd    `cmd:"" help:"Empty the destination directory."`
	Cache    CacheCmd    `cmd:"" help:"Manage the post cache."`
	Doctor   DoctorCmd   `cmd:"" help:"Check configuration and content for problems."`
	VersionCmd VersionCmd `cmd:"" name:"version" help:"Print version information."`
}

// AfterApply runs after flag parsing; it sets up logging once. The
// config file may refine level and format later (see applyLogging).
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := config.NormalizeLogLevel(os.Getenv("MARKSITE_LOG_LEVEL"))
	if c.Verbose {
		level = config.LogLevelDebug
	}
	setupLogging(level, config.NormalizeLogFormat(os.Getenv("MARKSITE_LOG_FORMAT")))
	return nil
}

func setupLogging(level config.LogLevel, format config.LogFormat) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level.SlogLevel()}
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if format == config.LogFormatJSON {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// loadConfig resolves and loads the configuration file, then applies its
// logging section unless the environment or --verbose already decided.
func (c *CLI) loadConfig(g *Global) (*config.Config, error) {
	cfg, err := config.Load(config.ResolvePath(c.Config))
	if err != nil {
		return nil, err
	}
	c.applyLogging(g, cfg)
	return cfg, nil
}

func (c *CLI) applyLogging(g *Global, cfg *config.Config) {
	if c.Verbose || os.Getenv("MARKSITE_LOG_LEVEL") != "" {
		return
	}
	format := cfg.Logging.Format
	if env := os.Getenv("MARKSITE_LOG_FORMAT"); env != "" {
		format = config.NormalizeLogFormat(env)
	}
	g.Logger = setupLogging(cfg.Logging.Level, format)
}

func (g *Global) logger() *slog.Logger {
	if g.Logger == nil {
		return slog.Default()
	}
	return g.Logger
}

func (g *Global) out() io.Writer {
	if g.Out == nil {
		return os.Stdout
	}
	return g.Out
}

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
