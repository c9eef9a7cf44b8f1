package commands

import (
	"fmt"
	"log/slog"

	"git.home.luguber.info/inful/marksite/internal/config"
	"git.home.luguber.info/inful/marksite/internal/content"
	"git.home.luguber.info/inful/marksite/internal/logfields"
	"git.home.luguber.info/inful/marksite/internal/site"
)

// BuildCmd builds the site once, or keeps rebuilding on change with --watch.
type BuildCmd struct {
	Watch  bool `short:"w" help:"Rebuild when content, templates, assets or the config change."`
	Drafts bool `help:"Include posts marked as draft."`
	Future bool `help:"Include posts dated in the future."`
	Clean  bool `help:"Empty the destination directory before building."`
}

func (b *BuildCmd) overrides(cfg *config.Config) {
	if b.Drafts {
		cfg.Blog.IncludeDrafts = true
	}
	if b.Future {
		cfg.Blog.AllowFuture = true
	}
	if b.Clean {
		cfg.Build.Clean = true
	}
}

func (b *BuildCmd) Run(g *Global, cli *CLI) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg, err := cli.loadConfig(g)
	if err != nil {
		return err
	}
	b.overrides(cfg)

	if b.Watch {
		loop := newDevLoop(cli, g, b.overrides)
		return loop.run(ctx, cfg, nil)
	}

	report, err := site.NewBuilder(cfg, site.WithLogger(g.logger())).Build(ctx)
	if err != nil {
		return err
	}
	printReport(g, report)
	return nil
}

// printReport writes the build summary and per-file diagnostics.
func printReport(g *Global, report *site.Report) {
	out := g.out()
	_, _ = fmt.Fprintf(out, "Built %s\n", report.Summary())
	for _, d := range report.Skipped {
		if d.Reason == content.ReasonDraft || d.Reason == content.ReasonScheduled {
			g.logger().Debug("Post not published", logfields.Path(d.Path), logfields.Reason(string(d.Reason)))
			continue
		}
		_, _ = fmt.Fprintf(out, "  skipped %s: %s %s\n", d.Path, d.Reason, d.Detail)
	}
	for _, d := range report.Warnings {
		_, _ = fmt.Fprintf(out, "  warning %s: %s %s\n", d.Path, d.Reason, d.Detail)
	}
	if !report.NextScheduled.IsZero() {
		g.logger().Info("Next scheduled post", slog.Time("publish_at", report.NextScheduled))
	}
}
