package commands

import (
	"fmt"

	"git.home.luguber.info/inful/marksite/internal/buildcache"
)

// CacheCmd groups cache maintenance subcommands.
type CacheCmd struct {
	Clear CacheClearCmd `cmd:"" help:"Delete the post cache so the next build renders every post."`
}

// CacheClearCmd deletes the cache file. A missing file is fine.
type CacheClearCmd struct{}

func (c *CacheClearCmd) Run(g *Global, cli *CLI) error {
	cfg, err := cli.loadConfig(g)
	if err != nil {
		return err
	}
	if err := buildcache.Clear(cfg.CachePath()); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(g.out(), "Removed cache %s\n", cfg.CachePath())
	return nil
}
