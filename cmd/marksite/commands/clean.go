package commands

import (
	"fmt"

	"git.home.luguber.info/inful/marksite/internal/buildcache"
	"git.home.luguber.info/inful/marksite/internal/output"
)

// CleanCmd empties the destination directory.
type CleanCmd struct {
	Cache bool `help:"Also delete the post cache file."`
}

func (c *CleanCmd) Run(g *Global, cli *CLI) error {
	cfg, err := cli.loadConfig(g)
	if err != nil {
		return err
	}
	if err := output.Clean(cfg.Build.Destination); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(g.out(), "Cleaned %s\n", cfg.Build.Destination)
	if !c.Cache {
		return nil
	}
	if err := buildcache.Clear(cfg.CachePath()); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(g.out(), "Removed cache %s\n", cfg.CachePath())
	return nil
}
