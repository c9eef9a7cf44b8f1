package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/marksite/cmd/marksite/commands"
	foundationerrors "git.home.luguber.info/inful/marksite/internal/foundation/errors"
	"git.home.luguber.info/inful/marksite/internal/version"
)

func main() {
	cli := &commands.CLI{}
	parser := kong.Parse(cli,
		kong.Name("marksite"),
		kong.Description("Static blog generator with a live reloading dev server."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)

	err := parser.Run(&commands.Global{Logger: slog.Default(), Out: os.Stdout}, cli)
	foundationerrors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
}
