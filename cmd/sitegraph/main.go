package main

import (
	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/sitegraph/cmd/sitegraph/commands"
	"git.home.luguber.info/inful/sitegraph/internal/version"
)

func main() {
	cli := &commands.CLI{}
	ctx := kong.Parse(cli,
		kong.Name("sitegraph"),
		kong.Description("Incremental static-content build pipeline"),
		kong.Vars{"version": version.Version},
	)
	err := ctx.Run(&commands.Global{}, cli)
	ctx.FatalIfErrorf(err)
}
