package main

import (
	"context"

	"github.com/alecthomas/kong"
	"github.com/wolfeidau/dynentry/cmd/dynentry/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Generate  commands.GenerateCmd `cmd:"" help:"Generate an entry module from paths or the config file"`
		Load      commands.LoadCmd     `cmd:"" help:"Generate the entry module for a loader query"`
		Build     commands.BuildCmd    `cmd:"" help:"Bundle the configured entry with esbuild"`
		Watch     commands.WatchCmd    `cmd:"" help:"Regenerate when the config file changes"`
		Verify    commands.VerifyCmd   `cmd:"" help:"Check generated files on disk are up to date"`
		Debug     bool                 `help:"Enable debug mode." env:"DYNENTRY_DEBUG"`
		Telemetry bool                 `help:"Export traces and metrics over OTLP." env:"DYNENTRY_TELEMETRY"`
		Version   kong.VersionFlag
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Name("dynentry"),
		kong.Description("Generate dynamic import() entry modules."),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{Debug: cli.Debug, Version: version, Telemetry: cli.Telemetry})
	cmd.FatalIfErrorf(err)
}
