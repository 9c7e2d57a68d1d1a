package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/dynentry/internal/config"
	"github.com/wolfeidau/dynentry/internal/entry"
	"github.com/wolfeidau/dynentry/internal/watch"
)

type WatchCmd struct {
	Config string `help:"Config file path" default:"dynentry.yaml" env:"DYNENTRY_CONFIG"`
	Mode   string `help:"What to do on change: generate a module or run a build" enum:"generate,build" default:"build"`
	Out    string `help:"Module file written in generate mode" short:"o"`
}

func (c *WatchCmd) Run(ctx context.Context, globals *Globals) error {
	ctx, shutdown := globals.setup(ctx)
	defer shutdown()

	if c.Mode == "generate" && c.Out == "" {
		return fmt.Errorf("--out is required in generate mode")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	w := watch.New(watch.DefaultConfig(c.Config), c.handle)
	return w.Run(ctx)
}

func (c *WatchCmd) handle(ctx context.Context, gen watch.Generation) error {
	if c.Mode == "build" {
		res, err := gen.Config.Pipeline().Build(ctx, gen.Result.Normalized)
		if err != nil {
			return err
		}
		zerolog.Ctx(ctx).Info().Strs("files", res.Files).Msg("Build finished")
		return nil
	}

	return regenerate(ctx, gen.Config, gen.Result.Normalized, c.Out)
}

func regenerate(ctx context.Context, cfg *config.Config, e entry.Entry, out string) error {
	code, err := cfg.Generator().Generate(ctx, e, cfg.IsExportable())
	if err != nil {
		return err
	}
	return writeModule(ctx, out, code)
}
