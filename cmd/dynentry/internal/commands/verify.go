package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/wolfeidau/dynentry/internal/config"
	"github.com/wolfeidau/dynentry/internal/logger"
	"github.com/wolfeidau/dynentry/internal/output"
)

type VerifyCmd struct {
	EntrySource `embed:""`
	Out         string `help:"Module file to compare against; without it the build output is verified" short:"o"`
	Precompress string `help:"Also compare the compressed copy: none, gzip or zstd" default:"none"`
}

func (c *VerifyCmd) Run(ctx context.Context, globals *Globals) (err error) {
	ctx, shutdown := globals.setup(ctx)
	defer shutdown()

	ctx, done := logger.Stage(ctx, "verify")
	defer func() { done(err) }()

	if c.Out == "" {
		if len(c.Paths) > 0 {
			return fmt.Errorf("verifying build output needs the config file, not paths")
		}
		cfg, err := config.Load(c.Config)
		if err != nil {
			return err
		}
		if err := cfg.Pipeline().Verify(ctx, cfg.EntryValue()); err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, "build output is up to date")
		return nil
	}

	e, gen, exportable, err := c.resolve()
	if err != nil {
		return err
	}
	code, err := gen.Generate(ctx, e, exportable)
	if err != nil {
		return err
	}

	compression, err := output.ParseCompression(c.Precompress)
	if err != nil {
		return err
	}
	if err := verifyModule(ctx, c.Out, code, output.WithCompression(compression)); err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "%s is up to date\n", c.Out)
	return nil
}
