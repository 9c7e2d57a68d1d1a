package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/wolfeidau/dynentry/internal/config"
	"github.com/wolfeidau/dynentry/internal/logger"
)

type BuildCmd struct {
	Config string `help:"Config file path" default:"dynentry.yaml" env:"DYNENTRY_CONFIG"`
	Entry  string `help:"Print the scripts needed by this entry name after building"`
}

func (c *BuildCmd) Run(ctx context.Context, globals *Globals) (err error) {
	ctx, shutdown := globals.setup(ctx)
	defer shutdown()

	ctx, done := logger.Stage(ctx, "build")
	defer func() { done(err) }()

	cfg, err := config.Load(c.Config)
	if err != nil {
		return err
	}

	pipeline := cfg.Pipeline()
	res, err := pipeline.Build(ctx, cfg.EntryValue())
	if err != nil {
		return err
	}

	for _, file := range res.Files {
		fmt.Fprintln(os.Stdout, file)
	}

	if c.Entry == "" {
		return nil
	}

	scripts, _, err := pipeline.LoadScripts(c.Entry)
	if err != nil {
		return err
	}
	for _, script := range scripts {
		fmt.Fprintf(os.Stdout, "<script type=\"module\" src=\"%s\"></script>\n", script)
	}
	return nil
}
