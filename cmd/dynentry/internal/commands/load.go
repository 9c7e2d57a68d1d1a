package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/wolfeidau/dynentry/internal/codegen"
	"github.com/wolfeidau/dynentry/internal/loader"
	"github.com/wolfeidau/dynentry/internal/logger"
)

type LoadCmd struct {
	Query      string `arg:"" help:"Loader query or full loader request, e.g. '?entry=%22.%2Fsrc%2FApp.js%22'"`
	ChunkNames bool   `help:"Emit webpackChunkName hints" default:"true" negatable:""`
}

func (c *LoadCmd) Run(ctx context.Context, globals *Globals) (err error) {
	ctx, shutdown := globals.setup(ctx)
	defer shutdown()

	ctx, done := logger.Stage(ctx, "load")
	defer func() { done(err) }()

	query := c.Query
	if _, q, ok := strings.Cut(query, "?"); ok {
		query = q
	}

	code, err := loader.New(codegen.New(codegen.WithChunkNames(c.ChunkNames))).Load(ctx, query)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(os.Stdout, code)
	return err
}
