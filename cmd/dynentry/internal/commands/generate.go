package commands

import (
	"context"
	"fmt"

	"github.com/wolfeidau/dynentry/internal/codegen"
	"github.com/wolfeidau/dynentry/internal/config"
	"github.com/wolfeidau/dynentry/internal/entry"
	"github.com/wolfeidau/dynentry/internal/logger"
	"github.com/wolfeidau/dynentry/internal/output"
)

// EntrySource selects where the entry comes from: paths on the command line or
// the config file.
type EntrySource struct {
	Paths      []string `arg:"" optional:"" help:"Module paths, the last one is the primary module and the others are imported first"`
	Config     string   `help:"Config file path, used when no paths are given" default:"dynentry.yaml" env:"DYNENTRY_CONFIG"`
	ChunkName  string   `help:"webpackChunkName hint for the imported module"`
	Exportable bool     `help:"Wrap the module in an exported loader function" default:"true" negatable:""`
	Validate   bool     `help:"Parse the generated module with esbuild"`
	Minify     bool     `help:"Minify the generated module with esbuild"`
}

// resolve returns the entry, the generator and whether the module is
// exportable. Config file settings apply when no paths are given, and flags
// only ever add post-processors.
func (s *EntrySource) resolve() (entry.Entry, *codegen.Generator, bool, error) {
	if len(s.Paths) > 0 {
		cfg := &config.Config{Validate: s.Validate, Minify: s.Minify}
		e := s.pathsEntry()
		return e, cfg.Generator(), s.Exportable, nil
	}

	cfg, err := config.Load(s.Config)
	if err != nil {
		return nil, nil, false, err
	}
	cfg.Validate = cfg.Validate || s.Validate
	cfg.Minify = cfg.Minify || s.Minify

	return cfg.EntryValue(), cfg.Generator(), cfg.IsExportable() && s.Exportable, nil
}

func (s *EntrySource) pathsEntry() entry.Entry {
	if len(s.Paths) == 1 {
		return entry.Single{Path: s.Paths[0], ChunkName: s.ChunkName}
	}
	return entry.Sequence{Paths: s.Paths, ChunkName: s.ChunkName}
}

type GenerateCmd struct {
	EntrySource `embed:""`
	Out         string `help:"Write the module to this file instead of stdout" short:"o"`
	Precompress string `help:"Also write a compressed copy: none, gzip or zstd" default:"none"`
}

func (c *GenerateCmd) Run(ctx context.Context, globals *Globals) (err error) {
	ctx, shutdown := globals.setup(ctx)
	defer shutdown()

	ctx, done := logger.Stage(ctx, "generate")
	defer func() { done(err) }()

	code, err := c.generate(ctx)
	if err != nil {
		return err
	}

	compression, err := output.ParseCompression(c.Precompress)
	if err != nil {
		return err
	}
	if compression != output.CompressionNone && (c.Out == "" || c.Out == "-") {
		return fmt.Errorf("--precompress needs --out")
	}

	return writeModule(ctx, c.Out, code, output.WithCompression(compression))
}

func (c *GenerateCmd) generate(ctx context.Context) (string, error) {
	e, gen, exportable, err := c.resolve()
	if err != nil {
		return "", err
	}
	return gen.Generate(ctx, e, exportable)
}
