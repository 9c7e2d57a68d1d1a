package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/dynentry/internal/logger"
	"github.com/wolfeidau/dynentry/internal/output"
	"github.com/wolfeidau/dynentry/internal/telemetry"
)

type Globals struct {
	Debug     bool
	Version   string
	Telemetry bool
}

// setup attaches the logger to ctx and starts telemetry when enabled. The
// returned function flushes telemetry.
func (g *Globals) setup(ctx context.Context) (context.Context, func()) {
	log := logger.Setup(g.Debug)
	ctx = log.WithContext(ctx)

	if !g.Telemetry {
		return ctx, func() {}
	}

	log.Info().Msg("Telemetry is enabled")
	shutdown, err := telemetry.InitTelemetry(ctx, telemetry.Config{
		ServiceName: "dynentry",
		Version:     g.Version,
		Traces:      true,
		Metrics:     true,
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without it")
		return ctx, func() {}
	}

	return ctx, func() {
		if err := shutdown(context.Background()); err != nil {
			log.Error().Err(err).Msg("Failed to shutdown telemetry")
		}
	}
}

// moduleFiles wraps generated code as a single file named after path.
func moduleFiles(path, code string) (*output.Files, string, error) {
	dir, name := filepath.Split(path)
	if dir == "" {
		dir = "."
	}

	files := output.NewFiles()
	if err := files.Add(output.File{RelativePath: name, Data: []byte(code + "\n")}); err != nil {
		return nil, "", err
	}
	return files, dir, nil
}

func writeModule(ctx context.Context, path, code string, opts ...output.Option) error {
	if path == "" || path == "-" {
		_, err := fmt.Fprintln(os.Stdout, code)
		return err
	}

	files, dir, err := moduleFiles(path, code)
	if err != nil {
		return err
	}
	if err := files.Write(ctx, dir, opts...); err != nil {
		return err
	}

	zerolog.Ctx(ctx).Info().Str("file", path).Int("bytes", len(code)+1).Msg("Wrote entry module")
	return nil
}

func verifyModule(ctx context.Context, path, code string, opts ...output.Option) error {
	files, dir, err := moduleFiles(path, code)
	if err != nil {
		return err
	}
	return files.Verify(ctx, dir, opts...)
}
