package loader

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/dynentry/internal/codegen"
	"github.com/wolfeidau/dynentry/internal/entry"
	"github.com/wolfeidau/dynentry/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Loader turns loader queries into generated entry modules.
type Loader struct {
	gen *codegen.Generator
}

// New creates a Loader that renders with gen, or the default generator when
// gen is nil.
func New(gen *codegen.Generator) *Loader {
	if gen == nil {
		gen = codegen.New()
	}
	return &Loader{gen: gen}
}

// Load decodes query and generates the module source for its entry.
func (l *Loader) Load(ctx context.Context, query string) (string, error) {
	start := time.Now()
	m := telemetry.GetMetrics()

	code, id, err := l.load(ctx, query)
	attrs := metric.WithAttributes(attribute.String("id", id))
	if err != nil {
		m.GenerationErrorsTotal.Add(ctx, 1, attrs)
		return "", err
	}

	m.GenerationsTotal.Add(ctx, 1, attrs)
	m.GenerationDuration.Record(ctx, float64(time.Since(start).Microseconds())/1000, attrs)
	m.GeneratedBytes.Record(ctx, int64(len(code)), attrs)

	return code, nil
}

func (l *Loader) load(ctx context.Context, query string) (string, string, error) {
	req, err := ParseQuery(query)
	if err != nil {
		return "", "", err
	}

	e, err := entry.From(req.Entry)
	if err != nil {
		return "", req.ID, fmt.Errorf("loader %q: %w", req.ID, err)
	}
	e = withChunkName(e, req.ChunkName)

	zerolog.Ctx(ctx).Debug().
		Str("id", req.ID).
		Bool("exportable", req.Exportable).
		Msg("loading dynamic entry")

	code, err := l.gen.Generate(ctx, e, req.Exportable)
	return code, req.ID, err
}

// Load decodes query and generates its module with the default generator.
func Load(ctx context.Context, query string) (string, error) {
	return New(nil).Load(ctx, query)
}

func withChunkName(e entry.Entry, name string) entry.Entry {
	if name == "" {
		return e
	}
	switch v := e.(type) {
	case entry.Single:
		if v.ChunkName == "" {
			v.ChunkName = name
		}
		return v
	case entry.Sequence:
		if v.ChunkName == "" {
			v.ChunkName = name
		}
		return v
	}
	return e
}
