// Package integration swaps a build tool's entry configuration for loader
// requests that route through the generator, once per configuration change.
package integration

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/mr-tron/base58"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/dynentry/internal/entry"
	"github.com/wolfeidau/dynentry/internal/loader"
	"github.com/wolfeidau/dynentry/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// ErrNotFlattenable indicates a list element unwrapped to a mapping, which
// cannot be merged into a sequence.
var ErrNotFlattenable = errors.New("loader request inside a list must hold a path or a list of paths")

// Option configures a Plugin.
type Option func(*Plugin)

// WithLoaderPath sets the module specifier prefix of generated requests.
func WithLoaderPath(path string) Option {
	return func(p *Plugin) {
		p.loaderPath = path
	}
}

// WithExportable controls whether generated modules export a loader function.
func WithExportable(exportable bool) Option {
	return func(p *Plugin) {
		p.exportable = exportable
	}
}

// WithID sets the id carried by generated requests.
func WithID(id string) Option {
	return func(p *Plugin) {
		p.id = id
	}
}

// Result is the outcome of applying an entry configuration.
type Result struct {
	// Entry is the rewritten configuration: a loader request string, or a
	// map of entry names to loader requests.
	Entry any
	// Changed is false when the normalized entry matched the previous one
	// and Entry is the previously returned configuration.
	Changed bool
	// Normalized is the resolved entry with loader requests unwrapped.
	Normalized entry.Entry
	// Fingerprint identifies Normalized, base58 encoded.
	Fingerprint string
}

// Plugin remembers the last applied entry so repeated configurations are
// a no-op. It is safe for concurrent use.
type Plugin struct {
	loaderPath string
	exportable bool
	id         string

	mu      sync.Mutex
	applied bool
	prev    Result
}

// New creates a Plugin. Modules are exportable unless configured otherwise.
func New(opts ...Option) *Plugin {
	p := &Plugin{
		loaderPath: loader.DefaultPath,
		exportable: true,
		id:         loader.DefaultID,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// LoaderPath returns the configured loader path.
func (p *Plugin) LoaderPath() string {
	return p.loaderPath
}

// Exportable reports whether generated modules export a loader function.
func (p *Plugin) Exportable() bool {
	return p.exportable
}

// Apply normalizes raw, compares it with the previously applied entry and
// returns the rewritten configuration. Deferred entries are resolved once
// per call.
func (p *Plugin) Apply(ctx context.Context, raw any) (Result, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "integration.Apply")
	defer span.End()

	logger := zerolog.Ctx(ctx)
	m := telemetry.GetMetrics()

	normalized, err := p.Normalize(ctx, raw)
	if err != nil {
		span.RecordError(err)
		return Result{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.applied && entry.Equal(p.prev.Normalized, normalized) {
		m.EntrySkipsTotal.Add(ctx, 1)
		span.SetAttributes(attribute.Bool("changed", false))
		logger.Debug().Str("fingerprint", p.prev.Fingerprint).Msg("entry unchanged")

		res := p.prev
		res.Changed = false
		return res, nil
	}

	rewritten, err := p.Rewrite(normalized)
	if err != nil {
		span.RecordError(err)
		return Result{}, err
	}

	fingerprint, err := Fingerprint(normalized)
	if err != nil {
		return Result{}, err
	}

	p.prev = Result{
		Entry:       rewritten,
		Changed:     true,
		Normalized:  normalized,
		Fingerprint: fingerprint,
	}
	p.applied = true

	m.EntryChangesTotal.Add(ctx, 1)
	span.SetAttributes(attribute.Bool("changed", true), attribute.String("fingerprint", fingerprint))
	logger.Info().Str("fingerprint", fingerprint).Strs("paths", entry.Paths(normalized)).Msg("entry changed")

	return p.prev, nil
}

// Reset forgets the previously applied entry.
func (p *Plugin) Reset() {
	p.mu.Lock()
	p.applied = false
	p.prev = Result{}
	p.mu.Unlock()
}

// Normalize resolves raw into an entry and unwraps loader requests so an
// already rewritten configuration normalizes to its original entry. Lists
// containing requests are flattened: ["x", request(["a", "b"])] becomes
// ["x", "a", "b"].
func (p *Plugin) Normalize(ctx context.Context, raw any) (entry.Entry, error) {
	e, err := entry.From(raw)
	if err != nil {
		return nil, err
	}
	resolved, err := entry.Resolve(ctx, e)
	if err != nil {
		return nil, err
	}
	return unwrap(ctx, resolved)
}

func unwrap(ctx context.Context, e entry.Entry) (entry.Entry, error) {
	switch v := e.(type) {
	case entry.Single:
		if !loader.IsRequest(v.Path) {
			return v, nil
		}
		return unwrapRequest(ctx, v.Path)
	case entry.Sequence:
		out := entry.Sequence{ChunkName: v.ChunkName, Paths: make([]string, 0, len(v.Paths))}
		for _, path := range v.Paths {
			if !loader.IsRequest(path) {
				out.Paths = append(out.Paths, path)
				continue
			}
			inner, err := unwrapRequest(ctx, path)
			if err != nil {
				return nil, err
			}
			switch iv := inner.(type) {
			case entry.Single:
				out.Paths = append(out.Paths, iv.Path)
			case entry.Sequence:
				out.Paths = append(out.Paths, iv.Paths...)
			default:
				return nil, fmt.Errorf("%w: %q", ErrNotFlattenable, path)
			}
		}
		return out, nil
	case entry.Mapping:
		out := entry.Mapping{Entries: make([]entry.Pair, 0, len(v.Entries))}
		for _, pair := range v.Entries {
			val, err := unwrap(ctx, pair.Value)
			if err != nil {
				return nil, fmt.Errorf("entry %q: %w", pair.Name, err)
			}
			out.Entries = append(out.Entries, entry.Pair{Name: pair.Name, Value: val})
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %T", entry.ErrUnrecognizedShape, e)
	}
}

func unwrapRequest(ctx context.Context, path string) (entry.Entry, error) {
	req, err := loader.ParseRequest(path)
	if err != nil {
		return nil, err
	}
	e, err := entry.From(req.Entry)
	if err != nil {
		return nil, err
	}
	resolved, err := entry.Resolve(ctx, e)
	if err != nil {
		return nil, err
	}
	if req.ChunkName != "" {
		switch v := resolved.(type) {
		case entry.Single:
			v.ChunkName = req.ChunkName
			resolved = v
		case entry.Sequence:
			v.ChunkName = req.ChunkName
			resolved = v
		}
	}
	return unwrap(ctx, resolved)
}

// Rewrite turns a normalized entry into the configuration installed in the
// build tool: a single loader request, or one request per mapping key.
func (p *Plugin) Rewrite(e entry.Entry) (any, error) {
	if m, ok := e.(entry.Mapping); ok {
		out := make(map[string]string, len(m.Entries))
		for _, pair := range m.Entries {
			req, err := p.request(pair.Value)
			if err != nil {
				return nil, fmt.Errorf("entry %q: %w", pair.Name, err)
			}
			out[pair.Name] = req
		}
		return out, nil
	}
	return p.request(e)
}

func (p *Plugin) request(e entry.Entry) (string, error) {
	var chunkName string
	switch v := e.(type) {
	case entry.Single:
		chunkName = v.ChunkName
	case entry.Sequence:
		chunkName = v.ChunkName
	}

	value, err := entry.Interface(e)
	if err != nil {
		return "", err
	}

	return loader.Encode(p.loaderPath, loader.Request{
		ID:         p.id,
		Entry:      value,
		Exportable: p.exportable,
		ChunkName:  chunkName,
	})
}

// Fingerprint is the base58 SHA-256 of the entry's JSON form, chunk names
// included.
func Fingerprint(e entry.Entry) (string, error) {
	value, err := entry.Interface(entry.Mapping{Entries: []entry.Pair{{Name: "", Value: e}}})
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("failed to marshal entry: %w", err)
	}
	hash := sha256.Sum256(data)
	return base58.Encode(hash[:]), nil
}
