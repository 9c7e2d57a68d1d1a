// Package codegen turns an entry description into JavaScript source that
// loads the described modules with dynamic imports.
//
// A Single becomes a bare import() expression, a Sequence becomes a promise
// chain that imports the preload modules in order and returns the import of
// the primary module, and a Mapping combines the fragments of its values
// under Promise.all. Deferred entries are resolved first. The emitted text
// uses only import() and promise callbacks, never async or await.
package codegen

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/dynentry/internal/entry"
)

const (
	// ExportPrefix is prepended to the top level fragment of an exportable
	// module.
	ExportPrefix = "export default () => "

	defaultIndent = "  "
)

var (
	// ErrUnrecognizedShape is returned for values that are not an entry
	ErrUnrecognizedShape = entry.ErrUnrecognizedShape
	// ErrDeferredResolution is returned when a producer fails
	ErrDeferredResolution = entry.ErrDeferredResolution
	// ErrPostProcess is returned when a post-processor rejects generated code
	ErrPostProcess = errors.New("post-processing generated code failed")
)

// PostProcessor transforms a complete generated module, e.g. to validate or
// minify it.
type PostProcessor func(code string) (string, error)

// Option configures a Generator.
type Option func(*Generator)

// WithIndent sets the indentation unit of multi-line fragments.
func WithIndent(indent string) Option {
	return func(g *Generator) {
		g.indent = indent
	}
}

// WithChunkNames toggles emission of webpackChunkName directives.
func WithChunkNames(enabled bool) Option {
	return func(g *Generator) {
		g.chunkNames = enabled
	}
}

// WithPostProcessors appends post-processors, run FIFO on every module.
func WithPostProcessors(pp ...PostProcessor) Option {
	return func(g *Generator) {
		g.post = append(g.post, pp...)
	}
}

// Generator holds no state between calls; one value may be shared by
// concurrent callers.
type Generator struct {
	indent     string
	chunkNames bool
	post       []PostProcessor
}

// New creates a Generator. Chunk names are emitted by default.
func New(opts ...Option) *Generator {
	g := &Generator{
		indent:     defaultIndent,
		chunkNames: true,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

var defaultGenerator = New()

// Generate renders e using the default Generator.
func Generate(ctx context.Context, e entry.Entry, exportable bool) (string, error) {
	return defaultGenerator.Generate(ctx, e, exportable)
}

// Generate resolves e and renders it as a module. When exportable is true the
// top level fragment is wrapped as the default export of a zero argument
// arrow function, otherwise it is emitted as an expression statement.
//
// Output is a pure function of the resolved entry, so calling Generate twice
// with an unchanged entry yields byte-identical code.
func (g *Generator) Generate(ctx context.Context, e entry.Entry, exportable bool) (string, error) {
	resolved, err := entry.Resolve(ctx, e)
	if err != nil {
		return "", err
	}

	frag, err := g.Fragment(resolved)
	if err != nil {
		return "", err
	}

	code := frag + ";"
	if exportable {
		code = ExportPrefix + code
	}

	for i, post := range g.post {
		code, err = post(code)
		if err != nil {
			return "", fmt.Errorf("%w: step %d: %w", ErrPostProcess, i, err)
		}
	}

	zerolog.Ctx(ctx).Debug().
		Bool("exportable", exportable).
		Int("bytes", len(code)).
		Msg("generated entry module")

	return code, nil
}

// Fragment renders a resolved entry as a single expression without the
// export wrapper or the trailing semicolon.
func (g *Generator) Fragment(e entry.Entry) (string, error) {
	switch v := e.(type) {
	case entry.Single:
		if err := checkText(v.ChunkName, v.Path); err != nil {
			return "", err
		}
		return g.importExpr(v.Path, v.ChunkName), nil
	case entry.Sequence:
		if len(v.Paths) == 0 {
			return "", entry.ErrEmptySequence
		}
		if err := checkText(append([]string{v.ChunkName}, v.Paths...)...); err != nil {
			return "", err
		}
		return g.lowerSequence(v), nil
	case entry.Mapping:
		return g.mapping(v)
	case entry.Deferred:
		return "", fmt.Errorf("%w: deferred entry was not resolved", ErrUnrecognizedShape)
	default:
		return "", fmt.Errorf("%w: %T", ErrUnrecognizedShape, e)
	}
}

// checkText rejects strings that are not valid UTF-8. JavaScript source
// cannot carry raw bytes, so such a path would not import what it names.
func checkText(texts ...string) error {
	for _, s := range texts {
		if !utf8.ValidString(s) {
			return fmt.Errorf("%w: %q is not valid UTF-8", ErrUnrecognizedShape, s)
		}
	}
	return nil
}

func (g *Generator) importExpr(path, chunkName string) string {
	if g.chunkNames && chunkName != "" {
		return fmt.Sprintf(`import(/* webpackChunkName: "%s" */ %s)`, comment(chunkName), quote(path))
	}
	return "import(" + quote(path) + ")"
}

// mapping starts every value's fragment at once; the combined promise
// settles when all of them have.
func (g *Generator) mapping(m entry.Mapping) (string, error) {
	if len(m.Entries) == 0 {
		return "Promise.all([])", nil
	}

	w := &writer{indent: g.indent}
	w.line(0, "Promise.all([")
	for i, p := range m.Entries {
		if err := checkText(p.Name); err != nil {
			return "", err
		}
		frag, err := g.Fragment(p.Value)
		if err != nil {
			return "", fmt.Errorf("entry %q: %w", p.Name, err)
		}
		sep := ","
		if i == len(m.Entries)-1 {
			sep = ""
		}
		frag = strings.ReplaceAll(frag, "\n", "\n"+g.indent)
		w.line(1, "/* %s */ %s%s", comment(p.Name), frag, sep)
	}
	w.line(0, "])")

	return w.String(), nil
}
