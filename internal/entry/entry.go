// Package entry models the build tool entry configuration as a closed set of
// variants: a single module path, an ordered sequence of paths, a mapping of
// names to entries, or a deferred producer resolved at generation time.
package entry

import (
	"context"
	"errors"
)

var (
	// ErrUnrecognizedShape indicates a value is neither a path, a list of
	// paths, a mapping nor a producer function.
	ErrUnrecognizedShape = errors.New("unrecognized entry shape")
	// ErrEmptySequence indicates a list entry with no paths
	ErrEmptySequence = errors.New("entry sequence must contain at least one path")
	// ErrDeferredResolution indicates a producer function failed
	ErrDeferredResolution = errors.New("deferred entry resolution failed")
)

// Entry is implemented by Single, Sequence, Mapping and Deferred only.
type Entry interface {
	entry()
}

// Single is one module path, optionally carrying a chunk naming hint.
type Single struct {
	Path      string
	ChunkName string
}

// Sequence is an ordered list of paths. The last path is the primary module,
// every path before it is a preload module imported for its side effects.
// ChunkName, when set, names the chunk of the primary module.
type Sequence struct {
	Paths     []string
	ChunkName string
}

// Preload returns every path but the last.
func (s Sequence) Preload() []string {
	if len(s.Paths) == 0 {
		return nil
	}
	return s.Paths[:len(s.Paths)-1]
}

// Primary returns the last path.
func (s Sequence) Primary() string {
	if len(s.Paths) == 0 {
		return ""
	}
	return s.Paths[len(s.Paths)-1]
}

// Pair is a named value within a Mapping.
type Pair struct {
	Name  string
	Value Entry
}

// Mapping associates entry names with entries, in insertion order.
type Mapping struct {
	Entries []Pair
}

// Producer computes an entry value when the entry is resolved. The returned
// value may be anything From accepts, including another producer.
type Producer func(ctx context.Context) (any, error)

// Deferred wraps a producer that is invoked once per resolution.
type Deferred struct {
	Produce Producer
}

func (Single) entry()   {}
func (Sequence) entry() {}
func (Mapping) entry()  {}
func (Deferred) entry() {}

// Path is shorthand for a Single without a chunk name.
func Path(p string) Single {
	return Single{Path: p}
}

// Paths lists every module path referenced by a resolved entry in the order
// the generated code imports them. Deferred values contribute nothing.
func Paths(e Entry) []string {
	var out []string
	switch v := e.(type) {
	case Single:
		out = append(out, v.Path)
	case Sequence:
		out = append(out, v.Paths...)
	case Mapping:
		for _, p := range v.Entries {
			out = append(out, Paths(p.Value)...)
		}
	}
	return out
}

// Interface converts a resolved entry back into plain values suitable for
// JSON encoding: a string, a []string or a map[string]any.
//
// Chunk names survive only on mapping values, where they are encoded as an
// entry descriptor.
func Interface(e Entry) (any, error) {
	return toInterface(e, false)
}

func toInterface(e Entry, nested bool) (any, error) {
	switch v := e.(type) {
	case Single:
		if nested && v.ChunkName != "" {
			return map[string]any{descriptorImport: v.Path, descriptorChunkName: v.ChunkName}, nil
		}
		return v.Path, nil
	case Sequence:
		if len(v.Paths) == 0 {
			return nil, ErrEmptySequence
		}
		paths := append([]string(nil), v.Paths...)
		if nested && v.ChunkName != "" {
			return map[string]any{descriptorImport: paths, descriptorChunkName: v.ChunkName}, nil
		}
		return paths, nil
	case Mapping:
		m := make(map[string]any, len(v.Entries))
		for _, p := range v.Entries {
			iv, err := toInterface(p.Value, true)
			if err != nil {
				return nil, err
			}
			m[p.Name] = iv
		}
		return m, nil
	case Deferred:
		return nil, errors.New("deferred entry must be resolved before encoding")
	default:
		return nil, ErrUnrecognizedShape
	}
}
