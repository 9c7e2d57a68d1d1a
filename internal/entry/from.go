package entry

import (
	"context"
	"fmt"
	"slices"
	"sort"
)

const (
	descriptorImport    = "import"
	descriptorChunkName = "chunkName"
)

// From converts a decoded configuration value into an Entry.
//
// Strings become a Single, lists of strings a Sequence, string keyed maps a
// Mapping (keys sorted) and functions a Deferred. Values of a map that are
// themselves objects with an "import" key are read as entry descriptors,
// which may carry a "chunkName".
func From(v any) (Entry, error) {
	return fromValue(v, false)
}

func fromValue(v any, nested bool) (Entry, error) {
	switch val := v.(type) {
	case Single, Sequence, Mapping, Deferred:
		return val.(Entry), nil
	case string:
		return Single{Path: val}, nil
	case []string:
		if len(val) == 0 {
			return nil, ErrEmptySequence
		}
		return Sequence{Paths: slices.Clone(val)}, nil
	case []any:
		paths, err := stringList(val)
		if err != nil {
			return nil, err
		}
		return Sequence{Paths: paths}, nil
	case map[string]string:
		m := make(map[string]any, len(val))
		for k, s := range val {
			m[k] = s
		}
		return fromMap(m, nested)
	case map[string]any:
		return fromMap(val, nested)
	case Producer:
		return Deferred{Produce: val}, nil
	case func(context.Context) (any, error):
		return Deferred{Produce: val}, nil
	case func() (any, error):
		return Deferred{Produce: func(context.Context) (any, error) { return val() }}, nil
	case func() any:
		return Deferred{Produce: func(context.Context) (any, error) { return val(), nil }}, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnrecognizedShape, v)
	}
}

func stringList(vals []any) ([]string, error) {
	if len(vals) == 0 {
		return nil, ErrEmptySequence
	}
	paths := make([]string, len(vals))
	for i, item := range vals {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("%w: list element %d is %T, not a path", ErrUnrecognizedShape, i, item)
		}
		paths[i] = s
	}
	return paths, nil
}

func fromMap(m map[string]any, nested bool) (Entry, error) {
	if _, ok := m[descriptorImport]; ok && nested {
		return fromDescriptor(m)
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := Mapping{Entries: make([]Pair, 0, len(keys))}
	for _, k := range keys {
		val, err := fromValue(m[k], true)
		if err != nil {
			return nil, fmt.Errorf("entry %q: %w", k, err)
		}
		out.Entries = append(out.Entries, Pair{Name: k, Value: val})
	}
	return out, nil
}

func fromDescriptor(m map[string]any) (Entry, error) {
	var chunkName string
	if raw, ok := m[descriptorChunkName]; ok {
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("%w: chunkName must be a string, got %T", ErrUnrecognizedShape, raw)
		}
		chunkName = s
	}

	switch imp := m[descriptorImport].(type) {
	case string:
		return Single{Path: imp, ChunkName: chunkName}, nil
	case []string:
		if len(imp) == 0 {
			return nil, ErrEmptySequence
		}
		return Sequence{Paths: slices.Clone(imp), ChunkName: chunkName}, nil
	case []any:
		paths, err := stringList(imp)
		if err != nil {
			return nil, err
		}
		return Sequence{Paths: paths, ChunkName: chunkName}, nil
	default:
		return nil, fmt.Errorf("%w: descriptor import is %T", ErrUnrecognizedShape, imp)
	}
}

// Resolve invokes every Deferred producer exactly once and feeds each result
// back through From, until only Single, Sequence and Mapping values remain.
// There is no depth limit: a producer that keeps returning producers never
// resolves.
func Resolve(ctx context.Context, e Entry) (Entry, error) {
	return resolve(ctx, e, false)
}

func resolve(ctx context.Context, e Entry, nested bool) (Entry, error) {
	switch v := e.(type) {
	case Single:
		return v, nil
	case Sequence:
		if len(v.Paths) == 0 {
			return nil, ErrEmptySequence
		}
		return v, nil
	case Mapping:
		out := Mapping{Entries: make([]Pair, 0, len(v.Entries))}
		for _, p := range v.Entries {
			rv, err := resolve(ctx, p.Value, true)
			if err != nil {
				return nil, fmt.Errorf("entry %q: %w", p.Name, err)
			}
			out.Entries = append(out.Entries, Pair{Name: p.Name, Value: rv})
		}
		return out, nil
	case Deferred:
		if v.Produce == nil {
			return nil, fmt.Errorf("%w: nil producer", ErrDeferredResolution)
		}
		produced, err := v.Produce(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDeferredResolution, err)
		}
		next, err := fromValue(produced, nested)
		if err != nil {
			return nil, err
		}
		return resolve(ctx, next, nested)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnrecognizedShape, e)
	}
}

// Equal reports whether two resolved entries are structurally identical,
// including mapping order. Deferred entries never compare equal.
func Equal(a, b Entry) bool {
	switch x := a.(type) {
	case Single:
		y, ok := b.(Single)
		return ok && x == y
	case Sequence:
		y, ok := b.(Sequence)
		return ok && x.ChunkName == y.ChunkName && slices.Equal(x.Paths, y.Paths)
	case Mapping:
		y, ok := b.(Mapping)
		if !ok || len(x.Entries) != len(y.Entries) {
			return false
		}
		for i := range x.Entries {
			if x.Entries[i].Name != y.Entries[i].Name || !Equal(x.Entries[i].Value, y.Entries[i].Value) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
