package entry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrom(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected Entry
		errType  error
	}{
		{
			name:     "string",
			input:    "./src/App.js",
			expected: Single{Path: "./src/App.js"},
		},
		{
			name:     "string list",
			input:    []string{"devServer", "./src/App.js"},
			expected: Sequence{Paths: []string{"devServer", "./src/App.js"}},
		},
		{
			name:     "decoded json list",
			input:    []any{"devServer", "./src/App.js"},
			expected: Sequence{Paths: []string{"devServer", "./src/App.js"}},
		},
		{
			name:  "mapping keys sorted",
			input: map[string]any{"vendor": []any{"./src/vendor1", "./src/vendor2"}, "main": "./src/App"},
			expected: Mapping{Entries: []Pair{
				{Name: "main", Value: Single{Path: "./src/App"}},
				{Name: "vendor", Value: Sequence{Paths: []string{"./src/vendor1", "./src/vendor2"}}},
			}},
		},
		{
			name:  "string mapping",
			input: map[string]string{"b": "./b", "a": "./a"},
			expected: Mapping{Entries: []Pair{
				{Name: "a", Value: Single{Path: "./a"}},
				{Name: "b", Value: Single{Path: "./b"}},
			}},
		},
		{
			name: "descriptor value",
			input: map[string]any{
				"main": map[string]any{"import": "./src/App", "chunkName": "app"},
			},
			expected: Mapping{Entries: []Pair{
				{Name: "main", Value: Single{Path: "./src/App", ChunkName: "app"}},
			}},
		},
		{
			name: "descriptor list value",
			input: map[string]any{
				"main": map[string]any{"import": []any{"devServer", "./src/App"}, "chunkName": "app"},
			},
			expected: Mapping{Entries: []Pair{
				{Name: "main", Value: Sequence{Paths: []string{"devServer", "./src/App"}, ChunkName: "app"}},
			}},
		},
		{
			name:  "top level import key is an entry name",
			input: map[string]any{"import": "./src/App"},
			expected: Mapping{Entries: []Pair{
				{Name: "import", Value: Single{Path: "./src/App"}},
			}},
		},
		{
			name:    "empty list",
			input:   []string{},
			errType: ErrEmptySequence,
		},
		{
			name:    "number",
			input:   42,
			errType: ErrUnrecognizedShape,
		},
		{
			name:    "nil",
			input:   nil,
			errType: ErrUnrecognizedShape,
		},
		{
			name:    "list with number",
			input:   []any{"./a", 1.0},
			errType: ErrUnrecognizedShape,
		},
		{
			name:    "mapping with number",
			input:   map[string]any{"a": 1.0, "b": "2"},
			errType: ErrUnrecognizedShape,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := From(tt.input)
			if tt.errType != nil {
				require.ErrorIs(t, err, tt.errType)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.expected, got)
		})
	}
}

func TestFrom_functions(t *testing.T) {
	ctx := context.Background()

	shapes := []any{
		func() any { return "./src/App.js" },
		func() (any, error) { return "./src/App.js", nil },
		func(context.Context) (any, error) { return "./src/App.js", nil },
		Producer(func(context.Context) (any, error) { return "./src/App.js", nil }),
	}

	for _, shape := range shapes {
		e, err := From(shape)
		require.NoError(t, err)
		require.IsType(t, Deferred{}, e)

		resolved, err := Resolve(ctx, e)
		require.NoError(t, err)
		require.Equal(t, Single{Path: "./src/App.js"}, resolved)
	}
}

func TestResolve(t *testing.T) {
	ctx := context.Background()

	t.Run("producer invoked once", func(t *testing.T) {
		calls := 0
		e := Deferred{Produce: func(context.Context) (any, error) {
			calls++
			return []any{"devServer", "./src/App.js"}, nil
		}}

		resolved, err := Resolve(ctx, e)
		require.NoError(t, err)
		assert.Equal(t, 1, calls)
		assert.Equal(t, Sequence{Paths: []string{"devServer", "./src/App.js"}}, resolved)
	})

	t.Run("nested producers in mapping", func(t *testing.T) {
		e := Deferred{Produce: func(context.Context) (any, error) {
			return map[string]any{
				"main": func() any { return "./src/main.js" },
				"admin": func() any {
					return func() any { return []string{"devServer", "./src/admin.js"} }
				},
			}, nil
		}}

		resolved, err := Resolve(ctx, e)
		require.NoError(t, err)
		require.Equal(t, Mapping{Entries: []Pair{
			{Name: "admin", Value: Sequence{Paths: []string{"devServer", "./src/admin.js"}}},
			{Name: "main", Value: Single{Path: "./src/main.js"}},
		}}, resolved)
	})

	t.Run("nested producer returning descriptor", func(t *testing.T) {
		e := Mapping{Entries: []Pair{
			{Name: "main", Value: Deferred{Produce: func(context.Context) (any, error) {
				return map[string]any{"import": "./src/App", "chunkName": "app"}, nil
			}}},
		}}

		resolved, err := Resolve(ctx, e)
		require.NoError(t, err)
		require.Equal(t, Mapping{Entries: []Pair{
			{Name: "main", Value: Single{Path: "./src/App", ChunkName: "app"}},
		}}, resolved)
	})

	t.Run("producer failure", func(t *testing.T) {
		boom := errors.New("boom")
		e := Deferred{Produce: func(context.Context) (any, error) { return nil, boom }}

		_, err := Resolve(ctx, e)
		require.ErrorIs(t, err, ErrDeferredResolution)
		require.ErrorIs(t, err, boom)
	})

	t.Run("producer returns unrecognized shape", func(t *testing.T) {
		e := Deferred{Produce: func(context.Context) (any, error) { return true, nil }}

		_, err := Resolve(ctx, e)
		require.ErrorIs(t, err, ErrUnrecognizedShape)
	})

	t.Run("nil producer", func(t *testing.T) {
		_, err := Resolve(ctx, Deferred{})
		require.ErrorIs(t, err, ErrDeferredResolution)
	})

	t.Run("nil entry", func(t *testing.T) {
		_, err := Resolve(ctx, nil)
		require.ErrorIs(t, err, ErrUnrecognizedShape)
	})

	t.Run("empty sequence", func(t *testing.T) {
		_, err := Resolve(ctx, Sequence{})
		require.ErrorIs(t, err, ErrEmptySequence)
	})
}

func TestEqual(t *testing.T) {
	a := Mapping{Entries: []Pair{
		{Name: "main", Value: Sequence{Paths: []string{"devServer", "./src/main1.js"}}},
		{Name: "sample", Value: Single{Path: "./src/App"}},
	}}
	b := Mapping{Entries: []Pair{
		{Name: "main", Value: Sequence{Paths: []string{"devServer", "./src/main1.js"}}},
		{Name: "sample", Value: Single{Path: "./src/App"}},
	}}

	assert.True(t, Equal(a, b))
	assert.True(t, Equal(Single{Path: "./a"}, Single{Path: "./a"}))
	assert.False(t, Equal(Single{Path: "./a"}, Single{Path: "./a", ChunkName: "a"}))
	assert.False(t, Equal(Single{Path: "./a"}, Sequence{Paths: []string{"./a"}}))
	assert.False(t, Equal(Sequence{Paths: []string{"./a", "./b"}}, Sequence{Paths: []string{"./b", "./a"}}))
	assert.False(t, Equal(a, Mapping{Entries: a.Entries[:1]}))

	d := Deferred{Produce: func(context.Context) (any, error) { return "./a", nil }}
	assert.False(t, Equal(d, d))
}

func TestPaths(t *testing.T) {
	e := Mapping{Entries: []Pair{
		{Name: "main", Value: Sequence{Paths: []string{"devServer", "./src/main.js"}}},
		{Name: "vendor", Value: Single{Path: "react"}},
	}}

	require.Equal(t, []string{"devServer", "./src/main.js", "react"}, Paths(e))
}

func TestInterface(t *testing.T) {
	e := Mapping{Entries: []Pair{
		{Name: "main", Value: Sequence{Paths: []string{"devServer", "./src/main.js"}}},
		{Name: "vendor", Value: Single{Path: "react", ChunkName: "vendor"}},
	}}

	v, err := Interface(e)
	require.NoError(t, err)
	require.Equal(t, map[string]any{
		"main":   []string{"devServer", "./src/main.js"},
		"vendor": map[string]any{"import": "react", "chunkName": "vendor"},
	}, v)

	back, err := From(v)
	require.NoError(t, err)
	require.True(t, Equal(e, back))

	_, err = Interface(Deferred{})
	require.Error(t, err)
}
