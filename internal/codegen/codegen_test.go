package codegen

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/dynentry/internal/entry"
)

const devServerModule = `(function () {
  try {
    return Promise.resolve(import('devServer')).then(function () {
      return import('./src/App.js');
    });
  } catch (e) {
    return Promise.reject(e);
  }
})();`

func TestGenerate_single(t *testing.T) {
	ctx := context.Background()

	code, err := Generate(ctx, entry.Path("./src/App.js"), false)
	require.NoError(t, err)
	require.Equal(t, `import('./src/App.js');`, code)

	code, err = Generate(ctx, entry.Path("./src/App.js"), true)
	require.NoError(t, err)
	require.Equal(t, `export default () => import('./src/App.js');`, code)
}

func TestGenerate_sequence(t *testing.T) {
	ctx := context.Background()
	e := entry.Sequence{Paths: []string{"devServer", "./src/App.js"}}

	code, err := Generate(ctx, e, false)
	require.NoError(t, err)
	require.Equal(t, devServerModule, code)

	code, err = Generate(ctx, e, true)
	require.NoError(t, err)
	require.Equal(t, "export default () => "+devServerModule, code)
	require.Equal(t, 1, strings.Count(code, "export default"))
}

func TestGenerate_sequenceOrder(t *testing.T) {
	code, err := Generate(context.Background(), entry.Sequence{Paths: []string{"a", "b", "c"}}, false)
	require.NoError(t, err)

	require.Equal(t, `(function () {
  try {
    return Promise.resolve(import('a')).then(function () {
      return Promise.resolve(import('b')).then(function () {
        return import('c');
      });
    });
  } catch (e) {
    return Promise.reject(e);
  }
})();`, code)

	ia := strings.Index(code, "import('a')")
	ib := strings.Index(code, "import('b')")
	ic := strings.Index(code, "import('c')")
	require.Less(t, ia, ib)
	require.Less(t, ib, ic)
	require.NotContains(t, code, "await")
	require.NotContains(t, code, "async")
}

func TestGenerate_singleElementSequence(t *testing.T) {
	code, err := Generate(context.Background(), entry.Sequence{Paths: []string{"./src/App.js"}}, false)
	require.NoError(t, err)
	require.Equal(t, `(function () {
  try {
    return import('./src/App.js');
  } catch (e) {
    return Promise.reject(e);
  }
})();`, code)
}

func TestGenerate_mapping(t *testing.T) {
	e, err := entry.From(map[string]any{
		"vendor": []any{"./src/vendor1", "./src/vendor2"},
		"main":   "./src/App",
	})
	require.NoError(t, err)

	code, err := Generate(context.Background(), e, false)
	require.NoError(t, err)
	require.Equal(t, `Promise.all([
  /* main */ import('./src/App'),
  /* vendor */ (function () {
    try {
      return Promise.resolve(import('./src/vendor1')).then(function () {
        return import('./src/vendor2');
      });
    } catch (e) {
      return Promise.reject(e);
    }
  })()
]);`, code)
}

func TestGenerate_mappingKeyOrderInsensitive(t *testing.T) {
	ctx := context.Background()

	a, err := entry.From(map[string]any{"k1": "./one", "k2": []any{"./pre", "./two"}})
	require.NoError(t, err)
	b, err := entry.From(map[string]any{"k2": []any{"./pre", "./two"}, "k1": "./one"})
	require.NoError(t, err)

	codeA, err := Generate(ctx, a, true)
	require.NoError(t, err)
	codeB, err := Generate(ctx, b, true)
	require.NoError(t, err)
	require.Equal(t, codeA, codeB)
	require.Equal(t, 1, strings.Count(codeA, "export default"))
}

func TestGenerate_nestedMapping(t *testing.T) {
	e := entry.Mapping{Entries: []entry.Pair{
		{Name: "outer", Value: entry.Mapping{Entries: []entry.Pair{
			{Name: "inner", Value: entry.Path("./inner")},
		}}},
	}}

	code, err := Generate(context.Background(), e, false)
	require.NoError(t, err)
	require.Equal(t, `Promise.all([
  /* outer */ Promise.all([
    /* inner */ import('./inner')
  ])
]);`, code)
}

func TestGenerate_emptyMapping(t *testing.T) {
	code, err := Generate(context.Background(), entry.Mapping{}, false)
	require.NoError(t, err)
	require.Equal(t, "Promise.all([]);", code)
}

func TestGenerate_deferred(t *testing.T) {
	ctx := context.Background()

	literal, err := Generate(ctx, entry.Path("./src/App.js"), true)
	require.NoError(t, err)

	deferred, err := entry.From(func() any { return "./src/App.js" })
	require.NoError(t, err)
	code, err := Generate(ctx, deferred, true)
	require.NoError(t, err)
	require.Equal(t, literal, code)

	nested := entry.Deferred{Produce: func(context.Context) (any, error) {
		return map[string]any{
			"main": func() any { return []string{"devServer", "./src/App.js"} },
		}, nil
	}}
	code, err = Generate(ctx, nested, false)
	require.NoError(t, err)
	assert.Contains(t, code, "/* main */ (function () {")
	assert.Contains(t, code, "Promise.resolve(import('devServer'))")
}

func TestGenerate_errors(t *testing.T) {
	ctx := context.Background()

	t.Run("nil entry", func(t *testing.T) {
		code, err := Generate(ctx, nil, true)
		require.ErrorIs(t, err, ErrUnrecognizedShape)
		require.Empty(t, code)
	})

	t.Run("empty sequence", func(t *testing.T) {
		_, err := Generate(ctx, entry.Sequence{}, true)
		require.ErrorIs(t, err, entry.ErrEmptySequence)
	})

	t.Run("producer failure", func(t *testing.T) {
		boom := errors.New("config unavailable")
		_, err := Generate(ctx, entry.Deferred{Produce: func(context.Context) (any, error) {
			return nil, boom
		}}, true)
		require.ErrorIs(t, err, ErrDeferredResolution)
		require.ErrorIs(t, err, boom)
	})

	t.Run("producer returns unrecognized value", func(t *testing.T) {
		_, err := Generate(ctx, entry.Deferred{Produce: func(context.Context) (any, error) {
			return 12, nil
		}}, false)
		require.ErrorIs(t, err, ErrUnrecognizedShape)
	})

	t.Run("unresolved deferred fragment", func(t *testing.T) {
		_, err := New().Fragment(entry.Deferred{})
		require.ErrorIs(t, err, ErrUnrecognizedShape)
	})
}

func TestGenerate_idempotent(t *testing.T) {
	ctx := context.Background()
	e, err := entry.From(map[string]any{
		"main1": []any{"devServer", "./src/main1.js"},
		"main2": []any{"devServer", "./src/main2.js"},
	})
	require.NoError(t, err)

	first, err := Generate(ctx, e, true)
	require.NoError(t, err)
	second, err := Generate(ctx, e, true)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestGenerate_chunkNames(t *testing.T) {
	ctx := context.Background()
	e := entry.Single{Path: "./src/App.js", ChunkName: "app"}

	code, err := Generate(ctx, e, false)
	require.NoError(t, err)
	require.Equal(t, `import(/* webpackChunkName: "app" */ './src/App.js');`, code)

	code, err = New(WithChunkNames(false)).Generate(ctx, e, false)
	require.NoError(t, err)
	require.Equal(t, `import('./src/App.js');`, code)

	code, err = Generate(ctx, entry.Sequence{Paths: []string{"devServer", "./src/App.js"}, ChunkName: "app"}, false)
	require.NoError(t, err)
	assert.Contains(t, code, `Promise.resolve(import('devServer'))`)
	assert.Contains(t, code, `return import(/* webpackChunkName: "app" */ './src/App.js');`)

	code, err = Generate(ctx, entry.Single{Path: "./a", ChunkName: `x*/y"`}, false)
	require.NoError(t, err)
	require.Equal(t, `import(/* webpackChunkName: "x*\/y\"" */ './a');`, code)
}

func TestGenerate_postProcessors(t *testing.T) {
	ctx := context.Background()

	var seen []string
	g := New(WithPostProcessors(
		func(code string) (string, error) {
			seen = append(seen, "first")
			return strings.ToUpper(code), nil
		},
		func(code string) (string, error) {
			seen = append(seen, "second")
			return code + "\n", nil
		},
	))

	code, err := g.Generate(ctx, entry.Path("./a"), false)
	require.NoError(t, err)
	require.Equal(t, "IMPORT('./A');\n", code)
	require.Equal(t, []string{"first", "second"}, seen)

	failing := New(WithPostProcessors(func(string) (string, error) {
		return "", errors.New("syntax error")
	}))
	_, err = failing.Generate(ctx, entry.Path("./a"), false)
	require.ErrorIs(t, err, ErrPostProcess)
}

func TestGenerate_indent(t *testing.T) {
	code, err := New(WithIndent("\t")).Generate(context.Background(), entry.Sequence{Paths: []string{"a", "b"}}, false)
	require.NoError(t, err)
	require.Equal(t, "(function () {\n\ttry {\n\t\treturn Promise.resolve(import('a')).then(function () {\n\t\t\treturn import('b');\n\t\t});\n\t} catch (e) {\n\t\treturn Promise.reject(e);\n\t}\n})();", code)
}
