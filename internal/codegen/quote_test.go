package codegen

import (
	"context"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/dynentry/internal/entry"
)

func TestQuote(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "plain", input: "./src/App.js", expected: `'./src/App.js'`},
		{name: "single quote", input: "./it's.js", expected: `'./it\'s.js'`},
		{name: "double quote", input: `./"a".js`, expected: `'./\"a\".js'`},
		{name: "backtick", input: "./a`b.js", expected: "'./a\\`b.js'"},
		{name: "template placeholder", input: "./${x}.js", expected: `'./\${x}.js'`},
		{name: "backslash", input: `C:\src\App.js`, expected: `'C:\\src\\App.js'`},
		{name: "newline", input: "./a\nb.js", expected: `'./a\nb.js'`},
		{name: "carriage return and tab", input: "./a\r\tb", expected: `'./a\r\tb'`},
		{name: "nul", input: "./a\x00", expected: `'./a\x00'`},
		{name: "line separator", input: "./a\u2028b", expected: `'./a\u2028b'`},
		{name: "unicode kept", input: "./компонент.js", expected: `'./компонент.js'`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := quote(tt.input)
			require.Equal(t, tt.expected, got)

			back, err := unquoteJS(got)
			require.NoError(t, err)
			require.Equal(t, tt.input, back)
		})
	}
}

func TestGenerate_escapedPathRoundTrip(t *testing.T) {
	paths := []string{"./it's.js", "./tick`s.js", "./${evil}`'\"\\.js"}

	for _, p := range paths {
		code, err := Generate(context.Background(), entry.Path(p), false)
		require.NoError(t, err)

		literal := strings.TrimSuffix(strings.TrimPrefix(code, "import("), ");")
		back, err := unquoteJS(literal)
		require.NoError(t, err)
		require.Equal(t, p, back)

		// embedding in an outer template literal must not terminate it
		require.NotRegexp(t, "(^|[^\\\\])`", code)
		require.NotContains(t, strings.ReplaceAll(code, `\$`, ""), "${")
	}
}

// unquoteJS decodes the single-quoted JavaScript literals produced by quote.
func unquoteJS(lit string) (string, error) {
	if len(lit) < 2 || lit[0] != '\'' || lit[len(lit)-1] != '\'' {
		return "", strconv.ErrSyntax
	}
	body := lit[1 : len(lit)-1]

	var b strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c == '\'' {
			return "", strconv.ErrSyntax
		}
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(body) {
			return "", strconv.ErrSyntax
		}
		switch body[i] {
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'v':
			b.WriteByte('\v')
		case 'x':
			if i+2 >= len(body) {
				return "", strconv.ErrSyntax
			}
			n, err := strconv.ParseUint(body[i+1:i+3], 16, 8)
			if err != nil {
				return "", err
			}
			b.WriteByte(byte(n))
			i += 2
		case 'u':
			if i+4 >= len(body) {
				return "", strconv.ErrSyntax
			}
			n, err := strconv.ParseUint(body[i+1:i+5], 16, 32)
			if err != nil {
				return "", err
			}
			b.WriteRune(rune(n))
			i += 4
		default:
			b.WriteByte(body[i])
		}
	}
	return b.String(), nil
}

func TestGenerate_rejectsInvalidUTF8(t *testing.T) {
	bad := "./src/\xff.js"

	tests := []struct {
		name  string
		input entry.Entry
	}{
		{name: "single path", input: entry.Path(bad)},
		{name: "sequence path", input: entry.Sequence{Paths: []string{"./polyfill.js", bad}}},
		{name: "chunk name", input: entry.Single{Path: "./a.js", ChunkName: "\xfe"}},
		{name: "mapping key", input: entry.Mapping{Entries: []entry.Pair{{Name: bad, Value: entry.Path("./a.js")}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Generate(context.Background(), tt.input, false)
			require.ErrorIs(t, err, entry.ErrUnrecognizedShape)
		})
	}
}
