package assets

import (
	"errors"
	"fmt"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/wolfeidau/dynentry/internal/codegen"
)

// ErrInvalidModule is returned when generated code fails to parse
var ErrInvalidModule = errors.New("generated module is not valid JavaScript")

// Validate returns a post-processor that parses generated code with esbuild
// and passes it through unchanged.
func Validate() codegen.PostProcessor {
	return func(code string) (string, error) {
		if _, err := transform(code, api.TransformOptions{}); err != nil {
			return "", err
		}
		return code, nil
	}
}

// Minify returns a post-processor that minifies generated code.
func Minify() codegen.PostProcessor {
	return func(code string) (string, error) {
		return transform(code, api.TransformOptions{
			MinifyWhitespace:  true,
			MinifyIdentifiers: true,
			MinifySyntax:      true,
		})
	}
}

func transform(code string, opts api.TransformOptions) (string, error) {
	opts.Loader = api.LoaderJS
	opts.Target = api.ES2020

	result := api.Transform(code, opts)
	if len(result.Errors) > 0 {
		texts := make([]string, 0, len(result.Errors))
		for _, msg := range result.Errors {
			texts = append(texts, msg.Text)
		}
		return "", fmt.Errorf("%w: %s", ErrInvalidModule, strings.Join(texts, "; "))
	}

	return strings.TrimSuffix(string(result.Code), "\n"), nil
}
