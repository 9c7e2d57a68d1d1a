package assets

import (
	"context"
	"regexp"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/dynentry/internal/loader"
)

// VirtualModules serves loader requests as in-memory modules, so entry
// modules are generated during the build and never written to disk.
type VirtualModules struct {
	// Namespace holds the generated modules
	Namespace string
	// LoaderPath is the specifier prefix of loader requests
	LoaderPath string
	// ResolveDir is where imports of generated modules resolve from
	ResolveDir string
	Loader     *loader.Loader
}

// Plugin returns the esbuild plugin. ctx carries the logger used while
// generating modules.
func (v VirtualModules) Plugin(ctx context.Context) api.Plugin {
	return api.Plugin{
		Name: "dynamic-entry",
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: v.filter()},
				func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					return api.OnResolveResult{Path: args.Path, Namespace: v.Namespace}, nil
				})

			build.OnLoad(api.OnLoadOptions{Filter: ".*", Namespace: v.Namespace},
				func(args api.OnLoadArgs) (api.OnLoadResult, error) {
					return v.load(ctx, args.Path)
				})
		},
	}
}

func (v VirtualModules) filter() string {
	return "^" + regexp.QuoteMeta(v.LoaderPath) + `\?`
}

func (v VirtualModules) load(ctx context.Context, path string) (api.OnLoadResult, error) {
	_, query, _ := strings.Cut(path, "?")

	code, err := v.Loader.Load(ctx, query)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("path", path).Msg("Failed to generate entry module")
		return api.OnLoadResult{}, err
	}

	return api.OnLoadResult{
		Contents:   &code,
		ResolveDir: v.ResolveDir,
		Loader:     api.LoaderJS,
	}, nil
}
