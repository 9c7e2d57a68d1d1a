package assets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/dynentry/internal/output"
)

var (
	// ErrBuildFailed is returned when esbuild reports errors
	ErrBuildFailed = errors.New("esbuild failed with errors")
	// ErrNotBuilt is returned by LoadScripts before a successful Build
	ErrNotBuilt = errors.New("assets not built yet, call Build() first")
)

// Build applies raw to the integration plugin and, when the entry changed
// since the last build, bundles the generated entry modules and writes the
// outputs, the metafile and any precompressed siblings.
func (p *Pipeline) Build(ctx context.Context, raw any) (BuildResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	logger := zerolog.Ctx(ctx)

	applied, err := p.plugin.Apply(ctx, raw)
	if err != nil {
		return BuildResult{}, err
	}

	if !applied.Changed && p.metadata != nil {
		logger.Info().Str("fingerprint", applied.Fingerprint).Msg("Entry unchanged, skipping build")
		return BuildResult{Fingerprint: applied.Fingerprint, Files: p.files}, nil
	}

	bundle, err := p.bundle(ctx, applied.Entry)
	if err != nil {
		// forget the entry so the next call rebuilds
		p.plugin.Reset()
		return BuildResult{}, err
	}

	if err := p.write(ctx, bundle); err != nil {
		p.plugin.Reset()
		return BuildResult{}, err
	}

	p.metadata = bundle.metadata
	p.files = bundle.files.Paths()

	for _, file := range p.files {
		logger.Info().Str("file", file).Msg("Built file")
	}

	return BuildResult{
		Changed:     true,
		Fingerprint: applied.Fingerprint,
		Files:       p.files,
	}, nil
}

// write stores the bundle outputs and the metafile.
func (p *Pipeline) write(ctx context.Context, bundle *bundleResult) error {
	if err := bundle.files.Write(ctx, bundle.outDir, p.outputOptions()...); err != nil {
		return err
	}

	if p.config.MetafilePath == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(p.config.MetafilePath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(p.config.MetafilePath, []byte(bundle.metafile), 0600)
}

// Verify bundles raw in memory and checks the output directory holds the
// same files. It does not record raw as the applied entry.
func (p *Pipeline) Verify(ctx context.Context, raw any) error {
	normalized, err := p.plugin.Normalize(ctx, raw)
	if err != nil {
		return err
	}
	rewritten, err := p.plugin.Rewrite(normalized)
	if err != nil {
		return err
	}

	bundle, err := p.bundle(ctx, rewritten)
	if err != nil {
		return err
	}

	return bundle.files.Verify(ctx, bundle.outDir, p.outputOptions()...)
}

type bundleResult struct {
	outDir   string
	files    *output.Files
	metafile string
	metadata *BuildMetadata
}

func (p *Pipeline) bundle(ctx context.Context, rewritten any) (*bundleResult, error) {
	logger := zerolog.Ctx(ctx)

	entryPoints, err := p.entryPoints(rewritten)
	if err != nil {
		return nil, err
	}

	workDir, err := filepath.Abs(cond(p.config.ResolveDir == "", ".", p.config.ResolveDir))
	if err != nil {
		return nil, err
	}
	outDir := p.config.OutputDir
	if !filepath.IsAbs(outDir) {
		outDir = filepath.Join(workDir, outDir)
	}

	names := make([]string, 0, len(entryPoints))
	for _, ep := range entryPoints {
		names = append(names, ep.OutputPath)
	}
	logger.Info().Strs("entrypoints", names).Msg("Building assets")

	virtual := VirtualModules{
		Namespace:  p.config.Namespace,
		LoaderPath: p.plugin.LoaderPath(),
		ResolveDir: workDir,
		Loader:     p.loader,
	}

	result := api.Build(api.BuildOptions{
		EntryPointsAdvanced: entryPoints,
		AbsWorkingDir:       workDir,
		Bundle:              true,
		Splitting:           true,
		Write:               false,
		Outdir:              outDir,
		Format:              api.FormatESModule,
		External:            p.config.External,
		MinifyWhitespace:    p.config.Minify,
		MinifyIdentifiers:   p.config.Minify,
		MinifySyntax:        p.config.Minify,
		TreeShaking:         api.TreeShakingTrue,
		Sourcemap:           cond(p.config.SourceMap, api.SourceMapLinked, api.SourceMapNone),
		Metafile:            true,
		Plugins:             []api.Plugin{virtual.Plugin(ctx)},
	})

	if len(result.Errors) > 0 {
		texts := make([]string, 0, len(result.Errors))
		for _, msg := range result.Errors {
			logger.Error().Str("error", msg.Text).Msg("Build error")
			texts = append(texts, msg.Text)
		}
		return nil, fmt.Errorf("%w: %s", ErrBuildFailed, strings.Join(texts, "; "))
	}

	files := output.NewFiles()
	for _, f := range result.OutputFiles {
		rel, err := filepath.Rel(outDir, f.Path)
		if err != nil {
			return nil, err
		}
		if err := files.Add(output.File{RelativePath: rel, Data: f.Contents}); err != nil {
			return nil, err
		}
	}

	var metadata BuildMetadata
	if err := json.Unmarshal([]byte(result.Metafile), &metadata); err != nil {
		return nil, err
	}

	// metafile paths are relative to the working directory, scripts are
	// served relative to the output directory
	relOut, err := filepath.Rel(workDir, outDir)
	if err != nil {
		return nil, err
	}
	metadata.Outputs = rebase(metadata.Outputs, filepath.ToSlash(relOut))

	return &bundleResult{
		outDir:   outDir,
		files:    files,
		metafile: result.Metafile,
		metadata: &metadata,
	}, nil
}

// entryPoints maps a rewritten entry configuration to esbuild entry points:
// a single request is built under the configured entry name, a map of
// requests under each key.
func (p *Pipeline) entryPoints(rewritten any) ([]api.EntryPoint, error) {
	switch v := rewritten.(type) {
	case string:
		return []api.EntryPoint{{InputPath: v, OutputPath: p.config.EntryName}}, nil
	case map[string]string:
		if len(v) == 0 {
			return nil, errors.New("no entry points found")
		}
		names := make([]string, 0, len(v))
		for name := range v {
			names = append(names, name)
		}
		sort.Strings(names)

		eps := make([]api.EntryPoint, 0, len(v))
		for _, name := range names {
			eps = append(eps, api.EntryPoint{InputPath: v[name], OutputPath: name})
		}
		return eps, nil
	default:
		return nil, fmt.Errorf("unexpected entry configuration %T", rewritten)
	}
}

func rebase(outputs map[string]OutputInfo, prefix string) map[string]OutputInfo {
	trim := func(p string) string {
		if prefix == "." || prefix == "" {
			return p
		}
		return strings.TrimPrefix(p, prefix+"/")
	}

	out := make(map[string]OutputInfo, len(outputs))
	for path, info := range outputs {
		imports := make([]ImportInfo, 0, len(info.Imports))
		for _, imp := range info.Imports {
			imp.Path = trim(imp.Path)
			imports = append(imports, imp)
		}
		info.Imports = imports
		out[trim(path)] = info
	}
	return out
}

// LoadScripts returns the ordered list of script paths needed for the named
// entry and the main entrypoint file path
func (p *Pipeline) LoadScripts(name string) ([]string, string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.metadata == nil {
		return nil, "", ErrNotBuilt
	}

	scripts := []string{}
	visited := make(map[string]bool)

	for outputPath, info := range p.metadata.Outputs {
		if info.EntryPoint == "" || strings.TrimSuffix(outputPath, ".js") != name {
			continue
		}
		entrypoint := "/" + outputPath
		scripts = append(scripts, entrypoint)
		visited[outputPath] = true
		p.addDependencies(info, &scripts, visited)
		return scripts, entrypoint, nil
	}

	return nil, "", fmt.Errorf("entrypoint %q not found in metadata", name)
}

func (p *Pipeline) addDependencies(output OutputInfo, scripts *[]string, visited map[string]bool) {
	for _, imp := range output.Imports {
		if visited[imp.Path] {
			continue
		}
		// externals are resolved by the runtime
		if _, exists := p.metadata.Outputs[imp.Path]; !exists {
			continue
		}
		visited[imp.Path] = true
		*scripts = append(*scripts, "/"+imp.Path)
		p.addDependencies(p.metadata.Outputs[imp.Path], scripts, visited)
	}
}

func cond[T any](condition bool, trueVal, falseVal T) T {
	if condition {
		return trueVal
	}
	return falseVal
}
