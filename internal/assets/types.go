package assets

import (
	"sync"

	"github.com/wolfeidau/dynentry/internal/integration"
	"github.com/wolfeidau/dynentry/internal/loader"
	"github.com/wolfeidau/dynentry/internal/output"
)

type BuildMetadata struct {
	Outputs map[string]OutputInfo `json:"outputs"`
}

type OutputInfo struct {
	EntryPoint string       `json:"entryPoint"`
	Imports    []ImportInfo `json:"imports"`
	Bytes      int          `json:"bytes"`
}

type ImportInfo struct {
	Path string `json:"path"`
	Kind string `json:"kind"`
}

// BuildResult summarises a Build call.
type BuildResult struct {
	// Changed is false when the entry matched the previous build, which was
	// kept as is.
	Changed     bool
	Fingerprint string
	// Files lists the output files relative to the output directory.
	Files []string
}

// Pipeline bundles generated entry modules with esbuild and tracks the
// outputs of the last build.
type Pipeline struct {
	config   Config
	plugin   *integration.Plugin
	loader   *loader.Loader
	metadata *BuildMetadata
	files    []string
	mu       sync.RWMutex
}

// New creates a new asset pipeline. A nil plugin or loader is replaced by
// one with default settings.
func New(config Config, plugin *integration.Plugin, ld *loader.Loader) *Pipeline {
	if plugin == nil {
		plugin = integration.New()
	}
	if ld == nil {
		ld = loader.New(nil)
	}
	if config.EntryName == "" {
		config.EntryName = DefaultConfig().EntryName
	}
	if config.Namespace == "" {
		config.Namespace = DefaultConfig().Namespace
	}
	return &Pipeline{
		config: config,
		plugin: plugin,
		loader: ld,
	}
}

func (p *Pipeline) outputOptions() []output.Option {
	return []output.Option{
		output.WithCompression(p.config.Precompress),
		output.WithManifest(p.config.Manifest),
	}
}
