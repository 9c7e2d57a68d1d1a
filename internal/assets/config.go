package assets

import "github.com/wolfeidau/dynentry/internal/output"

type Config struct {
	// Directory that relative entry paths resolve against
	ResolveDir string
	// Output directory for built files
	OutputDir string
	// Path to metafile, empty to skip writing it
	MetafilePath string
	// Output name used when the entry is a single path or a list
	EntryName string
	// esbuild namespace holding the generated entry modules
	Namespace string
	// Module specifiers left for the runtime to resolve
	External []string
	// Whether to minify output
	Minify bool
	// Whether to enable source maps
	SourceMap bool
	// Write precompressed siblings of every output file
	Precompress output.Compression
	// Write a manifest.json with checksums next to the outputs
	Manifest bool
}

// DefaultConfig returns a sensible default configuration
func DefaultConfig() Config {
	return Config{
		ResolveDir:   ".",
		OutputDir:    "dist",
		MetafilePath: "dist/meta.json",
		EntryName:    "main",
		Namespace:    "dynamic-entry",
		Minify:       true,
		SourceMap:    true,
	}
}
