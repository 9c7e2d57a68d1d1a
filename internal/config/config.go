// Package config reads the dynentry.yaml project file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/wolfeidau/dynentry/internal/assets"
	"github.com/wolfeidau/dynentry/internal/codegen"
	"github.com/wolfeidau/dynentry/internal/entry"
	"github.com/wolfeidau/dynentry/internal/integration"
	"github.com/wolfeidau/dynentry/internal/loader"
	"github.com/wolfeidau/dynentry/internal/output"
	"gopkg.in/yaml.v3"
)

// DefaultFile is the configuration file looked up when none is given.
const DefaultFile = "dynentry.yaml"

// ErrNoEntry indicates the configuration has no entry.
var ErrNoEntry = errors.New("config has no entry")

// Config is the project configuration. JSON files are accepted too, since
// YAML is a superset.
type Config struct {
	Entry       Entry    `yaml:"entry"`
	Exportable  *bool    `yaml:"exportable"`
	ChunkNames  *bool    `yaml:"chunkNames"`
	LoaderPath  string   `yaml:"loaderPath"`
	ID          string   `yaml:"id"`
	ResolveDir  string   `yaml:"resolveDir"`
	OutDir      string   `yaml:"outDir"`
	EntryName   string   `yaml:"entryName"`
	External    []string `yaml:"external"`
	Minify      bool     `yaml:"minify"`
	Validate    bool     `yaml:"validate"`
	SourceMap   bool     `yaml:"sourceMap"`
	Precompress string   `yaml:"precompress"`
	Manifest    bool     `yaml:"manifest"`

	// Path is the file the configuration was loaded from, if any.
	Path string `yaml:"-"`
}

// Settings returns a canonical form of every option other than the entry.
// Two configurations with equal settings produce the same output for the
// same entry.
func (c *Config) Settings() (string, error) {
	s := *c
	s.Entry = Entry{}
	s.Path = ""
	data, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("failed to encode settings: %w", err)
	}
	return string(data), nil
}

// Load reads and parses the configuration file at path. Relative
// directories in the file are resolved against the file's directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := parse(data, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.Path = path
	return cfg, nil
}

// Parse parses a configuration document. Relative directories are resolved
// against the working directory.
func Parse(data []byte) (*Config, error) {
	return parse(data, ".")
}

func parse(data []byte, baseDir string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Entry.Entry == nil {
		return nil, ErrNoEntry
	}
	if _, err := output.ParseCompression(cfg.Precompress); err != nil {
		return nil, err
	}

	if cfg.LoaderPath == "" {
		cfg.LoaderPath = loader.DefaultPath
	}
	if cfg.ID == "" {
		cfg.ID = loader.DefaultID
	}
	if cfg.OutDir == "" {
		cfg.OutDir = "dist"
	}
	if cfg.EntryName == "" {
		cfg.EntryName = "main"
	}
	if cfg.ResolveDir == "" {
		cfg.ResolveDir = baseDir
	} else if !filepath.IsAbs(cfg.ResolveDir) {
		cfg.ResolveDir = filepath.Join(baseDir, cfg.ResolveDir)
	}

	return &cfg, nil
}

// IsExportable reports whether generated modules export a loader function,
// true unless disabled.
func (c *Config) IsExportable() bool {
	return c.Exportable == nil || *c.Exportable
}

// Generator returns a code generator with the configured post-processors.
func (c *Config) Generator() *codegen.Generator {
	opts := []codegen.Option{
		codegen.WithChunkNames(c.ChunkNames == nil || *c.ChunkNames),
	}
	if c.Validate {
		opts = append(opts, codegen.WithPostProcessors(assets.Validate()))
	}
	if c.Minify {
		opts = append(opts, codegen.WithPostProcessors(assets.Minify()))
	}
	return codegen.New(opts...)
}

// Plugin returns an integration plugin for the configured loader.
func (c *Config) Plugin() *integration.Plugin {
	return integration.New(
		integration.WithLoaderPath(c.LoaderPath),
		integration.WithExportable(c.IsExportable()),
		integration.WithID(c.ID),
	)
}

// Assets returns the esbuild pipeline configuration.
func (c *Config) Assets() assets.Config {
	compression, _ := output.ParseCompression(c.Precompress)

	outDir := c.OutDir
	if !filepath.IsAbs(outDir) {
		outDir = filepath.Join(c.ResolveDir, outDir)
	}

	return assets.Config{
		ResolveDir:   c.ResolveDir,
		OutputDir:    outDir,
		MetafilePath: filepath.Join(outDir, "meta.json"),
		EntryName:    c.EntryName,
		Namespace:    assets.DefaultConfig().Namespace,
		External:     c.External,
		Minify:       c.Minify,
		SourceMap:    c.SourceMap,
		Precompress:  compression,
		Manifest:     c.Manifest,
	}
}

// Pipeline returns an esbuild pipeline wired to the configured plugin and
// generator.
func (c *Config) Pipeline() *assets.Pipeline {
	return assets.New(c.Assets(), c.Plugin(), loader.New(c.Generator()))
}

// EntryValue returns the configured entry.
func (c *Config) EntryValue() entry.Entry {
	return c.Entry.Entry
}
