// Package output writes a set of generated files to disk, or checks that
// what is on disk matches them.
//
// The usual flow writes files during a build and, in CI, verifies instead so
// a stale generated entry module is caught before it ships.
package output

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/go-cmp/cmp"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 12

// ErrConflict indicates two files were added under the same path.
var ErrConflict = errors.New("generated file already added")

// File is a single generated file.
type File struct {
	// RelativePath is where the file is written, relative to the output
	// directory.
	RelativePath string
	Data         []byte
}

// Option configures Write and Verify.
type Option func(*options)

type options struct {
	concurrency int
	compression Compression
	manifest    bool
}

// WithConcurrency limits the number of files processed at once.
func WithConcurrency(n int) Option {
	return func(o *options) {
		o.concurrency = n
	}
}

// WithCompression writes a precompressed sibling next to each file.
func WithCompression(c Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithManifest adds a manifest.json describing every file.
func WithManifest(enabled bool) Option {
	return func(o *options) {
		o.manifest = enabled
	}
}

func newOptions(opts []Option) options {
	o := options{concurrency: defaultConcurrency}
	for _, opt := range opts {
		opt(&o)
	}
	if o.concurrency <= 0 {
		o.concurrency = defaultConcurrency
	}
	return o
}

// Files is a set of generated files keyed by relative path. The zero value
// is not usable, call NewFiles.
type Files struct {
	mu    sync.Mutex
	files map[string][]byte
}

// NewFiles creates an empty file set.
func NewFiles() *Files {
	return &Files{files: make(map[string][]byte)}
}

// Add adds files to the set. Absolute paths and paths already present are
// rejected, in which case nothing is added.
func (fs *Files) Add(files ...File) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	var result *multierror.Error
	seen := make(map[string]bool, len(files))
	for _, f := range files {
		if filepath.IsAbs(f.RelativePath) {
			result = multierror.Append(result, fmt.Errorf("generated files must have relative paths, got %s", f.RelativePath))
			continue
		}
		path := filepath.Clean(f.RelativePath)
		if _, has := fs.files[path]; has || seen[path] {
			result = multierror.Append(result, fmt.Errorf("%w: %s", ErrConflict, path))
		}
		seen[path] = true
	}
	if err := result.ErrorOrNil(); err != nil {
		return err
	}

	for _, f := range files {
		fs.files[filepath.Clean(f.RelativePath)] = f.Data
	}
	return nil
}

// Paths returns the relative paths in the set, sorted.
func (fs *Files) Paths() []string {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	paths := make([]string, 0, len(fs.files))
	for p := range fs.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Len returns the number of files in the set.
func (fs *Files) Len() int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return len(fs.files)
}

// expand returns the files in path order, with compressed siblings and the
// manifest added as configured.
func (fs *Files) expand(o options) ([]File, error) {
	fs.mu.Lock()
	list := make([]File, 0, len(fs.files))
	for p, data := range fs.files {
		list = append(list, File{RelativePath: p, Data: data})
	}
	fs.mu.Unlock()

	sort.Slice(list, func(i, j int) bool {
		return list[i].RelativePath < list[j].RelativePath
	})

	if o.manifest {
		data, err := NewManifest(list).Marshal()
		if err != nil {
			return nil, err
		}
		list = append(list, File{RelativePath: ManifestName, Data: data})
	}

	if o.compression != CompressionNone {
		compressed := make([]File, 0, len(list))
		for _, f := range list {
			data, err := o.compression.compress(f.Data)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", f.RelativePath, err)
			}
			compressed = append(compressed, File{RelativePath: f.RelativePath + o.compression.Ext(), Data: data})
		}
		list = append(list, compressed...)
	}

	return list, nil
}

// Write writes every file below dir, creating parent directories as needed.
func (fs *Files) Write(ctx context.Context, dir string, opts ...Option) error {
	o := newOptions(opts)

	list, err := fs.expand(o)
	if err != nil {
		return err
	}

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)

	for _, f := range list {
		g.Go(func() error {
			path := filepath.Join(dir, f.RelativePath)
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return fmt.Errorf("%s: failed to ensure parent directory exists: %w", path, err)
			}
			if err := os.WriteFile(path, f.Data, 0o644); err != nil { //nolint:gosec
				return fmt.Errorf("%s: error while writing file: %w", path, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	zerolog.Ctx(ctx).Debug().Str("dir", dir).Int("files", len(list)).Msg("wrote generated files")
	return nil
}

// Verify compares every file with its counterpart below dir. Missing or
// differing files are collected into a single error; I/O failures abort.
func (fs *Files) Verify(ctx context.Context, dir string, opts ...Option) error {
	o := newOptions(opts)

	list, err := fs.expand(o)
	if err != nil {
		return err
	}

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)

	var (
		mu     sync.Mutex
		result *multierror.Error
	)
	appendErr := func(err error) {
		mu.Lock()
		result = multierror.Append(result, err)
		mu.Unlock()
	}

	for _, f := range list {
		g.Go(func() error {
			path := filepath.Join(dir, f.RelativePath)
			onDisk, err := os.ReadFile(path) //nolint:gosec
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					appendErr(fmt.Errorf("%s: generated file should exist, but does not", path))
					return nil
				}
				return fmt.Errorf("%s: error reading file: %w", path, err)
			}

			var diff string
			if o.compression != CompressionNone && filepath.Ext(path) == o.compression.Ext() {
				// compressed output is not byte stable across encoder versions
				onDisk, err = o.compression.decompress(onDisk)
				if err != nil {
					appendErr(fmt.Errorf("%s: %w", path, err))
					return nil
				}
				want, err := o.compression.decompress(f.Data)
				if err != nil {
					return fmt.Errorf("%s: decompressing generated content: %w", path, err)
				}
				diff = cmp.Diff(string(onDisk), string(want))
			} else {
				diff = cmp.Diff(string(onDisk), string(f.Data))
			}
			if diff != "" {
				appendErr(fmt.Errorf("%s would have changed:\n\n%s", path, diff))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("io error while verifying generated files: %w", err)
	}

	return result.ErrorOrNil()
}
