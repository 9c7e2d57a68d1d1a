// Package watch regenerates entry modules when the project configuration
// changes on disk.
package watch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/dynentry/internal/config"
	"github.com/wolfeidau/dynentry/internal/integration"
)

// Config controls the watcher.
type Config struct {
	// Path of the configuration file
	Path string
	// Debounce collapses bursts of file events into one reload
	Debounce time.Duration
	// MaxTries bounds the reload attempts per change
	MaxTries uint
	// RetryInterval is the initial wait between reload attempts
	RetryInterval time.Duration
}

// DefaultConfig returns the watcher defaults for path.
func DefaultConfig(path string) Config {
	return Config{
		Path:          path,
		Debounce:      100 * time.Millisecond,
		MaxTries:      5,
		RetryInterval: 50 * time.Millisecond,
	}
}

// Generation is one regeneration triggered by a changed entry.
type Generation struct {
	// ID is a UUIDv7, so generations sort by creation time.
	ID     uuid.UUID
	Config *config.Config
	Result integration.Result
}

// Handler regenerates output for a changed entry.
type Handler func(ctx context.Context, gen Generation) error

// Watcher reloads the configuration on change and calls the handler only
// when the normalized entry or any other setting differs from the last
// one.
type Watcher struct {
	cfg      Config
	plugin   *integration.Plugin
	settings string
	handler  Handler
	load     func(path string) (*config.Config, error)
}

// New creates a Watcher. The integration plugin is built from the loaded
// configuration and replaced whenever its settings change.
func New(cfg Config, handler Handler) *Watcher {
	defaults := DefaultConfig(cfg.Path)
	if cfg.Debounce <= 0 {
		cfg.Debounce = defaults.Debounce
	}
	if cfg.MaxTries == 0 {
		cfg.MaxTries = defaults.MaxTries
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = defaults.RetryInterval
	}
	return &Watcher{
		cfg:     cfg,
		handler: handler,
		load:    config.Load,
	}
}

// Reconcile reloads the configuration, retrying while the file is
// mid-write, and runs the handler if the entry changed. It reports whether
// the handler ran.
func (w *Watcher) Reconcile(ctx context.Context) (bool, error) {
	logger := zerolog.Ctx(ctx)

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = w.cfg.RetryInterval

	cfg, err := backoff.Retry(ctx, func() (*config.Config, error) {
		return w.load(w.cfg.Path)
	},
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(w.cfg.MaxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.Warn().Err(err).Dur("next_retry", next).Msg("Failed to load config, will retry")
		}),
	)
	if err != nil {
		return false, fmt.Errorf("failed to load config: %w", err)
	}

	settings, err := cfg.Settings()
	if err != nil {
		return false, err
	}
	if w.plugin == nil || settings != w.settings {
		if w.plugin != nil {
			logger.Info().Msg("Config settings changed")
		}
		// a fresh plugin has no applied entry, so the handler runs
		w.plugin = cfg.Plugin()
		w.settings = settings
	}

	res, err := w.plugin.Apply(ctx, cfg.EntryValue())
	if err != nil {
		return false, err
	}
	if !res.Changed {
		logger.Debug().Str("fingerprint", res.Fingerprint).Msg("Entry unchanged, skipping regeneration")
		return false, nil
	}

	id, err := uuid.NewV7()
	if err != nil {
		return false, fmt.Errorf("failed to create generation id: %w", err)
	}

	genLogger := logger.With().Str("generation", id.String()).Logger()
	ctx = genLogger.WithContext(ctx)

	start := time.Now()
	if err := w.handler(ctx, Generation{ID: id, Config: cfg, Result: res}); err != nil {
		// forget the entry so the same configuration is retried next time
		w.plugin.Reset()
		return false, err
	}

	genLogger.Info().
		Str("fingerprint", res.Fingerprint).
		Dur("duration", time.Since(start)).
		Msg("Regenerated entry")

	return true, nil
}

// Run reconciles once, then on every change to the configuration file until
// ctx is cancelled. Reload and handler failures are logged and the watcher
// carries on.
func (w *Watcher) Run(ctx context.Context) error {
	logger := zerolog.Ctx(ctx)

	path, err := filepath.Abs(w.cfg.Path)
	if err != nil {
		return err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fw.Close()

	// editors replace files by renaming, so watch the directory
	if err := fw.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
	}

	w.reconcile(ctx)

	logger.Info().Str("path", path).Msg("Watching config for changes")

	timer := time.NewTimer(w.cfg.Debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			logger.Debug().Str("event", event.Op.String()).Msg("Config changed")
			timer.Reset(w.cfg.Debounce)

		case <-timer.C:
			w.reconcile(ctx)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Error().Err(err).Msg("File watcher error")

		case <-ctx.Done():
			logger.Debug().Msg("Watcher stopping")
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		}
	}
}

func (w *Watcher) reconcile(ctx context.Context) {
	if _, err := w.Reconcile(ctx); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("Failed to regenerate entry")
	}
}
