package configstore

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/reglet-dev/hookguard/domain/entities"
)

type watchConfig struct {
	debounce time.Duration
	logger   *slog.Logger
}

// WatchOption configures Watch.
type WatchOption func(*watchConfig)

// WithDebounce sets how long Watch waits for writes to settle.
func WithDebounce(d time.Duration) WatchOption {
	return func(c *watchConfig) {
		c.debounce = d
	}
}

// WithWatchLogger sets the logger for watcher errors.
func WithWatchLogger(l *slog.Logger) WatchOption {
	return func(c *watchConfig) {
		c.logger = l
	}
}

// Watch reloads the document whenever it changes on disk and passes the
// result to onChange. A document that does not parse is reported and the
// current policy stays in force; a removed document means defaults. It
// watches the parent directory so atomic replacements are seen. Watch blocks
// until ctx is done.
func Watch(ctx context.Context, store *FileStore, onChange func(*entities.PermissionConfig), opts ...WatchOption) error {
	cfg := watchConfig{debounce: 100 * time.Millisecond, logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	target := filepath.Clean(store.ConfigPath())
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(target), err)
	}

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(cfg.debounce)
			fire = timer.C
		case <-fire:
			fire = nil
			loaded, err := store.Read()
			if err != nil {
				cfg.logger.Warn("config reload failed, keeping current policy", "path", target, "error", err)
				continue
			}
			cfg.logger.Debug("config reloaded", "path", target)
			onChange(loaded)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			cfg.logger.Warn("config watcher error", "error", err)
		}
	}
}
