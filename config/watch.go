package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/Carmen-Shannon/oxy-vidfx/common"
	"github.com/fsnotify/fsnotify"
)

// Watch reloads the file at path whenever it is written or replaced and passes each valid result
// to onChange. Invalid edits are logged and skipped. Watch blocks until ctx is done.
//
// The parent directory is watched so editors that save by rename keep delivering events.
//
// Parameters:
//   - ctx: stops the watcher when done
//   - path: the config file
//   - onChange: receives each successfully reloaded Config
//
// Returns:
//   - error: watcher setup failure, or nil once ctx is done
func Watch(ctx context.Context, path string, onChange func(Config)) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("config: watch: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: watch: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("config: watch %q: %w", path, err)
	}
	common.Logger().Info("watching config", "path", abs)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			c, err := Load(abs)
			if err != nil {
				common.Logger().Warn("config reload rejected", "path", abs, "err", err)
				continue
			}
			common.Logger().Info("config reloaded", "path", abs)
			onChange(c)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			common.Logger().Warn("config watcher error", "err", err)
		}
	}
}
