package config

import (
	"context"
	"path/filepath"
	"time"

	"pilot/internal/logger"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the config file on change and invokes onChange with the new
// document. Only hot-reloadable knobs (log level, payload dump) should be
// applied from the callback; structural changes need a restart. Reload
// errors are logged and the previous config stays in effect.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// Watch the directory: editors often replace the file, which drops a
	// watch registered on the file itself.
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return err
	}
	target := filepath.Clean(path)

	go func() {
		defer watcher.Close()
		var debounce *time.Timer
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				// Editors fire bursts of events per save.
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(300*time.Millisecond, func() {
					cfg, err := Load(path)
					if err != nil {
						logger.Warnf("Config: reload failed, keeping previous config: %v", err)
						return
					}
					logger.Infof("Config: reloaded %s", path)
					onChange(cfg)
				})
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warnf("Config: watcher error: %v", err)
			}
		}
	}()
	return nil
}
