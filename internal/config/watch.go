package config

import (
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watch watches configPath for writes and invokes onChange with the
// freshly reloaded Config. It is a best-effort convenience: callers that
// don't pass a configPath get no watcher and must restart to pick up
// changes.
func Watch(configPath string, logger *zap.SugaredLogger, onChange func(Config)) (func() error, error) {
	if configPath == "" {
		return func() error { return nil }, nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(configPath); err != nil {
		_ = watcher.Close()
		return nil, err
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				cfg, err := Load(configPath)
				if err != nil {
					logger.Warnw("config reload failed", "path", configPath, "error", err)
					continue
				}
				onChange(cfg)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warnw("config watcher error", "error", err)
			}
		}
	}()

	return watcher.Close, nil
}
