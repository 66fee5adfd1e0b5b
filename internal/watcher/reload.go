package watcher

import (
	"wavepulse/internal/config"
	"wavepulse/internal/logging"
)

// ReloadFunc receives a freshly loaded configuration.
type ReloadFunc func(cfg *config.Config)

// WatchConfig reloads the configuration at path whenever it settles after a
// change and passes it to onReload. Invalid files are logged and skipped.
func WatchConfig(path string, cfg Config, onReload ReloadFunc) (*Watcher, error) {
	w, err := NewWatcher(cfg, path)
	if err != nil {
		return nil, err
	}
	w.SetOnFileChange(func(e Event) {
		if e.Operation.Removed() {
			logging.Warn("config file removed, keeping current settings", "path", e.Path)
			return
		}
		next, err := config.Load(path)
		if err == nil {
			err = next.Validate()
		}
		if err != nil {
			logging.Warn("config reload failed", "path", path, "error", err)
			return
		}
		logging.Info("config reloaded", "path", path)
		onReload(next)
	})
	if err := w.Start(); err != nil {
		w.Stop()
		return nil, err
	}
	return w, nil
}
