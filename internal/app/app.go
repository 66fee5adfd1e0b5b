// Package app wires every WavePulse component from the configuration.
package app

import (
	"context"
	"os"
	"sync"

	"wavepulse/internal/chat"
	"wavepulse/internal/config"
	"wavepulse/internal/fileedit"
	"wavepulse/internal/fileops"
	"wavepulse/internal/graph"
	"wavepulse/internal/inspect"
	"wavepulse/internal/logging"
	"wavepulse/internal/remote"
	"wavepulse/internal/router"
	"wavepulse/internal/server"
	"wavepulse/internal/snapshot"
	"wavepulse/internal/watcher"
)

// App is the assembled orchestration layer.
type App struct {
	mu         sync.Mutex
	cfg        *config.Config
	configPath string

	exec      remote.Executor
	closeExec func()
	ops       *remote.FileOps
	verifier  *fileedit.Verifier
	router    *router.Router
	graph     *graph.Graph
	files     *fileops.Agent
	snapshots snapshot.Store[*snapshot.Snapshot]
	pending   *snapshot.Pending
	hub       *server.Hub
	inspector *inspect.Inspector
	chat      *chat.Service
	server    *server.Server
	watcher   *watcher.Watcher
}

// New builds an App from cfg using the configured model and executor.
func New(ctx context.Context, cfg *config.Config, configPath string) (*App, error) {
	return NewBuilder(cfg).WithConfigPath(configPath).Build(ctx)
}

// Config returns the current configuration.
func (a *App) Config() *config.Config {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cfg
}

func (a *App) Chat() *chat.Service           { return a.chat }
func (a *App) Router() *router.Router        { return a.router }
func (a *App) Graph() *graph.Graph           { return a.graph }
func (a *App) FileOps() *remote.FileOps      { return a.ops }
func (a *App) Files() *fileops.Agent         { return a.files }
func (a *App) Verifier() *fileedit.Verifier  { return a.verifier }
func (a *App) Inspector() *inspect.Inspector { return a.inspector }
func (a *App) Server() *server.Server        { return a.server }

// Serve runs the HTTP server until ctx is cancelled. When the app was built
// from a config file, edits to it are applied while serving.
func (a *App) Serve(ctx context.Context) error {
	a.watchConfig()
	return a.server.ListenAndServe(ctx)
}

func (a *App) watchConfig() {
	if a.configPath == "" {
		return
	}
	if _, err := os.Stat(a.configPath); err != nil {
		logging.Debug("config file not watched", "path", a.configPath, "error", err)
		return
	}
	w, err := watcher.WatchConfig(a.configPath, watcher.DefaultConfig(), a.applyConfig)
	if err != nil {
		logging.Warn("config watcher unavailable", "error", err)
		return
	}
	a.mu.Lock()
	a.watcher = w
	a.mu.Unlock()
}

// applyConfig applies the settings that can change without a restart: log
// level and routing variant. Everything else needs a restart.
func (a *App) applyConfig(next *config.Config) {
	logging.SetLevel(logging.ParseLevel(next.Logging.Level))
	a.router.SetIncludeCodebase(next.Router.IncludeCodebase)

	a.mu.Lock()
	updated := *a.cfg
	updated.Logging.Level = next.Logging.Level
	updated.Router = next.Router
	a.cfg = &updated
	a.mu.Unlock()

	logging.Info("settings applied", "log_level", next.Logging.Level, "include_codebase", next.Router.IncludeCodebase)
}

// Close releases the watcher and executor connections.
func (a *App) Close() {
	a.mu.Lock()
	w := a.watcher
	a.watcher = nil
	a.mu.Unlock()

	if w != nil {
		if err := w.Stop(); err != nil {
			logging.Debug("error stopping config watcher", "error", err)
		}
	}
	if a.closeExec != nil {
		a.closeExec()
	}
	logging.Debug("shutdown complete")
}
