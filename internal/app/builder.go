package app

import (
	"context"
	"errors"
	"fmt"

	"wavepulse/internal/agent"
	"wavepulse/internal/analysis"
	"wavepulse/internal/cache"
	"wavepulse/internal/chat"
	"wavepulse/internal/client"
	"wavepulse/internal/config"
	"wavepulse/internal/discovery"
	"wavepulse/internal/fileedit"
	"wavepulse/internal/fileops"
	"wavepulse/internal/graph"
	"wavepulse/internal/inspect"
	"wavepulse/internal/logging"
	"wavepulse/internal/remote"
	"wavepulse/internal/router"
	"wavepulse/internal/server"
	"wavepulse/internal/snapshot"
	"wavepulse/internal/tools"
	"wavepulse/internal/validate"
)

// Builder constructs an App step by step. Generator and executor may be
// injected; otherwise they are created from the config.
type Builder struct {
	cfg        *config.Config
	configPath string

	gen       client.Generator
	exec      remote.Executor
	closeExec func()

	ops       *remote.FileOps
	lookups   *cache.LookupCache
	verifier  *fileedit.Verifier
	router    *router.Router
	graph     *graph.Graph
	files     *fileops.Agent
	snapshots snapshot.Store[*snapshot.Snapshot]
	sessions  snapshot.Store[*chat.Session]
	pending   *snapshot.Pending
	hub       *server.Hub
	inspector *inspect.Inspector
	chat      *chat.Service

	buildErrors []error
}

// NewBuilder creates a builder for cfg.
func NewBuilder(cfg *config.Config) *Builder {
	return &Builder{cfg: cfg}
}

// WithConfigPath enables config reloading from path.
func (b *Builder) WithConfigPath(path string) *Builder {
	b.configPath = path
	return b
}

// WithGenerator injects the language model.
func (b *Builder) WithGenerator(gen client.Generator) *Builder {
	b.gen = gen
	return b
}

// WithExecutor injects the command executor.
func (b *Builder) WithExecutor(exec remote.Executor) *Builder {
	b.exec = exec
	return b
}

// Build constructs the App.
func (b *Builder) Build(ctx context.Context) (*App, error) {
	if err := b.initExecutor(); err != nil {
		b.addError(err)
		return nil, b.finalizeError()
	}
	if err := b.initClient(ctx); err != nil {
		b.addError(err)
		b.closeExec()
		return nil, b.finalizeError()
	}
	b.initCodebase()
	b.initFileOps()
	b.initInspection()
	b.initChat()

	logging.Info("app built",
		"provider", b.cfg.Model.Provider,
		"model", b.cfg.Model.Name,
		"executor", b.cfg.Executor.Mode,
		"include_codebase", b.cfg.Router.IncludeCodebase)
	return b.assembleApp(), nil
}

func (b *Builder) initExecutor() error {
	if b.exec != nil {
		b.closeExec = func() {}
	} else {
		exec, closeFn, err := remote.New(b.cfg.Executor)
		if err != nil {
			return fmt.Errorf("executor: %w", err)
		}
		b.exec, b.closeExec = exec, closeFn
	}
	b.ops = remote.NewFileOps(b.exec)
	b.verifier = fileedit.NewVerifier(b.ops)
	b.lookups = cache.NewLookupCache(b.cfg.Discovery.CacheSize, b.cfg.Discovery.CacheTTL)
	return nil
}

func (b *Builder) initClient(ctx context.Context) error {
	if b.gen != nil {
		return nil
	}
	gen, err := client.New(ctx, b.cfg)
	if err != nil {
		return fmt.Errorf("model client: %w", err)
	}
	b.gen = gen
	return nil
}

func (b *Builder) initCodebase() {
	b.router = router.NewRouter(b.gen, b.cfg.Model, b.cfg.Router)

	registry := agent.DefaultRegistry(b.gen, b.cfg.Model)
	b.graph = graph.New(
		router.NewAnalyzer(b.gen, b.cfg.Model, registry.IDs()),
		discovery.NewEngine(b.ops, b.cfg.Discovery, b.cfg.Paths, b.lookups),
		analysis.NewEngine(b.ops, b.cfg.Analysis),
		agent.NewOrchestrator(registry, b.cfg.Agent.Parallel),
		validate.NewValidator(b.ops),
		b.gen,
		b.cfg.Model,
	)
}

func (b *Builder) initFileOps() {
	workDir := b.cfg.Executor.WorkDir
	if workDir == "" {
		workDir = b.cfg.Paths.RuntimeRoot
	}
	if workDir == "" {
		workDir = b.cfg.Paths.CodegenRoot
	}
	reg := tools.DefaultRegistry(b.ops, b.verifier, b.lookups, workDir)
	b.files = fileops.New(reg, b.gen, b.cfg.Model, b.cfg.Paths, b.cfg.Agent.ToolIterations)
}

func (b *Builder) initInspection() {
	b.snapshots = newStore[*snapshot.Snapshot](b.cfg.Inspect)
	b.sessions = newStore[*chat.Session](b.cfg.Inspect)
	b.pending = snapshot.NewPending(snapshot.NewMemoryStore[snapshot.Entry]())
	b.hub = server.NewHub()
	b.inspector = inspect.New(b.snapshots, b.pending, b.hub, b.gen, b.cfg.Model, b.cfg.Inspect)
}

func (b *Builder) initChat() {
	b.chat = chat.NewService(b.router, b.inspector, b.files, b.graph, b.sessions, b.cfg.Model.Deterministic)
}

// newStore picks a bounded store when a channel limit is configured.
func newStore[V any](cfg config.InspectConfig) snapshot.Store[V] {
	if cfg.MaxChannels > 0 {
		return snapshot.NewLRUStore[V](cfg.MaxChannels, cfg.SnapshotTTL)
	}
	return snapshot.NewMemoryStore[V]()
}

func (b *Builder) assembleApp() *App {
	return &App{
		cfg:        b.cfg,
		configPath: b.configPath,
		exec:       b.exec,
		closeExec:  b.closeExec,
		ops:        b.ops,
		verifier:   b.verifier,
		router:     b.router,
		graph:      b.graph,
		files:      b.files,
		snapshots:  b.snapshots,
		pending:    b.pending,
		hub:        b.hub,
		inspector:  b.inspector,
		chat:       b.chat,
		server:     server.New(b.chat, b.snapshots, b.pending, b.hub, b.cfg.Server),
	}
}

func (b *Builder) addError(err error) {
	b.buildErrors = append(b.buildErrors, err)
}

func (b *Builder) finalizeError() error {
	return errors.Join(b.buildErrors...)
}
