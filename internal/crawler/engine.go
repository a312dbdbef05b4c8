package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nao1215/meshmap/internal/admin"
	"github.com/nao1215/meshmap/internal/graph"
	"github.com/nao1215/meshmap/internal/model"
	"github.com/nao1215/meshmap/internal/pipeline"
	"github.com/nao1215/meshmap/internal/registry"
)

// Engine crawls the mesh and keeps the result of the latest generation.
// Refresh, Export and CrawlingStatus are safe for concurrent use.
type Engine struct {
	// dial opens daemon connections for the root and for every worker.
	dial Dialer

	// registry holds the state of the current generation.
	registry *registry.Registry

	// workers is the number of concurrent interrogation workers.
	workers int

	// overrides replaces names and clusters of specific nodes.
	overrides map[model.Key]model.NodeOverride

	// logger is used for structured logging.
	logger *slog.Logger

	// run serializes generations. Refresh only ever TryLocks it.
	run sync.Mutex

	// mu guards the fields below.
	mu      sync.Mutex
	root    Daemon
	closed  bool
	state   State
	current *generation
}

// Option configures an Engine.
type Option func(*Engine)

// WithWorkers sets the number of concurrent workers.
// Non-positive values are ignored.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithOverrides sets per-node name and cluster overrides.
func WithOverrides(overrides map[model.Key]model.NodeOverride) Option {
	return func(e *Engine) {
		e.overrides = overrides
	}
}

// New creates an Engine that opens connections with dial.
func New(dial Dialer, opts ...Option) *Engine {
	e := &Engine{
		dial:      dial,
		registry:  registry.New(),
		workers:   pipeline.DefaultWorkers,
		overrides: map[model.Key]model.NodeOverride{},
		state:     StateIdle,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// Open dials the root connection. Calling Open on an open engine is a
// no-op. Refresh opens the engine on demand, so calling Open first only
// surfaces connection problems early.
func (e *Engine) Open(ctx context.Context) error {
	_, err := e.rootDaemon(ctx)
	return err
}

// Close releases the root connection. A running generation is not
// interrupted, but its next root request fails.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.closed = true
	if e.root == nil {
		return nil
	}
	err := e.root.Close()
	e.root = nil
	return err
}

// rootDaemon returns the root connection, dialing it if needed.
func (e *Engine) rootDaemon(ctx context.Context) (Daemon, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrClosed
	}
	if e.root != nil {
		return e.root, nil
	}

	root, err := e.dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open root connection: %w", err)
	}
	e.root = root
	return root, nil
}

// dropRoot discards a root connection that failed.
func (e *Engine) dropRoot(root Daemon) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.root == root {
		_ = root.Close() //nolint:errcheck // connection already broken
		e.root = nil
	}
}

// Refresh runs one crawl generation: the registry is reset, the mesh is
// crawled from the root's direct peers, and lookup data is merged.
//
// If a generation is already running, Refresh returns ErrCrawlInProgress
// immediately without touching any state. Unreachable nodes never fail a
// generation; a broken root connection does.
func (e *Engine) Refresh(ctx context.Context) error {
	if !e.run.TryLock() {
		return ErrCrawlInProgress
	}
	defer e.run.Unlock()

	root, err := e.rootDaemon(ctx)
	if err != nil {
		return err
	}

	e.registry.Reset()
	gen := newGeneration(root, e.logger)

	e.mu.Lock()
	e.current = gen
	e.mu.Unlock()

	gen.logger.Info("crawl generation started", "workers", e.workers)

	p := pipeline.New(
		[]pipeline.Step[*generation]{
			&seedStep{engine: e},
			&drainStep{engine: e},
			&finalizeStep{engine: e},
		},
		pipeline.WithLogger(gen.logger),
		pipeline.WithStepHook(func(name string) { e.setState(stateByName[name]) }),
	)
	err = p.Execute(ctx, gen)
	e.setState(StateIdle)

	if err != nil {
		if admin.IsConnectionError(err) {
			e.dropRoot(gen.root)
		}
		return fmt.Errorf("crawl generation %s failed: %w", gen.id, err)
	}

	stats := e.registry.Stats()
	gen.logger.Info("crawl generation finished",
		"peers", stats.Peers,
		"enriched", stats.Enriched,
		"links", stats.Links,
	)
	return nil
}

// Export builds a graph of the current registry state.
// It never fails because of crawl failures; only an unknown mode errors.
func (e *Engine) Export(mode model.Mode) (*model.Graph, error) {
	return graph.Export(e.registry.Snapshot(), mode)
}

// Generation returns the id of the latest generation and the key of its
// root node. Both are empty before the first Refresh.
func (e *Engine) Generation() (string, model.Key) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == nil {
		return "", model.EmptyKey
	}
	return e.current.id, e.current.selfKey()
}

// State returns the phase of the running generation.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.state
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.state = s
}

// CrawlingStatus returns a one-line diagnostic summary of the crawl.
func (e *Engine) CrawlingStatus() string {
	e.mu.Lock()
	state := e.state
	current := e.current
	e.mu.Unlock()

	id := "-"
	queued := 0
	if current != nil {
		id = current.id
		queued = current.frontier.len()
	}

	stats := e.registry.Stats()
	return fmt.Sprintf("state=%s generation=%s peers=%d enriched=%d links=%d queued=%d in_progress=%d",
		state, id, stats.Peers, stats.Enriched, stats.Links, queued, stats.InProgress)
}
