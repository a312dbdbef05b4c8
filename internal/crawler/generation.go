package crawler

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/nao1215/meshmap/internal/admin"
	"github.com/nao1215/meshmap/internal/model"
)

// generation is the per-refresh state threaded through the pipeline.
type generation struct {
	// id identifies the generation in logs and status output.
	id string

	// root is the orchestrator's own connection.
	root Daemon

	// frontier holds keys waiting for a worker.
	frontier *frontier

	// logger carries the generation id.
	logger *slog.Logger

	// alive counts workers that have not retired.
	alive atomic.Int32

	mu   sync.Mutex
	self admin.SelfInfo
	key  model.Key

	// closeErr aggregates errors from closing worker connections.
	closeErr error
}

func newGeneration(root Daemon, logger *slog.Logger) *generation {
	id := uuid.NewString()
	return &generation{
		id:       id,
		root:     root,
		frontier: newFrontier(),
		logger:   logger.With("generation", id),
	}
}

func (g *generation) setSelf(self admin.SelfInfo, key model.Key) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.self = self
	g.key = key
}

func (g *generation) selfKey() model.Key {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.key
}

func (g *generation) selfInfo() admin.SelfInfo {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.self
}

func (g *generation) addCloseErr(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.closeErr = multierr.Append(g.closeErr, err)
}

func (g *generation) closeErrors() []error {
	g.mu.Lock()
	defer g.mu.Unlock()

	return multierr.Errors(g.closeErr)
}
