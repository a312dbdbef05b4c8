package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultWorkers is the pool size used when none is configured.
const DefaultWorkers = 6

// Pool runs a fixed number of long-lived workers.
// The first worker error cancels the others.
type Pool struct {
	// workers is the number of goroutines started by Run.
	workers int

	// logger is used for pool-level logging.
	logger *slog.Logger
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithPoolLogger sets a custom logger for the pool.
func WithPoolLogger(logger *slog.Logger) PoolOption {
	return func(p *Pool) {
		p.logger = logger
	}
}

// WithWorkers sets the number of workers. Non-positive values are ignored.
func WithWorkers(n int) PoolOption {
	return func(p *Pool) {
		if n > 0 {
			p.workers = n
		}
	}
}

// NewPool creates a Pool.
func NewPool(opts ...PoolOption) *Pool {
	p := &Pool{
		workers: DefaultWorkers,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// Workers returns the configured pool size.
func (p *Pool) Workers() int {
	return p.workers
}

// Run starts the workers and blocks until all of them return.
// Each worker receives its index in [0, Workers()). The first non-nil
// error cancels the context passed to the others and is returned.
func (p *Pool) Run(ctx context.Context, work func(ctx context.Context, worker int) error) error {
	p.logger.Debug("starting workers", "workers", p.workers)
	startTime := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for i := range p.workers {
		g.Go(func() error {
			return work(ctx, i)
		})
	}

	err := g.Wait()

	p.logger.Debug("workers finished",
		"workers", p.workers,
		"elapsed", time.Since(startTime),
	)
	return err
}
