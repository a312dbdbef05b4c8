package pipeline

import (
	"context"
	"log/slog"
)

// Step is one stage of a pipeline over state of type T.
type Step[T any] interface {
	// Do executes the step. An error stops the pipeline.
	Do(ctx context.Context, state T) error

	// Name returns the step's name for logging and status reporting.
	Name() string
}

// Pipeline executes steps in the order they were given.
type Pipeline[T any] struct {
	// steps contains the ordered list of steps to execute.
	steps []Step[T]

	// logger is used for structured logging during execution.
	logger *slog.Logger

	// onStep is called with the step name before the step runs.
	onStep func(name string)
}

// Option is a function that configures a Pipeline.
type Option func(*options)

type options struct {
	logger *slog.Logger
	onStep func(name string)
}

// WithLogger sets a custom logger for the pipeline.
// If not set, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithStepHook registers fn to be called with each step's name right
// before the step runs. The crawl engine uses it to publish its state.
func WithStepHook(fn func(name string)) Option {
	return func(o *options) {
		o.onStep = fn
	}
}

// New creates a Pipeline running steps in the given order.
func New[T any](steps []Step[T], opts ...Option) *Pipeline[T] {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	return &Pipeline[T]{
		steps:  append([]Step[T](nil), steps...),
		logger: o.logger,
		onStep: o.onStep,
	}
}

// Execute runs all steps in sequence against state and stops at the
// first failing step. Cancellation is checked between steps; each step
// handles its own blocking calls.
func (p *Pipeline[T]) Execute(ctx context.Context, state T) error {
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"reason", err,
			)
			return err
		}

		if p.onStep != nil {
			p.onStep(step.Name())
		}
		p.logger.Debug("executing step", "step", step.Name())

		if err := step.Do(ctx, state); err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"error", err,
			)
			return err
		}

		p.logger.Debug("step completed", "step", step.Name())
	}

	return nil
}
