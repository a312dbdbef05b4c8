// Package pipeline runs ordered steps over shared state and fans work out to
// a fixed set of workers.
//
// The crawl engine models a generation as a pipeline (seed, drain, finalize)
// over its generation state, and the drain step runs its workers through a
// Pool.
package pipeline
