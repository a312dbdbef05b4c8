package crawler

import (
	"context"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/nao1215/meshmap/internal/model"
)

// frontier is the FIFO queue of keys waiting to be crawled in one
// generation. It tracks outstanding work so that workers know when the
// crawl has drained: a submitted key stays outstanding until done is
// called for it, even after it was dequeued.
type frontier struct {
	mu   sync.Mutex
	cond *sync.Cond

	queue []model.Key

	// submitted holds every key ever enqueued in this generation, so a key
	// is enqueued at most once. Guarded by mu.
	submitted mapset.Set[model.Key]

	outstanding int
	closed      bool
}

func newFrontier() *frontier {
	f := &frontier{
		submitted: mapset.NewThreadUnsafeSet[model.Key](),
	}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// submit enqueues key unless it was submitted before, the frontier is
// closed, or admit rejects it. admit runs under the frontier lock, so the
// check and the enqueue are one atomic step.
func (f *frontier) submit(key model.Key, admit func(model.Key) bool) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed || f.submitted.Contains(key) || !admit(key) {
		return false
	}
	f.submitted.Add(key)
	f.queue = append(f.queue, key)
	f.outstanding++
	f.cond.Signal()
	return true
}

// next blocks until a key is available. It returns false once all
// outstanding work is done, the frontier was closed, or ctx is cancelled.
// Callers must arrange for wake to run on cancellation.
func (f *frontier) next(ctx context.Context) (model.Key, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for len(f.queue) == 0 && !f.closed && f.outstanding > 0 && ctx.Err() == nil {
		f.cond.Wait()
	}
	if len(f.queue) == 0 || ctx.Err() != nil {
		return model.EmptyKey, false
	}

	key := f.queue[0]
	f.queue = f.queue[1:]
	return key, true
}

// done marks one dequeued key as fully processed.
func (f *frontier) done() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.outstanding--
	if f.outstanding <= 0 {
		f.cond.Broadcast()
	}
}

// close rejects further submissions and drops every queued key.
// It returns the dropped keys.
func (f *frontier) close() []model.Key {
	f.mu.Lock()
	defer f.mu.Unlock()

	abandoned := f.queue
	f.queue = nil
	f.outstanding -= len(abandoned)
	f.closed = true
	f.cond.Broadcast()
	return abandoned
}

// wake releases every goroutine blocked in next so it can observe a
// cancelled context.
func (f *frontier) wake() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.cond.Broadcast()
}

// len returns the number of queued keys.
func (f *frontier) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.queue)
}
