package offload

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/zed/txfib/internal/errors"
	"github.com/zed/txfib/internal/fibonacci"
	"github.com/zed/txfib/internal/logging"
)

// ErrPoolClosed is returned by Submit after Close.
var ErrPoolClosed = errors.New("offload: pool closed")

// Func is a computation run on a pool worker.
type Func func(ctx context.Context) (fibonacci.Value, error)

// Future is the pending outcome of a pooled computation.
type Future struct {
	done  chan struct{}
	value fibonacci.Value
	err   error
}

func newFuture() *Future { return &Future{done: make(chan struct{})} }

// Done is closed when the computation has finished.
func (f *Future) Done() <-chan struct{} { return f.done }

// Wait blocks until the computation finishes or ctx ends.
func (f *Future) Wait(ctx context.Context) (fibonacci.Value, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		return fibonacci.Value{}, apperrors.FromContext(ctx.Err())
	}
}

// Result returns the outcome. It must only be called after Done is closed.
func (f *Future) Result() (fibonacci.Value, error) { return f.value, f.err }

func (f *Future) complete(v fibonacci.Value, err error) {
	f.value, f.err = v, err
	close(f.done)
}

type job struct {
	ctx context.Context
	fn  Func
	fut *Future
}

// Option configures a Pool.
type Option func(*Pool)

// WithLogger sets the pool's logger.
func WithLogger(logger logging.Logger) Option {
	return func(p *Pool) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// Pool runs computations on a fixed set of worker goroutines fed by a
// bounded queue.
type Pool struct {
	size   int
	jobs   chan job
	group  errgroup.Group
	logger logging.Logger

	mu     sync.RWMutex
	closed bool
}

// NewPool starts size workers behind a queue of the given capacity. size is
// at least one; a negative queue is treated as zero.
func NewPool(size, queue int, opts ...Option) *Pool {
	if size < 1 {
		size = 1
	}
	if queue < 0 {
		queue = 0
	}
	p := &Pool{
		size:   size,
		jobs:   make(chan job, queue),
		logger: logging.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	for i := 0; i < size; i++ {
		p.group.Go(p.work)
	}
	poolWorkers.Add(float64(size))
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return p.size }

// Queued returns the number of computations waiting for a worker.
func (p *Pool) Queued() int { return len(p.jobs) }

// Submit enqueues fn. It blocks while the queue is full, until a slot frees
// up or ctx ends. fn receives ctx and should return promptly once it ends.
func (p *Pool) Submit(ctx context.Context, fn Func) (*Future, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return nil, ErrPoolClosed
	}

	j := job{ctx: ctx, fn: fn, fut: newFuture()}
	select {
	case p.jobs <- j:
		poolQueued.Inc()
		return j.fut, nil
	case <-ctx.Done():
		return nil, apperrors.FromContext(ctx.Err())
	}
}

// Close stops intake, lets the workers drain the queue and waits for them.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()

	err := p.group.Wait()
	poolWorkers.Sub(float64(p.size))
	return err
}

func (p *Pool) work() error {
	for j := range p.jobs {
		poolQueued.Dec()
		poolBusy.Inc()
		v, err := p.run(j)
		poolBusy.Dec()
		poolJobs.WithLabelValues(outcome(err)).Inc()
		j.fut.complete(v, err)
	}
	return nil
}

// run executes one job. A panic becomes an OffloadFailure for that job only.
func (p *Pool) run(j job) (v fibonacci.Value, err error) {
	if err := j.ctx.Err(); err != nil {
		return fibonacci.Value{}, apperrors.FromContext(err)
	}
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("offloaded computation panicked", fmt.Errorf("%v", r),
				logging.String("stack", string(debug.Stack())))
			v = fibonacci.Value{}
			err = apperrors.Errorf(apperrors.KindOffloadFailure, "worker panic: %v", r)
		}
	}()
	return j.fn(j.ctx)
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return apperrors.KindOf(err).String()
}
