package scheduler

import (
	"context"
	"sync"
	"sync/atomic"

	apperrors "github.com/zed/txfib/internal/errors"
	"github.com/zed/txfib/internal/fibonacci"
)

// Handle is the caller's view of a scheduled or offloaded computation. It
// resolves exactly once, and every waiter observes the same outcome.
type Handle struct {
	id   string
	task *task // nil for external handles

	parent   context.Context
	ctx      context.Context
	cancelFn context.CancelFunc
	onCancel func(h *Handle)
	stop     func() bool

	once   sync.Once
	done   chan struct{}
	status atomic.Uint32
	value  fibonacci.Value
	err    error

	cancelled bool // guarded by the loop mutex
}

func newHandle(parent context.Context, id string, t *task) *Handle {
	ctx, cancel := context.WithCancel(parent)
	return &Handle{
		parent:   parent,
		id:       id,
		task:     t,
		ctx:      ctx,
		cancelFn: cancel,
		done:     make(chan struct{}),
	}
}

// ID returns the identifier of the computation. Handles coalesced onto the
// same task share it.
func (h *Handle) ID() string { return h.id }

// Context returns a context that ends when the handle resolves or its
// submit context ends. Offloaded work runs under it.
func (h *Handle) Context() context.Context { return h.ctx }

// Done is closed once the handle has resolved.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Wait blocks until the handle resolves or ctx ends. Giving up on the wait
// does not cancel the computation.
func (h *Handle) Wait(ctx context.Context) (fibonacci.Value, error) {
	select {
	case <-h.done:
		return h.value, h.err
	case <-ctx.Done():
		return fibonacci.Value{}, apperrors.FromContext(ctx.Err())
	}
}

// Result returns the outcome, or the zero Value and a nil error while the
// handle is unresolved.
func (h *Handle) Result() (fibonacci.Value, error) {
	select {
	case <-h.done:
		return h.value, h.err
	default:
		return fibonacci.Value{}, nil
	}
}

// Status returns the current lifecycle state.
func (h *Handle) Status() Status {
	if s := Status(h.status.Load()); s.Terminal() {
		return s
	}
	if h.task != nil {
		return Status(h.task.status.Load())
	}
	return Running
}

// Cancel asks for the computation to stop. A task shared with other handles
// keeps running until all of them have cancelled; this handle resolves as
// cancelled either way. Cancel after resolution has no effect.
func (h *Handle) Cancel() {
	if h.onCancel != nil {
		h.onCancel(h)
	}
}

// Ticks returns the number of loop slices the task has received.
func (h *Handle) Ticks() uint64 {
	if h.task == nil {
		return 0
	}
	return h.task.ticks.Load()
}

// Steps returns the number of work units the task has executed.
func (h *Handle) Steps() uint64 {
	if h.task == nil {
		return 0
	}
	return h.task.steps.Load()
}

// resolve records the outcome. Only the first call has an effect.
func (h *Handle) resolve(v fibonacci.Value, err error) bool {
	resolved := false
	h.once.Do(func() {
		resolved = true
		h.value, h.err = v, err
		switch {
		case err == nil:
			h.status.Store(uint32(Completed))
		case apperrors.KindOf(err) == apperrors.KindCancelled || apperrors.KindOf(err) == apperrors.KindTimeout:
			h.status.Store(uint32(Cancelled))
		default:
			h.status.Store(uint32(Failed))
		}
		if h.stop != nil {
			h.stop()
		}
		close(h.done)
		h.cancelFn()
	})
	return resolved
}
