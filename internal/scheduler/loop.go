package scheduler

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/zed/txfib/internal/errors"
	"github.com/zed/txfib/internal/fibonacci"
	"github.com/zed/txfib/internal/logging"
)

// DefaultStepBudget is the slice size used when neither the loop nor the
// submitter chooses one.
const DefaultStepBudget = fibonacci.DefaultYieldInterval

// blockedBackoff is how long Run parks after a full pass over the queue in
// which every task was waiting on computations held elsewhere.
const blockedBackoff = time.Millisecond

var (
	// ErrStopped is the cause of tasks resolved after the loop has stopped.
	ErrStopped = errors.New("scheduler: loop stopped")
	// ErrRunning is returned by Run when the loop is already being run.
	ErrRunning = errors.New("scheduler: loop already running")
)

// Option configures a Loop.
type Option func(*Loop)

// WithStepBudget sets the default number of units per slice.
func WithStepBudget(n int) Option {
	return func(l *Loop) {
		if n > 0 {
			l.budget = n
		}
	}
}

// WithLogger sets the loop's logger.
func WithLogger(logger logging.Logger) Option {
	return func(l *Loop) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithClock replaces time.Now for task timing.
func WithClock(now func() time.Time) Option {
	return func(l *Loop) {
		if now != nil {
			l.now = now
		}
	}
}

// Stats counts loop activity since creation.
type Stats struct {
	Ticks     uint64
	Completed uint64
	Failed    uint64
	Cancelled uint64
}

// Loop is a single-threaded cooperative scheduler. Tasks are advanced one
// slice at a time in round-robin order by whichever goroutine calls Tick or
// Run; Submit, Post and Handle.Cancel are safe for concurrent use.
//
// A task that never reaches a suspension point starves every other task.
// Steppers bound their own work per slice.
type Loop struct {
	mu      sync.Mutex
	queue   []*task
	posted  []func()
	active  map[string]*task
	stats   Stats
	stopped bool

	wake    chan struct{}
	running atomic.Bool

	budget int
	logger logging.Logger
	now    func() time.Time
}

// New returns an idle loop.
func New(opts ...Option) *Loop {
	l := &Loop{
		active: make(map[string]*task),
		wake:   make(chan struct{}, 1),
		budget: DefaultStepBudget,
		logger: logging.Nop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// StepBudget returns the default slice size.
func (l *Loop) StepBudget() int { return l.budget }

// Submit enqueues st as a Pending task and returns its handle. A non-empty
// key coalesces the submission with an unfinished task of the same key; the
// new handle then shares that task's outcome and st is released unused.
// budget <= 0 selects the loop default.
//
// The task is cancelled when ctx ends, observed at the next suspension point.
func (l *Loop) Submit(ctx context.Context, key string, st Stepper, budget int) *Handle {
	if budget <= 0 {
		budget = l.budget
	}

	l.mu.Lock()
	if key != "" {
		if t, ok := l.active[key]; ok && t.cancel == nil && !t.done {
			h, now := l.attachLocked(ctx, t)
			l.mu.Unlock()
			st.Release()
			l.logger.Debug("task coalesced",
				logging.String("task", t.id), logging.String("key", key))
			now.resolve()
			return h
		}
	}

	t := &task{
		id:      uuid.NewString(),
		key:     key,
		st:      st,
		budget:  budget,
		created: l.now(),
	}
	t.status.Store(uint32(Pending))
	h, now := l.attachLocked(ctx, t)
	if l.stopped {
		l.mu.Unlock()
		now.resolve()
		l.finish(t, fibonacci.Value{}, l.attribute(t, ErrStopped))
		return h
	}
	if key != "" {
		l.active[key] = t
	}
	l.queue = append(l.queue, t)
	queueDepth.Set(float64(len(l.queue)))
	l.mu.Unlock()

	now.resolve()
	l.signal()
	return h
}

type resolution struct {
	h   *Handle
	err error
}

// pendingResolutions are handles cancelled while the loop mutex was held.
type pendingResolutions []resolution

func (p pendingResolutions) resolve() {
	for _, r := range p {
		r.h.resolve(fibonacci.Value{}, r.err)
	}
}

func (l *Loop) attachLocked(ctx context.Context, t *task) (*Handle, pendingResolutions) {
	h := newHandle(ctx, t.id, t)
	h.onCancel = func(h *Handle) { l.cancel(h, context.Canceled) }
	t.handles = append(t.handles, h)
	t.live++

	var now pendingResolutions
	if err := ctx.Err(); err != nil {
		now = l.cancelLocked(h, err, now)
		return h, now
	}
	h.stop = context.AfterFunc(ctx, func() { l.cancel(h, ctx.Err()) })
	return h, now
}

// cancel withdraws h from its task.
func (l *Loop) cancel(h *Handle, cause error) {
	l.mu.Lock()
	now := l.cancelLocked(h, cause, nil)
	l.mu.Unlock()
	now.resolve()
	l.signal()
}

// cancelLocked withdraws h. When other handles still share the task, h is
// queued for immediate resolution; the last handle out marks the task so
// the loop stops it and resolves the rest.
func (l *Loop) cancelLocked(h *Handle, cause error, now pendingResolutions) pendingResolutions {
	t := h.task
	if h.cancelled || t.done {
		return now
	}
	h.cancelled = true
	t.live--
	err := l.attribute(t, cause)
	if t.live > 0 {
		return append(now, resolution{h, err})
	}
	t.cancel = err
	if t.key != "" && l.active[t.key] == t {
		delete(l.active, t.key)
	}
	return now
}

func (l *Loop) attribute(t *task, cause error) error {
	return apperrors.Attribute(apperrors.FromContext(cause), apperrors.KindCancelled,
		t.st.Strategy().String(), t.st.N())
}

// Post schedules fn to run on the loop thread before the next slice. After
// the loop has stopped, fn runs on the caller.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		l.runCallback(fn)
		return
	}
	l.posted = append(l.posted, fn)
	l.mu.Unlock()
	l.signal()
}

// External returns a handle for work running outside the loop, such as an
// offloaded computation, and the function that completes it. Completion is
// delivered through Post, so the handle resolves on the loop thread. The
// handle's Context ends on Cancel or when ctx ends; the external work must
// run under it.
func (l *Loop) External(ctx context.Context) (*Handle, func(fibonacci.Value, error)) {
	h := newHandle(ctx, uuid.NewString(), nil)
	h.onCancel = func(h *Handle) {
		h.cancelFn()
		l.Post(func() { h.resolve(fibonacci.Value{}, apperrors.FromContext(context.Canceled)) })
	}
	h.stop = context.AfterFunc(ctx, func() {
		err := ctx.Err()
		l.Post(func() { h.resolve(fibonacci.Value{}, apperrors.FromContext(err)) })
	})
	complete := func(v fibonacci.Value, err error) {
		l.Post(func() { h.resolve(v, err) })
	}
	return h, complete
}

// Len returns the number of tasks waiting for a slice.
func (l *Loop) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// Stats returns a snapshot of the loop counters.
func (l *Loop) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats
}

// Tick performs one loop iteration: it runs the posted callbacks, then gives
// one slice to the task at the head of the queue and re-enqueues it at the
// tail if it is unfinished. It reports whether work remains.
func (l *Loop) Tick() bool {
	more, _ := l.tick()
	return more
}

func (l *Loop) tick() (more, progressed bool) {
	l.runPosted()

	l.mu.Lock()
	t := l.popLocked()
	if t == nil {
		more = len(l.posted) > 0
		l.mu.Unlock()
		return more, false
	}
	now := l.observeLocked(t, nil)
	cancelErr := t.cancel
	l.stats.Ticks++
	l.mu.Unlock()

	now.resolve()
	loopTicks.Inc()
	if cancelErr != nil {
		l.finish(t, fibonacci.Value{}, cancelErr)
		progressed = true
	} else {
		progressed = l.slice(t)
	}

	l.mu.Lock()
	more = len(l.queue) > 0 || len(l.posted) > 0
	l.mu.Unlock()
	return more, progressed
}

func (l *Loop) popLocked() *task {
	if len(l.queue) == 0 {
		return nil
	}
	t := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	queueDepth.Set(float64(len(l.queue)))
	return t
}

// observeLocked withdraws handles whose submit context has ended without
// waiting for the AfterFunc goroutine to run.
func (l *Loop) observeLocked(t *task, now pendingResolutions) pendingResolutions {
	for _, h := range t.handles {
		if !h.cancelled {
			if err := h.parent.Err(); err != nil {
				now = l.cancelLocked(h, err, now)
			}
		}
	}
	return now
}

// slice runs one slice of t and reports whether it made progress.
func (l *Loop) slice(t *task) bool {
	t.status.CompareAndSwap(uint32(Pending), uint32(Running))

	done, err := l.step(t)
	t.ticks.Add(1)
	switch {
	case err != nil:
		l.finish(t, fibonacci.Value{}, err)
		return true
	case done:
		l.finish(t, t.st.Result(), nil)
		return true
	}

	l.mu.Lock()
	l.queue = append(l.queue, t)
	queueDepth.Set(float64(len(l.queue)))
	l.mu.Unlock()

	if b, ok := t.st.(blocker); ok && b.Blocked() {
		return false
	}
	return true
}

// step advances t by one slice. A panic fails only this task.
func (l *Loop) step(t *task) (done bool, err error) {
	defer func() {
		if v := recover(); v != nil {
			l.logger.Error("task panicked", fmt.Errorf("%v", v),
				logging.String("task", t.id),
				logging.String("computation", t.label()),
				logging.String("stack", string(debug.Stack())))
			done = false
			err = apperrors.NewComputeError(apperrors.KindStrategyFailure,
				t.st.Strategy().String(), t.st.N(), fmt.Errorf("panic: %v", v))
		}
	}()
	done, err = t.st.Step(t.budget)
	t.steps.Store(t.st.Steps())
	return done, err
}

// finish releases t and resolves every handle still attached to it.
func (l *Loop) finish(t *task, v fibonacci.Value, err error) {
	t.st.Release()

	var status Status
	switch {
	case err == nil:
		status = Completed
	case apperrors.KindOf(err) == apperrors.KindCancelled || apperrors.KindOf(err) == apperrors.KindTimeout:
		status = Cancelled
	default:
		status = Failed
	}

	l.mu.Lock()
	t.done = true
	if t.key != "" && l.active[t.key] == t {
		delete(l.active, t.key)
	}
	handles := t.handles
	switch status {
	case Completed:
		l.stats.Completed++
	case Failed:
		l.stats.Failed++
	case Cancelled:
		l.stats.Cancelled++
	}
	l.mu.Unlock()

	t.status.Store(uint32(status))
	taskOutcomes.WithLabelValues(t.st.Strategy().String(), status.String()).Inc()
	// Each coalesced handle owns its result.
	for i, h := range handles {
		hv := v
		if i > 0 && v.Int != nil {
			hv.Int = new(big.Int).Set(v.Int)
		}
		h.resolve(hv, err)
	}

	fields := []logging.Field{
		logging.String("task", t.id),
		logging.String("computation", t.label()),
		logging.String("status", status.String()),
		logging.Uint64("ticks", t.ticks.Load()),
		logging.Uint64("steps", t.steps.Load()),
		logging.Duration("elapsed", l.now().Sub(t.created)),
	}
	if err != nil {
		fields = append(fields, logging.Err(err))
	}
	l.logger.Debug("task finished", fields...)
}

func (l *Loop) runPosted() {
	l.mu.Lock()
	posted := l.posted
	l.posted = nil
	l.mu.Unlock()
	for _, fn := range posted {
		l.runCallback(fn)
	}
}

func (l *Loop) runCallback(fn func()) {
	defer func() {
		if v := recover(); v != nil {
			l.logger.Error("posted callback panicked", fmt.Errorf("%v", v),
				logging.String("stack", string(debug.Stack())))
		}
	}()
	fn()
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Run ticks the loop until ctx ends, parking while there is nothing to do.
// On return the loop is stopped: queued tasks resolve as cancelled and later
// submissions resolve immediately.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrRunning
	}
	defer l.running.Store(false)
	defer l.shutdown()

	l.logger.Debug("loop started", logging.Int("step_budget", l.budget))
	timer := time.NewTimer(blockedBackoff)
	timer.Stop()
	defer timer.Stop()

	// idle counts consecutive slices that made no progress. The loop parks
	// only once a whole pass over the queue was blocked.
	idle := 0
	for {
		if ctx.Err() != nil {
			return nil
		}
		more, progressed := l.tick()
		if progressed {
			idle = 0
		} else {
			idle++
		}
		if more && (progressed || idle < l.Len()) {
			continue
		}
		if more {
			idle = 0
			timer.Reset(blockedBackoff)
			select {
			case <-ctx.Done():
				return nil
			case <-l.wake:
				timer.Stop()
			case <-timer.C:
			}
			continue
		}
		select {
		case <-ctx.Done():
			return nil
		case <-l.wake:
		}
	}
}

func (l *Loop) shutdown() {
	l.mu.Lock()
	l.stopped = true
	queue := l.queue
	l.queue = nil
	posted := l.posted
	l.posted = nil
	queueDepth.Set(0)
	l.mu.Unlock()

	for _, fn := range posted {
		l.runCallback(fn)
	}
	for _, t := range queue {
		l.finish(t, fibonacci.Value{}, l.attribute(t, ErrStopped))
	}
	l.logger.Debug("loop stopped", logging.Int("abandoned", len(queue)))
}
