package orchestration

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/zed/txfib/internal/errors"
	"github.com/zed/txfib/internal/fibonacci"
	"github.com/zed/txfib/internal/logging"
	"github.com/zed/txfib/internal/memo"
	"github.com/zed/txfib/internal/scheduler"
	"github.com/zed/txfib/internal/worker"
)

// Options tunes a single computation. Zero values select the defaults.
type Options struct {
	// StepBudget is the cooperative slice size; <= 0 uses the loop default.
	StepBudget int
	// CacheCapacity selects the shared memo cache of that capacity;
	// <= 0 selects the unbounded default cache.
	CacheCapacity int
	// Mode overrides the strategy's default execution mode.
	Mode fibonacci.Mode
	// Timeout bounds the computation; <= 0 means no per-request bound.
	Timeout time.Duration
}

// Computation is a dispatched request. It embeds the handle that resolves
// with the value.
type Computation struct {
	*scheduler.Handle
	Strategy fibonacci.Strategy
	Mode     fibonacci.Mode
	N        uint64
	Started  time.Time

	usage atomic.Pointer[worker.Usage]
}

// Usage returns the worker process's resource usage. It is only available
// for resolved process-offload computations.
func (c *Computation) Usage() (worker.Usage, bool) {
	select {
	case <-c.Done():
	default:
		return worker.Usage{}, false
	}
	u := c.usage.Load()
	if u == nil {
		return worker.Usage{}, false
	}
	return *u, true
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithDefaultCache replaces the unbounded cache used when no capacity is
// requested.
func WithDefaultCache(c *memo.Cache) Option {
	return func(d *Dispatcher) {
		if c != nil {
			d.defaultCache = c
		}
	}
}

// WithLogger sets the dispatcher's logger.
func WithLogger(logger logging.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithTracer replaces the global "txfib" tracer.
func WithTracer(t trace.Tracer) Option {
	return func(d *Dispatcher) {
		if t != nil {
			d.tracer = t
		}
	}
}

// WithMaxN rejects indices above max with InvalidIndex. Zero disables the
// check.
func WithMaxN(max uint64) Option {
	return func(d *Dispatcher) { d.maxN = max }
}

// Dispatcher routes computations to the execution mode their strategy
// allows: the cooperative loop, the loop thread inline, the goroutine pool
// or a worker process. Every outcome is delivered through a loop handle.
type Dispatcher struct {
	loop *scheduler.Loop
	pool ThreadExecutor
	proc ProcessRunner

	mu           sync.Mutex
	defaultCache *memo.Cache
	caches       map[int]*memo.Cache

	maxN   uint64
	logger logging.Logger
	tracer trace.Tracer
}

// New returns a dispatcher. pool and proc may be nil, which disables the
// corresponding mode.
func New(loop *scheduler.Loop, pool ThreadExecutor, proc ProcessRunner, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		loop:   loop,
		pool:   pool,
		proc:   proc,
		caches: make(map[int]*memo.Cache),
		logger: logging.Nop(),
		tracer: otel.Tracer("txfib"),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.defaultCache == nil {
		d.defaultCache = memo.New(0)
	}
	return d
}

// Cache returns the shared cache for a capacity, creating it on first use.
// capacity <= 0 returns the default cache.
func (d *Dispatcher) Cache(capacity int) *memo.Cache {
	if capacity <= 0 {
		return d.defaultCache
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	c, ok := d.caches[capacity]
	if !ok {
		c = memo.New(capacity)
		d.caches[capacity] = c
	}
	return c
}

// Caches returns the default cache followed by every capacity-limited cache
// created so far.
func (d *Dispatcher) Caches() []*memo.Cache {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*memo.Cache, 0, len(d.caches)+1)
	out = append(out, d.defaultCache)
	for _, c := range d.caches {
		out = append(out, c)
	}
	return out
}

// Loop returns the scheduler the dispatcher delivers results on.
func (d *Dispatcher) Loop() *scheduler.Loop { return d.loop }

// Compute validates and dispatches a computation of F(n). Validation
// failures are returned directly; everything else, including failures of
// the computation itself, is delivered on the returned handle.
func (d *Dispatcher) Compute(ctx context.Context, strategyName string, n uint64, opts Options) (*Computation, error) {
	s, err := fibonacci.ParseStrategy(strategyName)
	if err != nil {
		return nil, apperrors.NewComputeError(apperrors.KindInvalidRequest, strategyName, n, err)
	}
	if d.maxN > 0 && n > d.maxN {
		return nil, apperrors.NewComputeError(apperrors.KindInvalidIndex, s.String(), n,
			fmt.Errorf("index exceeds the limit of %d", d.maxN))
	}
	mode, err := d.resolveMode(s, opts.Mode)
	if err != nil {
		return nil, apperrors.NewComputeError(apperrors.KindInvalidRequest, s.String(), n, err)
	}

	var cache *memo.Cache
	if s.UsesCache() {
		cache = d.Cache(opts.CacheCapacity)
	}

	cancel := context.CancelFunc(func() {})
	if opts.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
	}
	ctx, span := d.tracer.Start(ctx, "Compute", trace.WithAttributes(
		attribute.String("fib.strategy", s.String()),
		attribute.Int64("fib.n", int64(n)),
		attribute.String("fib.mode", mode.String()),
	))

	c := &Computation{Strategy: s, Mode: mode, N: n, Started: time.Now()}
	switch mode {
	case fibonacci.Cooperative:
		st, err := fibonacci.NewStepper(s, n, cache)
		if err != nil {
			span.End()
			cancel()
			return nil, err
		}
		key := fmt.Sprintf("%s/%d/%d", s, n, capacityOf(cache))
		c.Handle = d.loop.Submit(ctx, key, st, opts.StepBudget)
	case fibonacci.Inline:
		c.Handle = d.inline(ctx, s, n, cache)
	case fibonacci.ThreadOffload:
		c.Handle = d.thread(ctx, s, n, cache)
	case fibonacci.ProcessOffload:
		c.Handle = d.process(ctx, c)
	}

	go d.observe(c, span, cancel)
	return c, nil
}

func (d *Dispatcher) resolveMode(s fibonacci.Strategy, m fibonacci.Mode) (fibonacci.Mode, error) {
	p := s.Profile()
	if m == fibonacci.ModeDefault {
		m = p.DefaultMode
	}
	if !p.Allows(m) {
		return m, fmt.Errorf("strategy %s cannot run in %s mode", s, m)
	}
	switch {
	case m == fibonacci.ThreadOffload && d.pool == nil:
		return m, fmt.Errorf("thread offload is not available")
	case m == fibonacci.ProcessOffload && d.proc == nil:
		return m, fmt.Errorf("process offload is not available")
	}
	return m, nil
}

func capacityOf(c *memo.Cache) int {
	if c == nil {
		return 0
	}
	return c.Capacity()
}

// inline runs the whole computation in one loop callback. Every other task
// waits until it returns.
func (d *Dispatcher) inline(ctx context.Context, s fibonacci.Strategy, n uint64, cache *memo.Cache) *scheduler.Handle {
	h, complete := d.loop.External(ctx)
	d.loop.Post(func() {
		v, err := fibonacci.Compute(h.Context(), s, n, cache)
		complete(v, err)
	})
	return h
}

// thread runs the computation on the pool. The handle resolves as soon as
// it is cancelled or times out; a result arriving later is dropped.
func (d *Dispatcher) thread(ctx context.Context, s fibonacci.Strategy, n uint64, cache *memo.Cache) *scheduler.Handle {
	h, complete := d.loop.External(ctx)
	fut, err := d.pool.Submit(h.Context(), func(ctx context.Context) (fibonacci.Value, error) {
		return fibonacci.Compute(ctx, s, n, cache)
	})
	if err != nil {
		complete(fibonacci.Value{}, apperrors.Attribute(err, apperrors.KindOffloadFailure, s.String(), n))
		return h
	}
	go func() {
		select {
		case <-fut.Done():
			v, err := fut.Result()
			complete(v, apperrors.Attribute(err, apperrors.KindOffloadFailure, s.String(), n))
		case <-h.Done():
		}
	}()
	return h
}

// process runs the computation in a worker process.
func (d *Dispatcher) process(ctx context.Context, c *Computation) *scheduler.Handle {
	h, complete := d.loop.External(ctx)
	req := worker.Request{Strategy: c.Strategy.String(), N: c.N}
	go func() {
		resp, err := d.proc.Run(h.Context(), req)
		if err != nil {
			complete(fibonacci.Value{}, apperrors.Attribute(err, apperrors.KindOffloadFailure, req.Strategy, req.N))
			return
		}
		usage := resp.Usage
		c.usage.Store(&usage)
		complete(resp.Result())
	}()
	return h
}

// observe records the outcome of c once it resolves.
func (d *Dispatcher) observe(c *Computation, span trace.Span, cancel context.CancelFunc) {
	defer cancel()
	defer span.End()

	<-c.Done()
	elapsed := time.Since(c.Started)
	v, err := c.Result()
	status := c.Status().String()

	computationsTotal.WithLabelValues(c.Strategy.String(), c.Mode.String(), status).Inc()
	computationDuration.WithLabelValues(c.Strategy.String(), c.Mode.String()).Observe(elapsed.Seconds())

	fields := []logging.Field{
		logging.String("id", c.ID()),
		logging.String("strategy", c.Strategy.String()),
		logging.Uint64("n", c.N),
		logging.String("mode", c.Mode.String()),
		logging.String("status", status),
		logging.Duration("duration", elapsed),
		logging.Uint64("ticks", c.Ticks()),
		logging.Uint64("steps", c.Steps()),
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, apperrors.KindOf(err).String())
		d.logger.Debug("computation failed", append(fields, logging.Err(err))...)
		return
	}
	span.SetAttributes(attribute.Int("fib.digits", v.Digits()))
	d.logger.Debug("computation completed", append(fields, logging.Int("digits", v.Digits()))...)
}
