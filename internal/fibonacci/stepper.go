package fibonacci

import (
	"context"

	apperrors "github.com/zed/txfib/internal/errors"
	"github.com/zed/txfib/internal/memo"
)

// Stepper is the resumable state of one computation. Each call to Step
// performs at most budget units of work and returns at a suspension point:
// between two loop iterations, two doubling steps or two frame visits,
// never inside an arithmetic operation.
//
// The closed-form strategies complete in a single unit. UnmemoizedRecursive
// has no stepper.
type Stepper struct {
	strategy Strategy
	n        uint64
	steps    uint64
	done     bool
	blocked  bool
	result   Value

	// Exactly one of these is set, according to strategy.
	linear   *linearState
	doubling *doublingState
	memo     *memoState
}

// NewStepper prepares a computation of F(n). cache is required for
// MemoizedFib and ignored otherwise.
func NewStepper(s Strategy, n uint64, cache *memo.Cache) (*Stepper, error) {
	st := &Stepper{strategy: s, n: n}
	switch s {
	case Linear:
		st.linear = newLinear(n)
	case Logarithmic:
		st.doubling = newDoubling(n)
	case ClosedFormExact, ClosedFormApprox:
	case MemoizedRecursive:
		if cache == nil {
			return nil, apperrors.NewComputeError(apperrors.KindInvalidRequest, s.String(), n,
				errNoCache)
		}
		st.memo = newMemo(n, cache)
	case UnmemoizedRecursive:
		return nil, apperrors.NewComputeError(apperrors.KindInvalidRequest, s.String(), n,
			ErrNotDecomposable)
	default:
		return nil, apperrors.NewComputeError(apperrors.KindInvalidRequest, s.String(), n, nil)
	}
	return st, nil
}

// Strategy returns the strategy being computed.
func (st *Stepper) Strategy() Strategy { return st.strategy }

// N returns the target index.
func (st *Stepper) N() uint64 { return st.n }

// Steps returns the number of units executed so far.
func (st *Stepper) Steps() uint64 { return st.steps }

// Done reports whether the result is available.
func (st *Stepper) Done() bool { return st.done }

// Blocked reports whether the last Step stopped early because another
// computation holds an index this one needs.
func (st *Stepper) Blocked() bool { return st.blocked }

// Result returns the computed value. It is the zero Value until Done.
func (st *Stepper) Result() Value { return st.result }

// Step advances the computation by at most budget units (at least one).
func (st *Stepper) Step(budget int) (done bool, err error) {
	if st.done {
		return true, nil
	}
	if budget < 1 {
		budget = 1
	}
	st.blocked = false

	var used int
	switch st.strategy {
	case Linear:
		used, done = st.linear.advance(budget)
		if done {
			st.result = Exact(st.linear.a)
		}
	case Logarithmic:
		used, done = st.doubling.advance(budget)
		if done {
			st.result = Exact(st.doubling.fk)
		}
	case ClosedFormExact:
		used, done = 1, true
		st.result = Exact(BinetExact(st.n))
	case ClosedFormApprox:
		used, done = 1, true
		var f float64
		if f, err = BinetApprox(st.n); err == nil {
			st.result = Approximate(f)
		}
	case MemoizedRecursive:
		used, done, st.blocked, err = st.memo.advance(budget)
		if done {
			st.result = Exact(st.memo.result)
		}
	case UnmemoizedRecursive:
		err = ErrNotDecomposable
	}

	st.steps += uint64(used)
	if err != nil {
		st.Release()
		return false, apperrors.Attribute(err, apperrors.KindStrategyFailure, st.strategy.String(), st.n)
	}
	st.done = done
	if done {
		st.Release()
	}
	return done, nil
}

// Release drops every cache pin and claim held by the computation. It is
// safe to call more than once.
func (st *Stepper) Release() {
	if st.memo != nil {
		st.memo.release()
	}
}

// Compute runs strategy s to completion on the calling goroutine, checking
// ctx between slices of DefaultYieldInterval units. It is the entry point for
// the inline and thread-offload modes.
func Compute(ctx context.Context, s Strategy, n uint64, cache *memo.Cache) (Value, error) {
	switch s {
	case UnmemoizedRecursive:
		v, err := NaiveFib(ctx, n)
		if err != nil {
			return Value{}, apperrors.Attribute(err, apperrors.KindStrategyFailure, s.String(), n)
		}
		return Exact(v), nil
	case MemoizedRecursive:
		if cache == nil {
			return Value{}, apperrors.NewComputeError(apperrors.KindInvalidRequest, s.String(), n, errNoCache)
		}
		v, err := MemoizedFib(ctx, cache, n)
		if err != nil {
			return Value{}, apperrors.Attribute(err, apperrors.KindStrategyFailure, s.String(), n)
		}
		return Exact(v), nil
	}

	st, err := NewStepper(s, n, cache)
	if err != nil {
		return Value{}, err
	}
	defer st.Release()
	for {
		if err := ctx.Err(); err != nil {
			return Value{}, apperrors.Attribute(err, apperrors.KindCancelled, s.String(), n)
		}
		done, err := st.Step(DefaultYieldInterval)
		if err != nil {
			return Value{}, err
		}
		if done {
			return st.Result(), nil
		}
	}
}
