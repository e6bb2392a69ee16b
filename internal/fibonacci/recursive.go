package fibonacci

import (
	"context"
	"math/big"

	apperrors "github.com/zed/txfib/internal/errors"
	"github.com/zed/txfib/internal/memo"
)

// ─────────────────────────────────────────────────────────────────────────────
// Memoized recursion, cooperative form
// ─────────────────────────────────────────────────────────────────────────────

// frame stages.
const (
	stageEnter uint8 = iota
	stageLeft        // f(k-1) is pinned, f(k-2) not yet requested
	stageRight       // f(k-1) and f(k-2) are pinned
)

type frame struct {
	k     uint64
	stage uint8
}

// memoState evaluates f(k) = f(k-1) + f(k-2) with an explicit stack so that
// the recursion can stop after any frame visit. A finished child leaves its
// value pinned in the cache for its parent; the parent unpins both children
// once it has combined them. Indices being computed are claimed so that two
// tasks never derive the same index at the same time.
type memoState struct {
	cache  *memo.Cache
	n      uint64
	stack  []frame
	pins   map[uint64]int
	claims map[uint64]struct{}
	result *big.Int
}

func newMemo(n uint64, cache *memo.Cache) *memoState {
	return &memoState{
		cache:  cache,
		n:      n,
		stack:  []frame{{k: n}},
		pins:   make(map[uint64]int),
		claims: make(map[uint64]struct{}),
	}
}

// advance visits at most budget frames. It stops early, with blocked set,
// when the next index is claimed by another computation.
func (s *memoState) advance(budget int) (used int, done, blocked bool, err error) {
	for used < budget && len(s.stack) > 0 {
		used++
		top := &s.stack[len(s.stack)-1]
		switch top.stage {
		case stageEnter:
			if top.k < 2 {
				s.finish(new(big.Int).SetUint64(top.k))
				continue
			}
			if v, ok := s.lookup(top.k); ok {
				s.stack = s.stack[:len(s.stack)-1]
				if len(s.stack) == 0 {
					s.result = v
				}
				continue
			}
			if !s.cache.Claim(top.k) {
				// Stored after our lookup, or claimed by someone else.
				if s.cache.Contains(top.k) {
					continue
				}
				return used, false, true, nil
			}
			s.claims[top.k] = struct{}{}
			top.stage = stageLeft
			s.stack = append(s.stack, frame{k: top.k - 1})
		case stageLeft:
			top.stage = stageRight
			s.stack = append(s.stack, frame{k: top.k - 2})
		case stageRight:
			left, lok := s.cache.Peek(top.k - 1)
			right, rok := s.cache.Peek(top.k - 2)
			if !lok || !rok {
				return used, false, false, apperrors.Errorf(apperrors.KindStrategyFailure,
					"pinned memo entries for f(%d) are missing", top.k)
			}
			// f(k-1) re-enters the LRU last: the parent's next child is f(k-1).
			s.unpin(top.k - 2)
			s.unpin(top.k - 1)
			delete(s.claims, top.k)
			s.finish(left.Add(left, right))
		}
	}
	return used, len(s.stack) == 0, false, nil
}

// lookup reads k, pinning it when a parent frame will consume it.
func (s *memoState) lookup(k uint64) (*big.Int, bool) {
	if len(s.stack) == 1 {
		return s.cache.Get(k)
	}
	v, ok := s.cache.GetPinned(k)
	if ok {
		s.pins[k]++
	}
	return v, ok
}

// finish stores the value of the top frame and pops it.
func (s *memoState) finish(v *big.Int) {
	k := s.stack[len(s.stack)-1].k
	s.stack = s.stack[:len(s.stack)-1]
	if len(s.stack) == 0 {
		s.cache.Put(k, v)
		s.result = v
		return
	}
	s.cache.PutPinned(k, v)
	s.pins[k]++
}

func (s *memoState) unpin(k uint64) {
	if s.pins[k] == 0 {
		return
	}
	s.pins[k]--
	if s.pins[k] == 0 {
		delete(s.pins, k)
	}
	s.cache.Unpin(k)
}

// release drops every pin and claim still held.
func (s *memoState) release() {
	for k, refs := range s.pins {
		for ; refs > 0; refs-- {
			s.cache.Unpin(k)
		}
	}
	clear(s.pins)
	for k := range s.claims {
		s.cache.Abandon(k)
	}
	clear(s.claims)
}

// ─────────────────────────────────────────────────────────────────────────────
// Blocking recursions (worker goroutines)
// ─────────────────────────────────────────────────────────────────────────────

// MemoizedFib computes F(n) by plain recursion through cache.Load, so
// concurrent callers share sub-results and never compute an index twice.
func MemoizedFib(ctx context.Context, cache *memo.Cache, n uint64) (*big.Int, error) {
	if n < 2 {
		return new(big.Int).SetUint64(n), nil
	}
	if err := ctx.Err(); err != nil {
		return nil, apperrors.FromContext(err)
	}
	return cache.Load(ctx, n, func() (*big.Int, error) {
		a, err := MemoizedFib(ctx, cache, n-1)
		if err != nil {
			return nil, err
		}
		b, err := MemoizedFib(ctx, cache, n-2)
		if err != nil {
			return nil, err
		}
		return a.Add(a, b), nil
	})
}

// NaiveFib computes F(n) by naive recursion, checking ctx
// periodically. It makes O(φⁿ) calls.
func NaiveFib(ctx context.Context, n uint64) (*big.Int, error) {
	if n > MaxUnmemoizedIndex {
		return nil, apperrors.Errorf(apperrors.KindOverflow,
			"naive recursion is limited to n <= %d", MaxUnmemoizedIndex)
	}
	r := naive{ctx: ctx}
	v := r.fib(n)
	if r.err != nil {
		return nil, apperrors.FromContext(r.err)
	}
	return new(big.Int).SetUint64(v), nil
}

type naive struct {
	ctx   context.Context
	calls uint64
	err   error
}

func (r *naive) fib(k uint64) uint64 {
	if r.err != nil {
		return 0
	}
	r.calls++
	if r.calls%cancelCheckInterval == 0 {
		if r.err = r.ctx.Err(); r.err != nil {
			return 0
		}
	}
	if k < 2 {
		return k
	}
	return r.fib(k-1) + r.fib(k-2)
}
