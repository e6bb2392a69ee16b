package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"

	apperrors "github.com/zed/txfib/internal/errors"
	"github.com/zed/txfib/internal/fibonacci"
	"github.com/zed/txfib/internal/memo"
)

// Subcommand is the argument that puts the binary in worker mode.
const Subcommand = "worker"

// fastDoubling, when set, replaces the math/big kernel for logarithmic
// requests. The gmp build sets it.
var fastDoubling func(ctx context.Context, n uint64) (*big.Int, error)

// Serve reads one request from in, computes it and writes one response to
// out. Computation failures are reported in the response; the returned
// error covers only protocol failures.
func Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	var req Request
	dec := json.NewDecoder(in)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return apperrors.Errorf(apperrors.KindInvalidRequest, "decode request: %w", err)
	}

	resp := Handle(ctx, req)
	if err := json.NewEncoder(out).Encode(resp); err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	return nil
}

// Handle computes req in the current process. Memoized requests use a
// private unbounded cache.
func Handle(ctx context.Context, req Request) Response {
	s, err := fibonacci.ParseStrategy(req.Strategy)
	if err != nil {
		return NewResponse(req, fibonacci.Value{},
			apperrors.NewComputeError(apperrors.KindInvalidRequest, req.Strategy, req.N, err))
	}

	var v fibonacci.Value
	if s == fibonacci.Logarithmic && fastDoubling != nil {
		var r *big.Int
		if r, err = fastDoubling(ctx, req.N); err == nil {
			v = fibonacci.Exact(r)
		} else {
			err = apperrors.Attribute(err, apperrors.KindStrategyFailure, s.String(), req.N)
		}
	} else {
		var cache *memo.Cache
		if s.UsesCache() {
			cache = memo.New(0, memo.WithName("worker"))
		}
		v, err = fibonacci.Compute(ctx, s, req.N, cache)
	}

	resp := NewResponse(req, v, err)
	resp.Usage = selfUsage()
	return resp
}
