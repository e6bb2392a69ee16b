package orchestration

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/zed/txfib/internal/errors"
	"github.com/zed/txfib/internal/fibonacci"
)

// CompareStrategies computes F(n) with every strategy concurrently through
// the dispatcher and collects one Result per strategy, in input order.
//
// A requested mode that a strategy does not allow falls back to that
// strategy's default mode, so a single mode can be applied to a mixed set.
// A failing strategy does not stop the others.
func (d *Dispatcher) CompareStrategies(ctx context.Context, strategies []fibonacci.Strategy, n uint64, opts Options) []Result {
	var g errgroup.Group
	results := make([]Result, len(strategies))

	for i, s := range strategies {
		g.Go(func() error {
			o := opts
			if o.Mode != fibonacci.ModeDefault && !s.Profile().Allows(o.Mode) {
				o.Mode = fibonacci.ModeDefault
			}
			start := time.Now()
			results[i] = Result{Strategy: s, Mode: o.Mode}

			c, err := d.Compute(ctx, s.String(), n, o)
			if err != nil {
				results[i].Err = err
				results[i].Duration = time.Since(start)
				return nil
			}
			v, err := c.Wait(ctx)
			results[i] = Result{
				Strategy: s,
				Mode:     c.Mode,
				Value:    v,
				Duration: time.Since(start),
				Ticks:    c.Ticks(),
				Steps:    c.Steps(),
				Err:      err,
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// AnalyzeComparison sorts the results by duration, presents them, checks
// that every successful strategy agrees and returns the process exit code.
// Approximate values agree with exact ones within fibonacci.ApproxEpsilon.
func AnalyzeComparison(results []Result, n uint64, showValue bool, presenter ResultPresenter, out io.Writer) int {
	sort.SliceStable(results, func(i, j int) bool {
		if (results[i].Err == nil) != (results[j].Err == nil) {
			return results[i].Err == nil
		}
		return results[i].Duration < results[j].Duration
	})

	var reference *Result
	var firstError error
	successCount := 0
	for i := range results {
		if results[i].Err != nil {
			if firstError == nil {
				firstError = results[i].Err
			}
			continue
		}
		successCount++
		// Prefer an exact value as the reference.
		if reference == nil || (reference.Value.Approx && !results[i].Value.Approx) {
			reference = &results[i]
		}
	}

	presenter.PresentComparisonTable(results, out)

	if successCount == 0 {
		fmt.Fprintf(out, "\nGlobal Status: Failure. No strategy could complete the computation.\n")
		return presenter.HandleError(firstError, 0, out)
	}

	for _, res := range results {
		if res.Err == nil && !res.Value.Equal(reference.Value, fibonacci.ApproxEpsilon) {
			fmt.Fprintf(out, "\nGlobal Status: CRITICAL ERROR! %s and %s disagree on F(%d).\n",
				res.Strategy, reference.Strategy, n)
			return apperrors.ExitErrorMismatch
		}
	}

	fmt.Fprintf(out, "\nGlobal Status: Success. All valid results are consistent.\n")
	presenter.PresentResult(*reference, n, showValue, out)
	return apperrors.ExitSuccess
}
