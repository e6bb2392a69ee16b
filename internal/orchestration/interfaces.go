//go:generate mockgen -source=interfaces.go -destination=mocks/mock_interfaces.go -package=mocks

package orchestration

import (
	"context"
	"io"
	"time"

	"github.com/zed/txfib/internal/fibonacci"
	"github.com/zed/txfib/internal/offload"
	"github.com/zed/txfib/internal/worker"
)

// ThreadExecutor runs a computation on a worker goroutine.
// *offload.Pool implements it.
type ThreadExecutor interface {
	Submit(ctx context.Context, fn offload.Func) (*offload.Future, error)
}

// ProcessRunner runs a computation in a worker process.
// *offload.ProcessExecutor implements it.
type ProcessRunner interface {
	Run(ctx context.Context, req worker.Request) (worker.Response, error)
}

// Result is the outcome of one strategy in a comparison run.
type Result struct {
	Strategy fibonacci.Strategy
	Mode     fibonacci.Mode
	Value    fibonacci.Value
	Duration time.Duration
	Ticks    uint64
	Steps    uint64
	Err      error
}

// ResultPresenter renders comparison results. It keeps the orchestration
// layer free of presentation concerns.
type ResultPresenter interface {
	// PresentComparisonTable displays one row per strategy.
	PresentComparisonTable(results []Result, out io.Writer)

	// PresentResult displays the agreed value.
	PresentResult(result Result, n uint64, showValue bool, out io.Writer)

	// HandleError reports a failure and returns the process exit code.
	HandleError(err error, duration time.Duration, out io.Writer) int
}
