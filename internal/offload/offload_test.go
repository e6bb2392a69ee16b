package offload

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/zed/txfib/internal/errors"
	"github.com/zed/txfib/internal/fibonacci"
	"github.com/zed/txfib/internal/worker"
)

const helperEnv = "TXFIB_OFFLOAD_HELPER"

// TestMain doubles as the worker process: when helperEnv is set, the test
// binary behaves as the requested kind of worker and exits.
func TestMain(m *testing.M) {
	if mode := os.Getenv(helperEnv); mode != "" {
		os.Exit(helper(mode))
	}
	os.Exit(m.Run())
}

func helper(mode string) int {
	switch mode {
	case "worker":
		if err := worker.Serve(context.Background(), os.Stdin, os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return 0
	case "crash":
		fmt.Fprintln(os.Stderr, "worker blew up")
		return 3
	case "garbage":
		fmt.Fprint(os.Stdout, "this is not json")
		return 0
	case "empty":
		return 0
	case "mismatch":
		var req worker.Request
		_ = json.NewDecoder(os.Stdin).Decode(&req)
		_ = json.NewEncoder(os.Stdout).Encode(worker.Response{N: req.N + 1, Strategy: req.Strategy, Value: "1"})
		return 0
	case "sleep":
		time.Sleep(time.Minute)
		return 0
	}
	return 2
}

func helperCommand(mode string) Command {
	return Command{
		Path: os.Args[0],
		Args: []string{"-test.run=^$"},
		Env:  []string{helperEnv + "=" + mode},
	}
}

func TestProcessExecutor_Computes(t *testing.T) {
	t.Parallel()
	e := NewProcessExecutor(helperCommand("worker"))
	tests := []struct {
		strategy string
		n        uint64
	}{
		{"linear", 100},
		{"logarithmic", 1000},
		{"closedFormExact", 300},
		{"closedFormApprox", 70},
		{"memoizedRecursive", 200},
		{"unmemoizedRecursive", 20},
	}
	for _, tt := range tests {
		t.Run(tt.strategy, func(t *testing.T) {
			t.Parallel()
			resp, err := e.Run(context.Background(), worker.Request{Strategy: tt.strategy, N: tt.n})
			require.NoError(t, err)
			v, err := resp.Result()
			require.NoError(t, err)
			assert.True(t, v.Equal(fibonacci.Exact(fibonacci.LinearFib(tt.n)), fibonacci.ApproxEpsilon), "got %v", v)
			assert.GreaterOrEqual(t, resp.Usage.MaxRSS, int64(0))
		})
	}
}

func TestProcessExecutor_WorkerReportedFailureKeepsKind(t *testing.T) {
	t.Parallel()
	e := NewProcessExecutor(helperCommand("worker"))
	resp, err := e.Run(context.Background(), worker.Request{Strategy: "closedFormApprox", N: 5000})
	require.NoError(t, err)
	_, err = resp.Result()
	assert.ErrorIs(t, err, apperrors.ErrOverflow)
}

func TestProcessExecutor_BrokenWorkers(t *testing.T) {
	t.Parallel()
	tests := []struct {
		mode    string
		wantMsg string
	}{
		{"crash", "worker blew up"},
		{"garbage", "malformed worker output"},
		{"empty", "no output"},
		{"mismatch", "different request"},
	}
	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			t.Parallel()
			e := NewProcessExecutor(helperCommand(tt.mode))
			_, err := e.Run(context.Background(), worker.Request{Strategy: "linear", N: 10})
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrOffloadFailure)
			assert.Contains(t, err.Error(), tt.wantMsg)

			var ce *apperrors.ComputeError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, "linear", ce.Strategy)
			assert.Equal(t, uint64(10), ce.N)
		})
	}
}

func TestProcessExecutor_MissingBinary(t *testing.T) {
	t.Parallel()
	e := NewProcessExecutor(Command{Path: "/nonexistent/txfib-worker"})
	_, err := e.Run(context.Background(), worker.Request{Strategy: "linear", N: 10})
	assert.ErrorIs(t, err, apperrors.ErrOffloadFailure)
}

func TestProcessExecutor_KillsOnDeadline(t *testing.T) {
	t.Parallel()
	e := NewProcessExecutor(helperCommand("sleep"), WithWaitDelay(100*time.Millisecond))
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := e.Run(ctx, worker.Request{Strategy: "linear", N: 10})
	assert.ErrorIs(t, err, apperrors.ErrTimeout)
	assert.Less(t, time.Since(start), 20*time.Second, "worker was not killed")
}

func TestProcessExecutor_BoundsLiveProcesses(t *testing.T) {
	t.Parallel()
	e := NewProcessExecutor(helperCommand("sleep"), WithMaxProcesses(1), WithWaitDelay(100*time.Millisecond))
	assert.Equal(t, 1, e.MaxProcesses())

	holdCtx, release := context.WithCancel(context.Background())
	held := make(chan error, 1)
	go func() {
		_, err := e.Run(holdCtx, worker.Request{Strategy: "linear", N: 1})
		held <- err
	}()
	// Wait until the first process holds the only slot.
	require.Eventually(t, func() bool { return slotTaken(e) }, 5*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err := e.Run(ctx, worker.Request{Strategy: "linear", N: 2})
	assert.ErrorIs(t, err, apperrors.ErrTimeout)

	release()
	assert.ErrorIs(t, <-held, apperrors.ErrCancelled)
}

func slotTaken(e *ProcessExecutor) bool {
	if e.sem.TryAcquire(1) {
		e.sem.Release(1)
		return false
	}
	return true
}

func TestTailWriter(t *testing.T) {
	t.Parallel()
	w := &tailWriter{max: 8}
	_, _ = w.Write([]byte("abc"))
	_, _ = w.Write([]byte("defgh"))
	assert.Equal(t, "abcdefgh", w.String())
	_, _ = w.Write([]byte("ij"))
	assert.Equal(t, "cdefghij", w.String())
	_, _ = w.Write([]byte("0123456789"))
	assert.Equal(t, "23456789", w.String())
	assert.Equal(t, "; stderr: 23456789", w.suffix())
	assert.Empty(t, (&tailWriter{max: 4}).suffix())
}

func TestSelfCommand(t *testing.T) {
	t.Parallel()
	cmd, err := SelfCommand()
	require.NoError(t, err)
	assert.NotEmpty(t, cmd.Path)
	assert.Equal(t, []string{worker.Subcommand}, cmd.Args)
}

func TestPool_RunsComputations(t *testing.T) {
	t.Parallel()
	p := NewPool(3, 8)
	defer p.Close()

	var futures []*Future
	for n := uint64(0); n < 20; n++ {
		f, err := p.Submit(context.Background(), func(ctx context.Context) (fibonacci.Value, error) {
			return fibonacci.Compute(ctx, fibonacci.Linear, n, nil)
		})
		require.NoError(t, err)
		futures = append(futures, f)
	}
	for n, f := range futures {
		v, err := f.Wait(context.Background())
		require.NoError(t, err)
		assert.Zero(t, v.Int.Cmp(fibonacci.LinearFib(uint64(n))))
	}
}

func TestPool_BoundsConcurrency(t *testing.T) {
	t.Parallel()
	p := NewPool(2, 16)
	defer p.Close()

	var running, peak atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		f, err := p.Submit(context.Background(), func(context.Context) (fibonacci.Value, error) {
			cur := running.Add(1)
			for {
				old := peak.Load()
				if cur <= old || peak.CompareAndSwap(old, cur) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			running.Add(-1)
			return fibonacci.Value{}, nil
		})
		require.NoError(t, err)
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-f.Done()
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestPool_PanicBecomesOffloadFailure(t *testing.T) {
	t.Parallel()
	p := NewPool(1, 1)
	defer p.Close()

	bad, err := p.Submit(context.Background(), func(context.Context) (fibonacci.Value, error) {
		panic("kaboom")
	})
	require.NoError(t, err)
	_, err = bad.Wait(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrOffloadFailure)
	assert.Contains(t, err.Error(), "kaboom")

	// The worker survives the panic.
	good, err := p.Submit(context.Background(), func(ctx context.Context) (fibonacci.Value, error) {
		return fibonacci.Compute(ctx, fibonacci.Logarithmic, 50, nil)
	})
	require.NoError(t, err)
	v, err := good.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "12586269025", v.String())
}

func TestPool_SubmitBlocksWhenQueueFull(t *testing.T) {
	t.Parallel()
	p := NewPool(1, 1)
	defer p.Close()

	gate := make(chan struct{})
	blocker := func(context.Context) (fibonacci.Value, error) {
		<-gate
		return fibonacci.Value{}, nil
	}
	first, err := p.Submit(context.Background(), blocker)
	require.NoError(t, err)
	// Wait for the worker to take the first job so the queue slot is free.
	require.Eventually(t, func() bool { return p.Queued() == 0 }, 5*time.Second, time.Millisecond)
	_, err = p.Submit(context.Background(), blocker)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = p.Submit(ctx, blocker)
	assert.ErrorIs(t, err, apperrors.ErrTimeout)

	close(gate)
	_, err = first.Wait(context.Background())
	assert.NoError(t, err)
}

func TestPool_CancelledBeforeStart(t *testing.T) {
	t.Parallel()
	p := NewPool(1, 4)
	defer p.Close()

	gate := make(chan struct{})
	_, err := p.Submit(context.Background(), func(context.Context) (fibonacci.Value, error) {
		<-gate
		return fibonacci.Value{}, nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	var ran atomic.Bool
	f, err := p.Submit(ctx, func(context.Context) (fibonacci.Value, error) {
		ran.Store(true)
		return fibonacci.Value{}, nil
	})
	require.NoError(t, err)
	cancel()
	close(gate)

	_, err = f.Wait(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrCancelled)
	assert.False(t, ran.Load())
}

func TestPool_Close(t *testing.T) {
	t.Parallel()
	p := NewPool(0, -1)
	assert.Equal(t, 1, p.Size())

	f, err := p.Submit(context.Background(), func(context.Context) (fibonacci.Value, error) {
		time.Sleep(10 * time.Millisecond)
		return fibonacci.Approximate(1), nil
	})
	require.NoError(t, err)
	require.NoError(t, p.Close())
	select {
	case <-f.Done():
	default:
		t.Fatal("Close returned before the queue drained")
	}
	v, err := f.Result()
	require.NoError(t, err)
	assert.True(t, v.Approx)

	_, err = p.Submit(context.Background(), func(context.Context) (fibonacci.Value, error) {
		return fibonacci.Value{}, nil
	})
	assert.ErrorIs(t, err, ErrPoolClosed)
	assert.NoError(t, p.Close())
}
