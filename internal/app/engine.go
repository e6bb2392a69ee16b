package app

import (
	"context"
	"fmt"

	"github.com/zed/txfib/internal/logging"
	"github.com/zed/txfib/internal/memo"
	"github.com/zed/txfib/internal/offload"
	"github.com/zed/txfib/internal/orchestration"
	"github.com/zed/txfib/internal/scheduler"
	"github.com/zed/txfib/internal/worker"
)

// engine is the running computation stack shared by every mode.
type engine struct {
	loop       *scheduler.Loop
	pool       *offload.Pool
	dispatcher *orchestration.Dispatcher

	cancel context.CancelFunc
	done   chan struct{}
}

// startEngine builds the loop, the pool, the process executor and the
// dispatcher, and starts the loop on its own goroutine.
func (a *Application) startEngine() (*engine, error) {
	cfg := a.Config
	log := a.Logger

	proc := a.proc
	if proc == nil {
		cmd, err := a.workerCommand()
		if err != nil {
			return nil, err
		}
		proc = offload.NewProcessExecutor(cmd,
			offload.WithMaxProcesses(cfg.MaxProcesses),
			offload.WithProcessLogger(log.With(logging.Component("process"))))
	}

	loop := scheduler.New(
		scheduler.WithStepBudget(cfg.StepBudget),
		scheduler.WithLogger(log.With(logging.Component("scheduler"))))
	pool := offload.NewPool(cfg.PoolSize, cfg.PoolQueue,
		offload.WithLogger(log.With(logging.Component("pool"))))
	d := orchestration.New(loop, pool, proc,
		orchestration.WithDefaultCache(memo.New(cfg.CacheCapacity)),
		orchestration.WithMaxN(cfg.MaxN),
		orchestration.WithLogger(log.With(logging.Component("dispatcher"))))

	ctx, cancel := context.WithCancel(context.Background())
	e := &engine{loop: loop, pool: pool, dispatcher: d, cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(e.done)
		if err := loop.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error("scheduler loop stopped", err)
		}
	}()
	return e, nil
}

// workerCommand is -worker when set, otherwise this binary.
func (a *Application) workerCommand() (offload.Command, error) {
	if a.Config.Worker != "" {
		return offload.Command{Path: a.Config.Worker, Args: []string{worker.Subcommand}}, nil
	}
	return offload.SelfCommand()
}

// status is the progress line shown while a comparison runs.
func (e *engine) status() string {
	st := e.loop.Stats()
	return fmt.Sprintf(" %d tasks queued, %d ticks, %d done", e.loop.Len(), st.Ticks, st.Completed+st.Failed+st.Cancelled)
}

// stop cancels the loop, waits for it and closes the pool.
func (e *engine) stop() {
	e.cancel()
	<-e.done
	_ = e.pool.Close()
}
