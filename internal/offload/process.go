package offload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	apperrors "github.com/zed/txfib/internal/errors"
	"github.com/zed/txfib/internal/logging"
	"github.com/zed/txfib/internal/worker"
)

const (
	// DefaultMaxProcesses bounds concurrently live worker processes.
	DefaultMaxProcesses = 4
	// DefaultWaitDelay is how long a killed worker's pipes may stay open
	// before they are forcibly closed.
	DefaultWaitDelay = 2 * time.Second

	stderrTail = 2048
)

// Command describes how to start a worker process.
type Command struct {
	Path string
	Args []string
	// Env is appended to the parent's environment.
	Env []string
}

// SelfCommand runs the current executable with the worker subcommand.
func SelfCommand() (Command, error) {
	path, err := os.Executable()
	if err != nil {
		return Command{}, fmt.Errorf("locate executable: %w", err)
	}
	return Command{Path: path, Args: []string{worker.Subcommand}}, nil
}

// ProcessOption configures a ProcessExecutor.
type ProcessOption func(*ProcessExecutor)

// WithMaxProcesses bounds the number of live worker processes.
func WithMaxProcesses(n int) ProcessOption {
	return func(e *ProcessExecutor) {
		if n > 0 {
			e.max = n
		}
	}
}

// WithWaitDelay overrides DefaultWaitDelay.
func WithWaitDelay(d time.Duration) ProcessOption {
	return func(e *ProcessExecutor) { e.waitDelay = d }
}

// WithProcessLogger sets the executor's logger.
func WithProcessLogger(logger logging.Logger) ProcessOption {
	return func(e *ProcessExecutor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// ProcessExecutor runs each computation in a fresh worker process. The
// process is killed when the context ends and is always waited on.
type ProcessExecutor struct {
	cmd       Command
	max       int
	sem       *semaphore.Weighted
	waitDelay time.Duration
	logger    logging.Logger
}

// NewProcessExecutor returns an executor that launches cmd.
func NewProcessExecutor(cmd Command, opts ...ProcessOption) *ProcessExecutor {
	e := &ProcessExecutor{
		cmd:       cmd,
		max:       DefaultMaxProcesses,
		waitDelay: DefaultWaitDelay,
		logger:    logging.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.sem = semaphore.NewWeighted(int64(e.max))
	return e
}

// MaxProcesses returns the bound on live worker processes.
func (e *ProcessExecutor) MaxProcesses() int { return e.max }

// Run computes req in a worker process and returns its response. A worker
// that exits non-zero, writes nothing, writes garbage or answers a different
// request is an OffloadFailure; a failure the worker reports keeps its kind.
func (e *ProcessExecutor) Run(ctx context.Context, req worker.Request) (worker.Response, error) {
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return worker.Response{}, e.fail(req, apperrors.FromContext(err))
	}
	defer e.sem.Release(1)

	payload, err := json.Marshal(req)
	if err != nil {
		return worker.Response{}, e.fail(req, apperrors.Errorf(apperrors.KindOffloadFailure, "encode request: %w", err))
	}

	cmd := exec.CommandContext(ctx, e.cmd.Path, e.cmd.Args...)
	cmd.Env = append(os.Environ(), e.cmd.Env...)
	cmd.WaitDelay = e.waitDelay
	cmd.Stdin = bytes.NewReader(payload)
	var stdout bytes.Buffer
	stderr := &tailWriter{max: stderrTail}
	cmd.Stdout = &stdout
	cmd.Stderr = stderr

	start := time.Now()
	processLive.Inc()
	runErr := cmd.Run()
	processLive.Dec()
	elapsed := time.Since(start)
	processDuration.Observe(elapsed.Seconds())

	log := e.logger.With(
		logging.String("strategy", req.Strategy),
		logging.Uint64("n", req.N),
		logging.Duration("elapsed", elapsed))

	if ctxErr := ctx.Err(); ctxErr != nil {
		log.Debug("worker process killed", logging.Err(ctxErr))
		return worker.Response{}, e.fail(req, apperrors.FromContext(ctxErr))
	}
	if runErr != nil {
		log.Error("worker process failed", runErr, logging.String("stderr", stderr.String()))
		return worker.Response{}, e.fail(req, apperrors.Errorf(apperrors.KindOffloadFailure,
			"worker process: %w%s", runErr, stderr.suffix()))
	}

	resp, err := decodeResponse(stdout.Bytes(), req)
	if err != nil {
		log.Error("worker process returned an unusable response", err, logging.String("stderr", stderr.String()))
		return worker.Response{}, e.fail(req, apperrors.Errorf(apperrors.KindOffloadFailure,
			"%w%s", err, stderr.suffix()))
	}
	processRuns.WithLabelValues("ok").Inc()
	log.Debug("worker process finished",
		logging.Duration("user", resp.Usage.UserTime),
		logging.Duration("system", resp.Usage.SystemTime))
	return resp, nil
}

func (e *ProcessExecutor) fail(req worker.Request, err error) error {
	processRuns.WithLabelValues(apperrors.KindOf(err).String()).Inc()
	return apperrors.Attribute(err, apperrors.KindOffloadFailure, req.Strategy, req.N)
}

var (
	errEmptyResponse    = errors.New("worker produced no output")
	errMismatchResponse = errors.New("worker answered a different request")
)

func decodeResponse(out []byte, req worker.Request) (worker.Response, error) {
	if len(bytes.TrimSpace(out)) == 0 {
		return worker.Response{}, errEmptyResponse
	}
	var resp worker.Response
	if err := json.Unmarshal(out, &resp); err != nil {
		return worker.Response{}, fmt.Errorf("malformed worker output: %w", err)
	}
	if resp.N != req.N || !strings.EqualFold(resp.Strategy, req.Strategy) {
		return worker.Response{}, fmt.Errorf("%w: asked %s(%d), got %s(%d)",
			errMismatchResponse, req.Strategy, req.N, resp.Strategy, resp.N)
	}
	return resp, nil
}

// tailWriter keeps the last max bytes written to it.
type tailWriter struct {
	max int
	buf []byte
}

func (w *tailWriter) Write(p []byte) (int, error) {
	n := len(p)
	if len(p) >= w.max {
		w.buf = append(w.buf[:0], p[len(p)-w.max:]...)
		return n, nil
	}
	if over := len(w.buf) + len(p) - w.max; over > 0 {
		w.buf = append(w.buf[:0], w.buf[over:]...)
	}
	w.buf = append(w.buf, p...)
	return n, nil
}

func (w *tailWriter) String() string { return strings.TrimSpace(string(w.buf)) }

func (w *tailWriter) suffix() string {
	if s := w.String(); s != "" {
		return "; stderr: " + s
	}
	return ""
}
