// Package app wires the txfib binary: the HTTP server, the CLI comparison
// run and the worker subcommand all share one scheduler loop, one offload
// pool and one process executor.
package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/zed/txfib/internal/config"
	apperrors "github.com/zed/txfib/internal/errors"
	"github.com/zed/txfib/internal/fibonacci"
	"github.com/zed/txfib/internal/logging"
	"github.com/zed/txfib/internal/orchestration"
	"github.com/zed/txfib/internal/server"
	"github.com/zed/txfib/internal/ui"
	"github.com/zed/txfib/internal/worker"
)

// Application represents the txfib application instance.
type Application struct {
	Config    config.AppConfig
	ErrWriter io.Writer
	Logger    logging.Logger

	worker bool
	stdin  io.Reader
	proc   orchestration.ProcessRunner
}

// AppOption configures an Application during construction.
type AppOption func(*Application)

// WithStdin sets the reader the worker subcommand decodes its request from.
func WithStdin(r io.Reader) AppOption {
	return func(a *Application) { a.stdin = r }
}

// WithProcessRunner replaces the subprocess executor used for process
// offload.
func WithProcessRunner(p orchestration.ProcessRunner) AppOption {
	return func(a *Application) { a.proc = p }
}

// New creates a new Application by parsing command-line arguments. args[0]
// is the program name. A first argument of "worker" selects the worker
// subcommand, which takes no flags.
func New(args []string, errWriter io.Writer, opts ...AppOption) (*Application, error) {
	app := &Application{ErrWriter: errWriter, stdin: os.Stdin, Logger: logging.Nop()}
	for _, opt := range opts {
		opt(app)
	}

	programName := "txfib"
	var cmdArgs []string
	if len(args) > 0 {
		programName = args[0]
		cmdArgs = args[1:]
	}

	if len(cmdArgs) > 0 && cmdArgs[0] == worker.Subcommand {
		app.worker = true
		app.Config = config.Default()
		return app, nil
	}

	cfg, err := config.ParseConfig(programName, cmdArgs, errWriter, strategyNames())
	if err != nil {
		return nil, err
	}
	logger, err := logging.Setup(errWriter, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		err = apperrors.NewConfigError("%v", err)
		fmt.Fprintln(errWriter, "Configuration error:", err)
		return nil, err
	}

	app.Config = cfg
	app.Logger = logger
	return app, nil
}

// Run executes the application in the configured mode and returns the
// process exit code.
func (a *Application) Run(ctx context.Context, out io.Writer) int {
	if a.worker {
		return a.runWorker(ctx, out)
	}

	ui.InitTheme(a.Config.NoColor)

	e, err := a.startEngine()
	if err != nil {
		fmt.Fprintf(a.ErrWriter, "Error: %v\n", err)
		return apperrors.ExitErrorGeneric
	}
	defer e.stop()

	if a.Config.Serve {
		return a.runServer(ctx, e)
	}
	return a.runCalculate(ctx, e, out)
}

// runWorker answers a single request read from stdin.
func (a *Application) runWorker(ctx context.Context, out io.Writer) int {
	ctx, stopSignals := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	if err := worker.Serve(ctx, a.stdin, out); err != nil {
		fmt.Fprintf(a.ErrWriter, "worker: %v\n", err)
		return apperrors.ExitErrorGeneric
	}
	return apperrors.ExitSuccess
}

// runServer serves HTTP until SIGINT or SIGTERM.
func (a *Application) runServer(ctx context.Context, e *engine) int {
	ctx, stopSignals := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	srv := server.NewServer(e.dispatcher, a.Config,
		server.WithLogger(a.Logger.With(logging.Component("server"))),
		server.WithPool(e.pool))
	if err := srv.Start(ctx); err != nil {
		a.Logger.Error("server stopped", err)
		fmt.Fprintf(a.ErrWriter, "Error: %v\n", err)
		return apperrors.ExitErrorGeneric
	}
	return apperrors.ExitSuccess
}

func strategyNames() []string {
	all := fibonacci.Strategies()
	names := make([]string, len(all))
	for i, s := range all {
		names[i] = s.String()
	}
	return names
}

// IsHelpError checks if the error is a help flag error (--help was used).
func IsHelpError(err error) bool {
	return errors.Is(err, flag.ErrHelp)
}
