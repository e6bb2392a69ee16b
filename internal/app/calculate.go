package app

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/zed/txfib/internal/cli"
	apperrors "github.com/zed/txfib/internal/errors"
	"github.com/zed/txfib/internal/fibonacci"
	"github.com/zed/txfib/internal/orchestration"
	"github.com/zed/txfib/internal/ui"
)

// runCalculate compares the selected strategies on F(N).
func (a *Application) runCalculate(ctx context.Context, e *engine, out io.Writer) int {
	ctx, cancelTimeout := context.WithTimeout(ctx, a.Config.Timeout)
	defer cancelTimeout()
	ctx, stopSignals := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	strategies, err := orchestration.SelectStrategies(a.Config.Algo)
	if err != nil {
		fmt.Fprintf(a.ErrWriter, "Configuration error: %v\n", err)
		return apperrors.ExitErrorConfig
	}
	mode, _ := fibonacci.ParseMode(a.Config.Mode)

	if !a.Config.Quiet {
		cli.PrintExecutionConfig(a.Config, out)
		cli.PrintExecutionMode(strategies, mode, out)
	}

	progressOut := out
	if a.Config.Quiet {
		progressOut = io.Discard
	}
	stopProgress := cli.DisplayProgress(progressOut, e.status)
	results := e.dispatcher.CompareStrategies(ctx, strategies, a.Config.N, a.compareOptions(mode))
	stopProgress()

	return a.analyzeResults(results, out)
}

// compareOptions leaves CacheCapacity unset: -cache-capacity already sizes
// the engine's default cache.
func (a *Application) compareOptions(mode fibonacci.Mode) orchestration.Options {
	return orchestration.Options{StepBudget: a.Config.StepBudget, Mode: mode}
}

func (a *Application) analyzeResults(results []orchestration.Result, out io.Writer) int {
	best := findBestResult(results)

	if a.Config.Quiet && best != nil {
		cli.DisplayQuietResult(out, *best)
		if err := a.saveResultIfNeeded(best); err != nil {
			return apperrors.ExitErrorGeneric
		}
		return apperrors.ExitSuccess
	}

	exitCode := orchestration.AnalyzeComparison(results, a.Config.N, a.Config.ShowValue, cli.CLIResultPresenter{}, out)

	if best != nil && exitCode == apperrors.ExitSuccess && a.Config.OutputFile != "" {
		if err := a.saveResultIfNeeded(best); err != nil {
			return apperrors.ExitErrorGeneric
		}
		st := ui.CurrentStyles()
		fmt.Fprintf(out, "\n%s %s\n", st.Success.Render("✓ Result saved to:"), st.Name.Render(a.Config.OutputFile))
	}
	return exitCode
}

// findBestResult returns the fastest successful exact result, falling back
// to the fastest approximate one.
func findBestResult(results []orchestration.Result) *orchestration.Result {
	var best *orchestration.Result
	for i := range results {
		r := &results[i]
		if r.Err != nil {
			continue
		}
		switch {
		case best == nil:
			best = r
		case best.Value.Approx && !r.Value.Approx:
			best = r
		case best.Value.Approx == r.Value.Approx && r.Duration < best.Duration:
			best = r
		}
	}
	return best
}

func (a *Application) saveResultIfNeeded(res *orchestration.Result) error {
	if a.Config.OutputFile == "" {
		return nil
	}
	if err := cli.WriteResultToFile(*res, a.Config.N, a.Config.OutputFile); err != nil {
		fmt.Fprintf(a.ErrWriter, "Error saving result: %v\n", err)
		return err
	}
	a.Logger.Debug("result saved")
	return nil
}
