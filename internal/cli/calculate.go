package cli

import (
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/zed/txfib/internal/config"
	"github.com/zed/txfib/internal/fibonacci"
	"github.com/zed/txfib/internal/ui"
)

// PrintExecutionConfig displays the index, limits and scheduler settings of
// a CLI run.
func PrintExecutionConfig(cfg config.AppConfig, out io.Writer) {
	st := ui.CurrentStyles()
	fmt.Fprintf(out, "--- Execution Configuration ---\n")
	fmt.Fprintf(out, "Computing %s with a timeout of %s.\n",
		st.Name.Render(fmt.Sprintf("F(%d)", cfg.N)), st.Value.Render(cfg.Timeout.String()))
	fmt.Fprintf(out, "Environment: %d logical processors, Go %s.\n", runtime.NumCPU(), runtime.Version())
	capacity := "unbounded"
	if cfg.CacheCapacity > 0 {
		capacity = fmt.Sprint(cfg.CacheCapacity)
	}
	fmt.Fprintf(out, "Scheduler: step budget %d, memo cache %s, %d pool workers, %d worker processes.\n",
		cfg.StepBudget, capacity, cfg.PoolSize, cfg.MaxProcesses)
}

// PrintExecutionMode displays the strategies about to run and where each of
// them runs.
func PrintExecutionMode(strategies []fibonacci.Strategy, mode fibonacci.Mode, out io.Writer) {
	st := ui.CurrentStyles()
	if len(strategies) == 1 {
		fmt.Fprintf(out, "Execution mode: single computation with %s.\n", st.Name.Render(strategies[0].String()))
	} else {
		fmt.Fprintf(out, "Execution mode: concurrent comparison of %d strategies.\n", len(strategies))
	}
	parts := make([]string, len(strategies))
	for i, s := range strategies {
		m := mode
		if m == fibonacci.ModeDefault || !s.Profile().Allows(m) {
			m = s.Profile().DefaultMode
		}
		parts[i] = fmt.Sprintf("%s=%s", s, m)
	}
	fmt.Fprintf(out, "Placement: %s.\n", strings.Join(parts, ", "))
	fmt.Fprintf(out, "\n--- Starting Execution ---\n")
}
