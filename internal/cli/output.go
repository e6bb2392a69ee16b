// # Naming Conventions
//
//   - Display* functions write formatted output to an [io.Writer].
//   - Format* functions return a formatted string without performing I/O.
//   - Write* functions write data to files on the filesystem.

package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/zed/txfib/internal/format"
	"github.com/zed/txfib/internal/orchestration"
	"github.com/zed/txfib/internal/ui"
)

// DisplayResult prints the details of a result and, with showValue, the
// value itself. Long values are truncated; WriteResultToFile keeps them
// whole.
func DisplayResult(res orchestration.Result, n uint64, showValue bool, out io.Writer) {
	st := ui.CurrentStyles()
	fmt.Fprintf(out, "\n--- Result ---\n")
	fmt.Fprintf(out, "Strategy:          %s (%s)\n", st.Name.Render(res.Strategy.String()), res.Mode)
	fmt.Fprintf(out, "Calculation time:  %s\n", st.Value.Render(FormatExecutionDuration(res.Duration)))
	if res.Ticks > 0 || res.Steps > 0 {
		fmt.Fprintf(out, "Scheduling:        %d ticks, %d steps\n", res.Ticks, res.Steps)
	}
	if res.Value.Approx {
		fmt.Fprintf(out, "Number of digits:  %d (approximate)\n", res.Value.Digits())
	} else {
		fmt.Fprintf(out, "Number of digits:  %s\n", format.FormatNumberString(fmt.Sprint(res.Value.Digits())))
	}
	if !showValue {
		return
	}

	s := format.FormatValue(res.Value, false)
	if !res.Value.Approx && res.Value.Digits() <= format.TruncationLimit {
		s = format.FormatNumberString(s)
	}
	fmt.Fprintf(out, "F(%d) = %s\n", n, st.Value.Render(s))
	if !res.Value.Approx && res.Value.Digits() > format.TruncationLimit {
		fmt.Fprintf(out, "%s\n", st.Dim.Render("(truncated) Tip: use -o FILE to save the full value."))
	}
}

// DisplayQuietResult prints only the value, for scripting.
func DisplayQuietResult(out io.Writer, res orchestration.Result) {
	fmt.Fprintln(out, res.Value.String())
}

// WriteResultToFile writes a result, with a commented header, to path.
// Missing parent directories are created.
func WriteResultToFile(res orchestration.Result, n uint64, path string) error {
	if path == "" {
		return nil
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	fmt.Fprintf(file, "# Fibonacci Computation Result\n")
	fmt.Fprintf(file, "# Generated: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(file, "# Strategy: %s\n", res.Strategy)
	fmt.Fprintf(file, "# Mode: %s\n", res.Mode)
	fmt.Fprintf(file, "# Duration: %s\n", res.Duration)
	fmt.Fprintf(file, "# N: %d\n", n)
	fmt.Fprintf(file, "# Digits: %d\n", res.Value.Digits())
	fmt.Fprintf(file, "# Approximate: %t\n", res.Value.Approx)
	fmt.Fprintf(file, "\nF(%d) =\n%s\n", n, res.Value.String())

	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}
