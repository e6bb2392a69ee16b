package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	apperrors "github.com/zed/txfib/internal/errors"
	"github.com/zed/txfib/internal/format"
	"github.com/zed/txfib/internal/orchestration"
	"github.com/zed/txfib/internal/ui"
)

// CLIResultPresenter implements orchestration.ResultPresenter for terminal
// output.
type CLIResultPresenter struct{}

var _ orchestration.ResultPresenter = CLIResultPresenter{}

var tableHeaders = []string{"Strategy", "Mode", "Duration", "Ticks", "Steps", "Status"}

// PresentComparisonTable displays one row per strategy. Columns are padded
// on their rendered width so that styled cells stay aligned.
func (CLIResultPresenter) PresentComparisonTable(results []orchestration.Result, out io.Writer) {
	st := ui.CurrentStyles()
	fmt.Fprintf(out, "\n--- Comparison Summary ---\n")

	rows := make([][]string, 0, len(results))
	for _, res := range results {
		rows = append(rows, []string{
			st.Name.Render(res.Strategy.String()),
			st.Dim.Render(res.Mode.String()),
			st.Value.Render(FormatExecutionDuration(res.Duration)),
			fmt.Sprint(res.Ticks),
			fmt.Sprint(res.Steps),
			statusCell(st, res.Err),
		})
	}

	widths := make([]int, len(tableHeaders))
	for i, h := range tableHeaders {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	header := make([]string, len(tableHeaders))
	for i, h := range tableHeaders {
		header[i] = st.Header.Render(h) + pad(widths[i]-len(h))
	}
	fmt.Fprintln(out, strings.TrimRight(strings.Join(header, "   "), " "))
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = cell + pad(widths[i]-lipgloss.Width(cell))
		}
		fmt.Fprintln(out, strings.TrimRight(strings.Join(cells, "   "), " "))
	}
}

func statusCell(st ui.Styles, err error) string {
	switch {
	case err == nil:
		return st.Success.Render("✅ Success")
	case apperrors.KindOf(err) == apperrors.KindCancelled || apperrors.KindOf(err) == apperrors.KindTimeout:
		return st.Warning.Render(fmt.Sprintf("⏹ %s", apperrors.KindOf(err)))
	default:
		return st.Error.Render(fmt.Sprintf("❌ Failure (%s)", apperrors.KindOf(err)))
	}
}

func pad(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat(" ", n)
}

// PresentResult displays the reference result of a comparison.
func (CLIResultPresenter) PresentResult(result orchestration.Result, n uint64, showValue bool, out io.Writer) {
	DisplayResult(result, n, showValue, out)
}

// HandleError prints a failure and returns the matching exit code.
func (CLIResultPresenter) HandleError(err error, duration time.Duration, out io.Writer) int {
	return apperrors.HandleComputeError(err, duration, out)
}

// FormatExecutionDuration formats a duration for the comparison table.
// Zero durations, which only happen on immediate failures, read "< 1µs".
func FormatExecutionDuration(d time.Duration) string {
	if d == 0 {
		return "< 1µs"
	}
	return format.FormatExecutionDuration(d)
}
