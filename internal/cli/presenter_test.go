package cli

import (
	"bytes"
	"context"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/zed/txfib/internal/config"
	apperrors "github.com/zed/txfib/internal/errors"
	"github.com/zed/txfib/internal/fibonacci"
	"github.com/zed/txfib/internal/orchestration"
	"github.com/zed/txfib/internal/ui"
)

func TestPresentComparisonTable(t *testing.T) {
	ui.SetCurrentTheme(ui.NoColorTheme)

	results := []orchestration.Result{
		result(fibonacci.Linear, fibonacci.Exact(big.NewInt(55))),
		{Strategy: fibonacci.ClosedFormApprox, Mode: fibonacci.Inline,
			Err: apperrors.NewComputeError(apperrors.KindOverflow, "closedFormApprox", 5000, nil)},
		{Strategy: fibonacci.UnmemoizedRecursive, Mode: fibonacci.ThreadOffload, Duration: time.Second,
			Err: apperrors.FromContext(context.DeadlineExceeded)},
	}
	var buf bytes.Buffer
	CLIResultPresenter{}.PresentComparisonTable(results, &buf)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 5 {
		t.Fatalf("got %d lines, want title, header and 3 rows:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[1], "Strategy") || !strings.Contains(lines[1], "Status") {
		t.Errorf("header = %q", lines[1])
	}
	for i, want := range []string{"✅ Success", "❌ Failure (Overflow)", "⏹ Timeout"} {
		if !strings.Contains(lines[i+2], want) {
			t.Errorf("row %d = %q, want it to contain %q", i, lines[i+2], want)
		}
	}
	if !strings.Contains(lines[3], "< 1µs") {
		t.Errorf("zero duration not rendered as < 1µs: %q", lines[3])
	}
}

func TestPresenterHandleError(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	code := CLIResultPresenter{}.HandleError(apperrors.FromContext(context.DeadlineExceeded), time.Second, &buf)
	if code != apperrors.ExitErrorTimeout {
		t.Errorf("HandleError() = %d, want %d", code, apperrors.ExitErrorTimeout)
	}
}

func TestPrintExecutionConfig(t *testing.T) {
	ui.SetCurrentTheme(ui.NoColorTheme)
	var buf bytes.Buffer
	cfg := config.Default()
	cfg.N = 1000
	cfg.CacheCapacity = 64

	PrintExecutionConfig(cfg, &buf)

	for _, want := range []string{"F(1000)", "1m0s", "step budget 1000", "memo cache 64"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("output does not contain %q:\n%s", want, buf.String())
		}
	}
}

func TestPrintExecutionMode(t *testing.T) {
	ui.SetCurrentTheme(ui.NoColorTheme)

	t.Run("single strategy", func(t *testing.T) {
		var buf bytes.Buffer
		PrintExecutionMode([]fibonacci.Strategy{fibonacci.ClosedFormExact}, fibonacci.ModeDefault, &buf)
		if !strings.Contains(buf.String(), "single computation with closedFormExact") ||
			!strings.Contains(buf.String(), "closedFormExact=process") {
			t.Errorf("unexpected output:\n%s", buf.String())
		}
	})

	t.Run("comparison with forced mode", func(t *testing.T) {
		var buf bytes.Buffer
		PrintExecutionMode(fibonacci.Strategies(), fibonacci.ThreadOffload, &buf)
		out := buf.String()
		if !strings.Contains(out, "comparison of 6 strategies") {
			t.Errorf("unexpected output:\n%s", out)
		}
		if !strings.Contains(out, "linear=thread") || !strings.Contains(out, "unmemoizedRecursive=thread") {
			t.Errorf("forced mode not shown:\n%s", out)
		}
	})
}
