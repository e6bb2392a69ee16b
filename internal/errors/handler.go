package apperrors

import (
	"errors"
	"fmt"
	"io"
	"time"
)

// HandleComputeError prints a one-line, user-facing description of err and
// returns the exit code the application should terminate with.
//
// Parameters:
//   - err: The error to handle (nil is success and prints nothing).
//   - duration: How long the computation ran before failing (0 if unknown).
//   - out: The writer for the message.
//
// Returns:
//   - int: The exit code, as produced by ExitCode.
func HandleComputeError(err error, duration time.Duration, out io.Writer) int {
	if err == nil {
		return ExitSuccess
	}

	var ce *ComputeError
	switch {
	case KindOf(err) == KindTimeout:
		if duration > 0 {
			fmt.Fprintf(out, "Status: Failure (Timeout). The execution limit was reached after %s.\n", duration)
		} else {
			fmt.Fprintf(out, "Status: Failure (Timeout). The execution limit was reached.\n")
		}
	case KindOf(err) == KindCancelled:
		fmt.Fprintf(out, "Status: Canceled.\n")
	case errors.As(err, &ce):
		fmt.Fprintf(out, "Status: Failure (%s). %v\n", ce.Kind, err)
	default:
		fmt.Fprintf(out, "Status: Failure. An unexpected error occurred: %v\n", err)
	}
	return ExitCode(err)
}
