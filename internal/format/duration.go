// Package format renders durations, values and sizes for terminal and HTTP
// output.
package format

import (
	"fmt"
	"time"
)

// FormatExecutionDuration formats a time.Duration for display.
// It shows microseconds for durations less than a millisecond, milliseconds for
// durations less than a second, and the default string representation otherwise.
func FormatExecutionDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	} else if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return d.String()
}

// FormatCPUTime renders user and system CPU time as "1.2ms user / 300µs sys".
func FormatCPUTime(user, system time.Duration) string {
	return FormatExecutionDuration(user) + " user / " + FormatExecutionDuration(system) + " sys"
}
