package format

import (
	"fmt"
	"strings"

	"github.com/zed/txfib/internal/fibonacci"
)

const (
	// TruncationLimit is the digit count from which a value is shortened on
	// screen.
	TruncationLimit = 100
	// DisplayEdges is the number of leading and trailing digits kept when a
	// value is shortened.
	DisplayEdges = 25
)

// FormatNumberString inserts thousands separators into a decimal string.
func FormatNumberString(s string) string {
	if s == "" {
		return ""
	}
	sign := ""
	if s[0] == '-' {
		sign, s = "-", s[1:]
	}
	if len(s) <= 3 {
		return sign + s
	}
	var b strings.Builder
	b.Grow(len(sign) + len(s) + len(s)/3)
	b.WriteString(sign)
	head := len(s) % 3
	if head == 0 {
		head = 3
	}
	b.WriteString(s[:head])
	for i := head; i < len(s); i += 3 {
		b.WriteByte(',')
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// Truncate shortens a long digit string to its first and last edges digits.
// Strings of at most limit digits are returned unchanged.
func Truncate(s string, limit, edges int) string {
	if len(s) <= limit || 2*edges >= len(s) {
		return s
	}
	return fmt.Sprintf("%s...%s", s[:edges], s[len(s)-edges:])
}

// FormatValue renders a computed value for the terminal. Long exact values
// are truncated unless full is set; approximate values carry a leading "≈".
func FormatValue(v fibonacci.Value, full bool) string {
	if v.Approx {
		return "≈ " + v.String()
	}
	s := v.String()
	if full {
		return s
	}
	return Truncate(s, TruncationLimit, DisplayEdges)
}

// FormatBytes renders a byte count with binary units.
func FormatBytes(b uint64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := uint64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}
