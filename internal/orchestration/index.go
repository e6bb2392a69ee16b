package orchestration

import (
	"strconv"
	"strings"

	apperrors "github.com/zed/txfib/internal/errors"
)

// ParseIndex parses a sequence index from user input. Anything that is not a
// non-negative base-10 integer fitting in a uint64 is rejected with
// InvalidIndex.
func ParseIndex(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" || s[0] == '+' || s[0] == '-' {
		return 0, apperrors.Errorf(apperrors.KindInvalidIndex, "index %q is not a non-negative integer", s)
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, apperrors.Errorf(apperrors.KindInvalidIndex, "index %q: %v", s, err)
	}
	return n, nil
}
