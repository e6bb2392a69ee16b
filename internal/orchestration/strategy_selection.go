package orchestration

import (
	"fmt"
	"strings"

	"github.com/zed/txfib/internal/fibonacci"
)

// SelectStrategies resolves an algorithm selection: "all" (or empty) for
// every strategy in declaration order, otherwise a comma-separated list of
// names or aliases. Duplicates are dropped.
func SelectStrategies(selection string) ([]fibonacci.Strategy, error) {
	selection = strings.TrimSpace(selection)
	if selection == "" || strings.EqualFold(selection, "all") {
		return fibonacci.Strategies(), nil
	}

	var out []fibonacci.Strategy
	seen := make(map[fibonacci.Strategy]bool)
	for _, name := range strings.Split(selection, ",") {
		if strings.TrimSpace(name) == "" {
			continue
		}
		s, err := fibonacci.ParseStrategy(name)
		if err != nil {
			return nil, err
		}
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no strategy selected in %q", selection)
	}
	return out, nil
}
