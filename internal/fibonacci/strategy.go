package fibonacci

import (
	"fmt"
	"strings"
)

// Strategy identifies one algorithm for computing F(n). The set is closed:
// every switch over Strategy in this package is exhaustive.
type Strategy uint8

const (
	// Linear iterates a, b = b, a+b n times.
	Linear Strategy = iota
	// Logarithmic applies fast doubling over the bits of n.
	Logarithmic
	// ClosedFormExact evaluates Binet's formula with big.Float at a
	// precision that grows with n.
	ClosedFormExact
	// ClosedFormApprox evaluates Binet's formula in float64.
	ClosedFormApprox
	// MemoizedRecursive evaluates f(n) = f(n-1) + f(n-2) against a memo cache.
	MemoizedRecursive
	// UnmemoizedRecursive evaluates the same recurrence without a cache.
	UnmemoizedRecursive

	numStrategies
)

var strategyNames = [numStrategies]string{
	Linear:              "linear",
	Logarithmic:         "logarithmic",
	ClosedFormExact:     "closedFormExact",
	ClosedFormApprox:    "closedFormApprox",
	MemoizedRecursive:   "memoizedRecursive",
	UnmemoizedRecursive: "unmemoizedRecursive",
}

// aliases maps the route names of the original HTTP resource.
var aliases = map[string]Strategy{
	"iter":     Linear,
	"iterfib":  Linear,
	"fast":     Logarithmic,
	"doubling": Logarithmic,
	"binet":    ClosedFormExact,
	"binetfib": ClosedFormExact,
}

// String returns the wire name of the strategy.
func (s Strategy) String() string {
	if s < numStrategies {
		return strategyNames[s]
	}
	return fmt.Sprintf("Strategy(%d)", uint8(s))
}

// Valid reports whether s is one of the declared strategies.
func (s Strategy) Valid() bool { return s < numStrategies }

// Strategies returns every strategy in declaration order.
func Strategies() []Strategy {
	out := make([]Strategy, 0, numStrategies)
	for s := Strategy(0); s < numStrategies; s++ {
		out = append(out, s)
	}
	return out
}

// ParseStrategy resolves a wire name or alias, ignoring case.
func ParseStrategy(name string) (Strategy, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for s, n := range strategyNames {
		if strings.ToLower(n) == key {
			return Strategy(s), nil
		}
	}
	if s, ok := aliases[key]; ok {
		return s, nil
	}
	return 0, fmt.Errorf("unknown strategy: %s", name)
}

// Mode is the execution context a computation runs in.
type Mode uint8

const (
	// ModeDefault selects the strategy's declared default mode.
	ModeDefault Mode = iota
	// Inline runs the whole computation on the loop thread in one go.
	Inline
	// Cooperative runs the computation in bounded slices on the loop thread.
	Cooperative
	// ThreadOffload runs the computation on a pooled worker goroutine.
	ThreadOffload
	// ProcessOffload runs the computation in a separate worker process.
	ProcessOffload
)

var modeNames = [...]string{
	ModeDefault:    "default",
	Inline:         "inline",
	Cooperative:    "cooperative",
	ThreadOffload:  "thread",
	ProcessOffload: "process",
}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("Mode(%d)", uint8(m))
}

// ParseMode resolves a mode name. The empty string is ModeDefault.
func ParseMode(name string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "default":
		return ModeDefault, nil
	case "inline", "blocking":
		return Inline, nil
	case "cooperative", "coop":
		return Cooperative, nil
	case "thread", "threads", "thread-offload":
		return ThreadOffload, nil
	case "process", "subprocess", "process-offload":
		return ProcessOffload, nil
	}
	return ModeDefault, fmt.Errorf("unknown mode: %s", name)
}

// Profile describes the declared cost of a strategy and where it may run.
type Profile struct {
	Time        string
	Memory      string
	DefaultMode Mode
	Modes       []Mode
}

// Allows reports whether the strategy may run in mode m.
func (p Profile) Allows(m Mode) bool {
	for _, allowed := range p.Modes {
		if allowed == m {
			return true
		}
	}
	return false
}

// Profile returns the cost profile of s.
func (s Strategy) Profile() Profile {
	switch s {
	case Linear:
		return Profile{"O(n) steps", "O(n) digits", Cooperative,
			[]Mode{Inline, Cooperative, ThreadOffload, ProcessOffload}}
	case Logarithmic:
		return Profile{"O(log n) steps", "O(n) digits", Cooperative,
			[]Mode{Inline, Cooperative, ThreadOffload, ProcessOffload}}
	case ClosedFormExact:
		return Profile{"O(1) steps, O(n)-bit precision", "O(n) digits", ProcessOffload,
			[]Mode{Inline, ThreadOffload, ProcessOffload}}
	case ClosedFormApprox:
		return Profile{"O(1)", "O(1)", Inline,
			[]Mode{Inline, ThreadOffload, ProcessOffload}}
	case MemoizedRecursive:
		return Profile{"O(n) amortized, exponential under eviction", "O(n) entries", Cooperative,
			[]Mode{Cooperative, ThreadOffload}}
	case UnmemoizedRecursive:
		return Profile{"O(phi^n) calls", "O(n) frames", ThreadOffload,
			[]Mode{ThreadOffload}}
	}
	return Profile{}
}

// UsesCache reports whether the strategy consults the memo cache.
func (s Strategy) UsesCache() bool { return s == MemoizedRecursive }
