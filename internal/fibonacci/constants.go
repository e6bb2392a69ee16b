package fibonacci

// ─────────────────────────────────────────────────────────────────────────────
// Numeric Constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	// Log2Phi is log2((1+√5)/2). F(n) has about n·Log2Phi bits.
	Log2Phi = 0.6942419136306174

	// GuardBits is the extra precision, in bits, carried by the exact
	// closed form on top of the size of the result.
	GuardBits = 64

	// MaxApproxIndex is the largest index whose float64 closed form is finite.
	MaxApproxIndex = 1474

	// MaxUnmemoizedIndex is the largest index the unmemoized recursion accepts;
	// F(93) is the largest Fibonacci number that fits in a uint64.
	MaxUnmemoizedIndex = 93

	// ApproxEpsilon is the relative error tolerated when comparing the
	// approximate strategy against exact ones.
	ApproxEpsilon = 1e-6
)

// ─────────────────────────────────────────────────────────────────────────────
// Scheduling Constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	// DefaultYieldInterval is the number of units a cooperative task runs
	// before yielding when no budget is configured.
	DefaultYieldInterval = 1000

	// cancelCheckInterval is how many naive recursive calls run between two
	// context checks.
	cancelCheckInterval = 1 << 16
)
