// Package fibonacci implements the six strategies for computing F(n):
// linear iteration, fast doubling, the exact and approximate closed forms,
// and memoized and unmemoized recursion.
//
// The decomposable strategies expose a Stepper, a resumable state machine
// advanced in bounded slices by the cooperative scheduler. Compute runs any
// strategy to completion on the calling goroutine and is what the offload
// executors use.
package fibonacci
