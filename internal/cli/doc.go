// Package cli renders CLI comparison runs: the execution banner, a spinner
// while strategies run, the comparison table and the reference result.
package cli
