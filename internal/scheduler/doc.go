// Package scheduler runs Fibonacci computations cooperatively on a single
// loop thread. Each task gets one bounded slice per turn in round-robin
// order, so a long computation never prevents a short one from finishing.
// Work that runs elsewhere is bridged back through Post and External.
package scheduler
