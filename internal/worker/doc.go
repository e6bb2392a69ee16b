// Package worker is the child side of process offload. A worker process
// reads one JSON Request on stdin, computes it without any shared state and
// writes one JSON Response, including its own resource usage, on stdout.
package worker
