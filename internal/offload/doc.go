// Package offload runs computations away from the cooperative loop: on a
// bounded pool of worker goroutines, or in a separate worker process per
// request.
package offload
