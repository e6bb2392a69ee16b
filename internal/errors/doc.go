// Package apperrors defines the failure kinds a computation can resolve with
// (InvalidIndex, Overflow, StrategyFailure, OffloadFailure, Cancelled, Timeout)
// together with the configuration error type and the mappings to process exit
// codes and HTTP statuses.
//
// Error Wrapping Guidelines:
// This package follows Go's error wrapping conventions using fmt.Errorf with %w.
// ComputeError implements Unwrap and Is so that errors.Is(err, ErrTimeout) and
// errors.As(err, &ce) work through any number of wrapping layers.
package apperrors
