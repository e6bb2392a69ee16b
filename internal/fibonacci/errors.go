package fibonacci

import "errors"

// ErrNotDecomposable is returned when a cooperative stepper is requested for
// a strategy that can only run to completion.
var ErrNotDecomposable = errors.New("strategy cannot be decomposed into cooperative steps")

var errNoCache = errors.New("memoized strategy requires a cache")
