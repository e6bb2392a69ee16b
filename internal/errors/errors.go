package apperrors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Application exit codes define the standard exit statuses for the application.
// These codes are used to signal the outcome of the program execution to the OS.
const (
	ExitSuccess       = 0   // Indicates successful execution.
	ExitErrorGeneric  = 1   // Indicates a generic error.
	ExitErrorTimeout  = 2   // Indicates the operation timed out.
	ExitErrorMismatch = 3   // Indicates a result mismatch between strategies.
	ExitErrorConfig   = 4   // Indicates a configuration error.
	ExitErrorCanceled = 130 // Indicates the operation was canceled (e.g., SIGINT).
)

// StatusClientClosedRequest is the non-standard status used when the client
// went away before the computation resolved.
const StatusClientClosedRequest = 499

// Kind classifies a computation failure. Every failure delivered on a result
// handle carries exactly one Kind.
type Kind uint8

const (
	// KindUnknown is reported for errors that did not originate in the core.
	KindUnknown Kind = iota
	// KindInvalidIndex rejects an index before scheduling.
	KindInvalidIndex
	// KindInvalidRequest rejects an unknown strategy or a disallowed mode.
	KindInvalidRequest
	// KindOverflow is raised when a fixed-precision path leaves its range.
	KindOverflow
	// KindStrategyFailure signals a violated internal invariant.
	KindStrategyFailure
	// KindOffloadFailure covers a panicking worker and a failed subprocess.
	KindOffloadFailure
	// KindCancelled is delivered when a task is cancelled before completion.
	KindCancelled
	// KindTimeout is delivered when a caller deadline expires.
	KindTimeout
)

var kindNames = [...]string{
	KindUnknown:         "Unknown",
	KindInvalidIndex:    "InvalidIndex",
	KindInvalidRequest:  "InvalidRequest",
	KindOverflow:        "Overflow",
	KindStrategyFailure: "StrategyFailure",
	KindOffloadFailure:  "OffloadFailure",
	KindCancelled:       "Cancelled",
	KindTimeout:         "Timeout",
}

// String returns the kind name.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// ParseKind is the inverse of Kind.String. Unrecognized names map to
// KindUnknown.
func ParseKind(name string) Kind {
	for k, n := range kindNames {
		if n == name {
			return Kind(k)
		}
	}
	return KindUnknown
}

// Sentinel errors, one per Kind, for use with errors.Is.
var (
	ErrInvalidIndex    = kindError(KindInvalidIndex)
	ErrInvalidRequest  = kindError(KindInvalidRequest)
	ErrOverflow        = kindError(KindOverflow)
	ErrStrategyFailure = kindError(KindStrategyFailure)
	ErrOffloadFailure  = kindError(KindOffloadFailure)
	ErrCancelled       = kindError(KindCancelled)
	ErrTimeout         = kindError(KindTimeout)
)

type kindError Kind

func (k kindError) Error() string { return Kind(k).String() }

// ComputeError is the failure outcome of a single computation. It records
// which strategy failed at which index and preserves the underlying cause.
type ComputeError struct {
	// Kind classifies the failure.
	Kind Kind
	// Strategy is the wire name of the strategy, if known.
	Strategy string
	// N is the requested index.
	N uint64
	// Cause is the underlying error, possibly nil.
	Cause error
}

// Error returns a message of the form "<kind>: <strategy>(<n>): <cause>".
//
// Returns:
//   - string: The error message string.
func (e *ComputeError) Error() string {
	msg := e.Kind.String()
	if e.Strategy != "" {
		msg = fmt.Sprintf("%s: %s(%d)", msg, e.Strategy, e.N)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *ComputeError) Unwrap() error { return e.Cause }

// Is reports whether target is the sentinel for e's Kind.
func (e *ComputeError) Is(target error) bool {
	k, ok := target.(kindError)
	return ok && Kind(k) == e.Kind
}

// NewComputeError creates a ComputeError of the given kind.
//
// Parameters:
//   - kind: The failure classification.
//   - strategy: The strategy wire name (may be empty).
//   - n: The requested index.
//   - cause: The underlying error (may be nil).
//
// Returns:
//   - error: A *ComputeError.
func NewComputeError(kind Kind, strategy string, n uint64, cause error) error {
	return &ComputeError{Kind: kind, Strategy: strategy, N: n, Cause: cause}
}

// Errorf creates a ComputeError of the given kind with a formatted cause and
// no strategy attribution.
func Errorf(kind Kind, format string, a ...any) error {
	return &ComputeError{Kind: kind, Cause: fmt.Errorf(format, a...)}
}

// Attribute fills in the strategy and index of a ComputeError that does not
// carry them yet, wrapping any other error as a failure of the given kind.
func Attribute(err error, fallback Kind, strategy string, n uint64) error {
	if err == nil {
		return nil
	}
	var ce *ComputeError
	if errors.As(err, &ce) {
		if ce.Strategy != "" {
			return err
		}
		return &ComputeError{Kind: ce.Kind, Strategy: strategy, N: n, Cause: ce.Cause}
	}
	if k := contextKind(err); k != KindUnknown {
		fallback = k
	}
	return &ComputeError{Kind: fallback, Strategy: strategy, N: n, Cause: err}
}

// KindOf extracts the Kind of err. Context errors map to Timeout and
// Cancelled; anything else not produced by this package is KindUnknown.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var ce *ComputeError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return contextKind(err)
}

// FromContext converts a context error into the matching ComputeError.
// It returns nil for a nil error.
func FromContext(err error) error {
	if err == nil {
		return nil
	}
	if k := contextKind(err); k != KindUnknown {
		return &ComputeError{Kind: k, Cause: err}
	}
	return err
}

func contextKind(err error) Kind {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, context.Canceled):
		return KindCancelled
	}
	return KindUnknown
}

// ConfigError represents a user configuration error, such as invalid flags or
// values. It indicates that the application cannot proceed due to incorrect user input.
type ConfigError struct {
	// Message explains the specific configuration error.
	Message string
}

// Error returns the error message for a ConfigError.
func (e ConfigError) Error() string { return e.Message }

// NewConfigError creates a new ConfigError with a formatted message.
//
// Parameters:
//   - format: A format string (see fmt.Sprintf).
//   - a: Arguments to be formatted into the string.
//
// Returns:
//   - error: A new ConfigError instance containing the formatted message.
func NewConfigError(format string, a ...any) error {
	return ConfigError{Message: fmt.Sprintf(format, a...)}
}

// WrapError wraps an error with additional context using fmt.Errorf and %w.
// It returns nil if err is nil.
func WrapError(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// IsContextError checks if the error is a context cancellation or deadline exceeded error.
func IsContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// ExitCode maps an error to the process exit code.
//
// Parameters:
//   - err: The error to classify (nil means success).
//
// Returns:
//   - int: One of the Exit* constants.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var cfgErr ConfigError
	if errors.As(err, &cfgErr) {
		return ExitErrorConfig
	}
	switch KindOf(err) {
	case KindTimeout:
		return ExitErrorTimeout
	case KindCancelled:
		return ExitErrorCanceled
	case KindInvalidIndex, KindInvalidRequest:
		return ExitErrorConfig
	}
	return ExitErrorGeneric
}

// HTTPStatus maps an error to the status code the HTTP collaborator replies with.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	switch KindOf(err) {
	case KindInvalidIndex, KindInvalidRequest:
		return http.StatusBadRequest
	case KindOverflow:
		return http.StatusUnprocessableEntity
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindCancelled:
		return StatusClientClosedRequest
	}
	return http.StatusInternalServerError
}
