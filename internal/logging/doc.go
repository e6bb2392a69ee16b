// Package logging provides the structured logging interface shared by the
// scheduler loop, the offload executors, the dispatcher and the HTTP layer.
// The default backend is zerolog; a standard library adapter exists for
// embedders that already own a log.Logger.
package logging
