package domain

import "errors"

// Domain errors represent error conditions in the obgate domain.
// These errors are returned by the public API and can be checked with errors.Is.
var (
	// ErrAlreadyRunning is returned when Start() is called on a running instance.
	ErrAlreadyRunning = errors.New("obgate: already running")

	// ErrNotRunning is returned when Stop() is called on a stopped instance.
	ErrNotRunning = errors.New("obgate: not running")

	// ErrShutdownTimeout is returned when graceful shutdown times out before
	// all queued and in-flight frames finished processing.
	ErrShutdownTimeout = errors.New("obgate: shutdown timeout")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("obgate: invalid configuration")

	// ErrBind is returned when the ingress listener cannot acquire its
	// address. Fatal to that listener; retried only via reconfiguration.
	ErrBind = errors.New("obgate: bind failed")

	// ErrMalformedFrame is returned when an inbound frame cannot be decoded.
	// The frame is dropped and the pipeline continues.
	ErrMalformedFrame = errors.New("obgate: malformed frame")

	// ErrDuplicateToken is returned when a correlation token is registered
	// while a request with the same token is still pending.
	ErrDuplicateToken = errors.New("obgate: duplicate correlation token")

	// ErrTimeout is returned to a caller awaiting a correlated response
	// whose deadline elapsed before the response arrived.
	ErrTimeout = errors.New("obgate: response timeout")

	// ErrStaleConnection is returned when a send is attempted against a
	// connection handle that has been superseded or torn down. Callers
	// must re-resolve the current handle before retrying.
	ErrStaleConnection = errors.New("obgate: stale connection")

	// ErrOversizeMessage is returned when an outbound payload exceeds the
	// hard size ceiling. The message is dropped, never fragmented.
	ErrOversizeMessage = errors.New("obgate: message exceeds size limit")
)
