package bridge

import (
	"github.com/obgate-labs/obgate/internal/ports"
	"github.com/obgate-labs/obgate/pkg/log"
)

// Logger is the structured logging interface consumed by the bridge.
type Logger = log.Logger

// Field is a structured log field.
type Field = log.Field

// Verdict is the outcome of classifying one piece of outbound text.
type Verdict = ports.Verdict

// Detector classifies outbound text. Custom implementations replace the
// built-in HTTP detector.
type Detector = ports.Detector

// State is the externally visible lifecycle state of the bridge.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateDraining
	StateCrashed
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "Stopped"
	case StateStarting:
		return "Starting"
	case StateRunning:
		return "Running"
	case StateDraining:
		return "Draining"
	case StateCrashed:
		return "Crashed"
	default:
		return "Unknown"
	}
}

// StateChangeEvent describes one lifecycle transition.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// EventHandler receives lifecycle events. Calls are synchronous with the
// transition; handlers must return quickly.
type EventHandler interface {
	OnStateChange(event StateChangeEvent)
}

// Option configures optional behavior of the bridge.
type Option func(*options)

type options struct {
	logger       ports.Logger
	eventHandler EventHandler
	detector     ports.Detector
}

func defaultOptions() options {
	return options{
		logger: log.NewNoopLogger(),
	}
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithEventHandler sets a handler for bridge lifecycle events.
// If not provided, no events are emitted.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithDetector replaces the built-in HTTP content detector. The bridge
// owns the detector and closes it on Stop.
func WithDetector(d Detector) Option {
	return func(o *options) {
		o.detector = d
	}
}
