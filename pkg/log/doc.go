// Package log defines the structured logging abstraction used throughout
// obgate.
//
// Components depend on the [Logger] interface and never on a concrete
// logging library. The default production implementation wraps zerolog
// ([NewZerologAdapter]); [NewNoopLogger] discards everything and is used
// when no logger is configured, typically in tests or when obgate is
// embedded as a library.
package log
