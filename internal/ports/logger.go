package ports

import "github.com/obgate-labs/obgate/pkg/log"

// Logger is the structured logging abstraction used by the application layer.
type Logger = log.Logger

// Field is a structured log field.
type Field = log.Field

// Field constructors, re-exported so application code only imports ports.
var (
	String   = log.String
	Int      = log.Int
	Int64    = log.Int64
	Uint64   = log.Uint64
	Duration = log.Duration
	Err      = log.Err
)
