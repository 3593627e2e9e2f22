package ports

import (
	"context"
	"encoding/json"
)

// ActionCaller issues correlated action requests on the front protocol.
// Each call carries a unique correlation token; the front peer echoes the
// token verbatim on its response frame.
type ActionCaller interface {
	// Call sends an action request over the current connection handle and
	// blocks until the correlated response arrives or the deadline elapses.
	// Returns domain.ErrStaleConnection if no live handle exists and
	// domain.ErrTimeout if the response deadline passes.
	Call(ctx context.Context, action string, params any) (json.RawMessage, error)
}
