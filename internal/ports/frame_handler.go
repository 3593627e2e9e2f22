package ports

import (
	"context"

	"github.com/obgate-labs/obgate/internal/domain"
)

// FrameHandler processes dispatched inbound frames of one category.
// The dispatcher invokes Handle synchronously; a slow handler throttles
// the whole pipeline by design.
type FrameHandler interface {
	// Handle processes a single frame. Errors are logged by the dispatcher
	// and never terminate the dispatch loop.
	Handle(ctx context.Context, frame domain.InboundFrame) error
}

// FrameHandlerFunc adapts a function to the FrameHandler interface.
type FrameHandlerFunc func(ctx context.Context, frame domain.InboundFrame) error

// Handle calls f(ctx, frame).
func (f FrameHandlerFunc) Handle(ctx context.Context, frame domain.InboundFrame) error {
	return f(ctx, frame)
}
