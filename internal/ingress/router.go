package ingress

import (
	"time"

	"github.com/obgate-labs/obgate/internal/app"
	"github.com/obgate-labs/obgate/internal/domain"
	"github.com/obgate-labs/obgate/internal/ports"
	"github.com/obgate-labs/obgate/internal/response"
)

// FrameSink consumes raw frames read from the front connection.
type FrameSink interface {
	Route(raw []byte)
}

// Router splits classified frames between the correlation pool (response
// frames) and the work queue (event frames). Classification errors are
// contained at the frame boundary; they never terminate the read loop.
type Router struct {
	pool       *response.Pool
	dispatcher *app.Dispatcher
	logger     ports.Logger
}

// NewRouter creates the frame router fed by the ingress listener.
func NewRouter(pool *response.Pool, dispatcher *app.Dispatcher, logger ports.Logger) *Router {
	return &Router{pool: pool, dispatcher: dispatcher, logger: logger}
}

// Route classifies one raw frame and forwards it.
func (r *Router) Route(raw []byte) {
	frame, echo, ok, err := Classify(raw, time.Now())
	if err != nil {
		r.logger.Warn("dropping malformed frame", ports.Err(err))
		return
	}
	if !ok {
		r.logger.Warn("dropping frame with unrecognized post_type")
		return
	}

	if frame.Category == domain.CategoryResponse {
		if echo == "" {
			// No correlation token: cannot be matched to any request.
			r.logger.Debug("dropping response frame without correlation token")
			return
		}
		r.pool.Resolve(echo, frame.Payload)
		return
	}

	r.dispatcher.Enqueue(frame)
}
