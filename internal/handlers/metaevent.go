package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/obgate-labs/obgate/internal/domain"
	"github.com/obgate-labs/obgate/internal/ports"
)

type metaEnvelope struct {
	MetaEventType string `json:"meta_event_type"`
	SubType       string `json:"sub_type"`
	Interval      int64  `json:"interval"`
}

// MetaEventHandler tracks heartbeat and lifecycle frames from the front
// protocol. Meta events are not forwarded to the core.
type MetaEventHandler struct {
	logger     ports.Logger
	heartbeats atomic.Int64
}

// NewMetaEventHandler creates the meta_event-category handler.
func NewMetaEventHandler(logger ports.Logger) *MetaEventHandler {
	return &MetaEventHandler{logger: logger}
}

// Heartbeats returns the number of heartbeat frames observed.
func (h *MetaEventHandler) Heartbeats() int64 {
	return h.heartbeats.Load()
}

// Handle implements ports.FrameHandler.
func (h *MetaEventHandler) Handle(_ context.Context, frame domain.InboundFrame) error {
	var env metaEnvelope
	if err := json.Unmarshal(frame.Payload, &env); err != nil {
		return fmt.Errorf("%w: meta_event envelope: %v", domain.ErrMalformedFrame, err)
	}

	switch env.MetaEventType {
	case "heartbeat":
		h.heartbeats.Add(1)
		h.logger.Debug("heartbeat",
			ports.Int64("interval", env.Interval),
			ports.Int64("count", h.heartbeats.Load()))
	case "lifecycle":
		h.logger.Info("front lifecycle event",
			ports.String("sub_type", env.SubType))
	default:
		h.logger.Debug("unrecognized meta event",
			ports.String("meta_event_type", env.MetaEventType))
	}
	return nil
}
