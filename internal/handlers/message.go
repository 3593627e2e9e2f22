// Package handlers provides the per-category frame handlers invoked by the
// dispatcher. Payloads stay opaque beyond the few envelope fields each
// handler needs for routing; rich parsing belongs to the core.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/obgate-labs/obgate/internal/cliconfig"
	"github.com/obgate-labs/obgate/internal/domain"
	"github.com/obgate-labs/obgate/internal/egress"
	"github.com/obgate-labs/obgate/internal/ports"
)

// coreEnvelope wraps a front-protocol payload for the core.
type coreEnvelope struct {
	Platform string          `json:"platform"`
	Category string          `json:"category"`
	Payload  json.RawMessage `json:"payload"`
}

func wrapForCore(platform string, frame domain.InboundFrame) ([]byte, error) {
	data, err := json.Marshal(coreEnvelope{
		Platform: platform,
		Category: frame.Category.String(),
		Payload:  frame.Payload,
	})
	if err != nil {
		return nil, fmt.Errorf("encode core envelope: %w", err)
	}
	return data, nil
}

// messageEnvelope is the minimal view of a message event.
type messageEnvelope struct {
	MessageType string `json:"message_type"`
	UserID      int64  `json:"user_id"`
	GroupID     int64  `json:"group_id"`
	RawMessage  string `json:"raw_message"`
}

// MessageHandler forwards message events to the core, applying the group
// allow/deny list and the content detection gate on the way out.
type MessageHandler struct {
	sender   *egress.Sender
	groups   *cliconfig.GroupList
	platform string
	logger   ports.Logger
}

// NewMessageHandler creates the message-category handler.
func NewMessageHandler(sender *egress.Sender, groups *cliconfig.GroupList, platform string, logger ports.Logger) *MessageHandler {
	return &MessageHandler{sender: sender, groups: groups, platform: platform, logger: logger}
}

// Handle implements ports.FrameHandler.
func (h *MessageHandler) Handle(ctx context.Context, frame domain.InboundFrame) error {
	var env messageEnvelope
	if err := json.Unmarshal(frame.Payload, &env); err != nil {
		return fmt.Errorf("%w: message envelope: %v", domain.ErrMalformedFrame, err)
	}

	if env.MessageType == "group" && h.groups != nil && !h.groups.Allowed(env.GroupID) {
		h.logger.Debug("message filtered by group list",
			ports.Int64("group_id", env.GroupID))
		return nil
	}

	payload, err := wrapForCore(h.platform, frame)
	if err != nil {
		return err
	}

	return h.sender.Send(ctx, egress.Message{
		Text:    env.RawMessage,
		UserID:  env.UserID,
		GroupID: env.GroupID,
		Payload: payload,
	})
}
