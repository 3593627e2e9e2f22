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

type noticeEnvelope struct {
	NoticeType string `json:"notice_type"`
	UserID     int64  `json:"user_id"`
	GroupID    int64  `json:"group_id"`
}

// NoticeHandler forwards notice events (pokes, recalls, joins) to the
// core. Notices carry no user text, so the detection gate is bypassed.
type NoticeHandler struct {
	sender   *egress.Sender
	groups   *cliconfig.GroupList
	platform string
	logger   ports.Logger
}

// NewNoticeHandler creates the notice-category handler.
func NewNoticeHandler(sender *egress.Sender, groups *cliconfig.GroupList, platform string, logger ports.Logger) *NoticeHandler {
	return &NoticeHandler{sender: sender, groups: groups, platform: platform, logger: logger}
}

// Handle implements ports.FrameHandler.
func (h *NoticeHandler) Handle(ctx context.Context, frame domain.InboundFrame) error {
	var env noticeEnvelope
	if err := json.Unmarshal(frame.Payload, &env); err != nil {
		return fmt.Errorf("%w: notice envelope: %v", domain.ErrMalformedFrame, err)
	}

	if env.GroupID != 0 && h.groups != nil && !h.groups.Allowed(env.GroupID) {
		h.logger.Debug("notice filtered by group list",
			ports.Int64("group_id", env.GroupID))
		return nil
	}

	payload, err := wrapForCore(h.platform, frame)
	if err != nil {
		return err
	}

	return h.sender.Send(ctx, egress.Message{
		UserID:  env.UserID,
		GroupID: env.GroupID,
		Payload: payload,
	})
}
