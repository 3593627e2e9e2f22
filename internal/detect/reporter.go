package detect

import (
	"context"
	"fmt"

	"github.com/obgate-labs/obgate/internal/ports"
)

// DefaultWarningText is sent to a user whose private message was blocked.
const DefaultWarningText = "Your message was blocked by the content safety gate."

// Reporter delivers blocked-content warnings and reports over the front
// protocol using correlated action requests.
type Reporter struct {
	caller       ports.ActionCaller
	reportGroups []int64
	warningText  string
	logger       ports.Logger
}

// NewReporter creates a reporter that notifies the listed report groups.
func NewReporter(caller ports.ActionCaller, reportGroups []int64, warningText string, logger ports.Logger) *Reporter {
	if warningText == "" {
		warningText = DefaultWarningText
	}
	return &Reporter{
		caller:       caller,
		reportGroups: reportGroups,
		warningText:  warningText,
		logger:       logger,
	}
}

type privateMsgParams struct {
	UserID  int64  `json:"user_id"`
	Message string `json:"message"`
}

type groupMsgParams struct {
	GroupID int64  `json:"group_id"`
	Message string `json:"message"`
}

// WarnUser sends the warning text to the user. Only called for private
// chats; group members are not warned individually.
func (r *Reporter) WarnUser(ctx context.Context, userID int64) {
	_, err := r.caller.Call(ctx, "send_private_msg", privateMsgParams{
		UserID:  userID,
		Message: r.warningText,
	})
	if err != nil {
		r.logger.Warn("failed to warn user about blocked message",
			ports.Int64("user_id", userID),
			ports.Err(err))
	}
}

// Report posts a detection report to every configured report group.
func (r *Reporter) Report(ctx context.Context, userID, groupID int64, verdict ports.Verdict) {
	if len(r.reportGroups) == 0 {
		return
	}

	text := fmt.Sprintf(
		"Blocked outbound message.\nrisk: %s\nreason: %s\nuser: %d\ngroup: %d",
		verdict.RiskLevel, verdict.Reason, userID, groupID)

	for _, gid := range r.reportGroups {
		_, err := r.caller.Call(ctx, "send_group_msg", groupMsgParams{
			GroupID: gid,
			Message: text,
		})
		if err != nil {
			r.logger.Warn("failed to deliver detection report",
				ports.Int64("group_id", gid),
				ports.Err(err))
		}
	}
}
