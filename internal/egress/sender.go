// Package egress implements the outbound path to the orchestration core:
// the detection gate, the size ceiling, and the forward over the back link.
package egress

import (
	"context"

	"github.com/obgate-labs/obgate/internal/detect"
	"github.com/obgate-labs/obgate/internal/ports"
)

// Message is one translated payload headed for the core, plus the context
// the detection gate and reporters need.
type Message struct {
	// Text is the plain-text content, empty when the message is not
	// text-only. Only text-only messages pass through the detector.
	Text    string
	UserID  int64
	GroupID int64

	// Payload is the wire form forwarded to the core.
	Payload []byte
}

// Sender forwards messages to the core, gating text content through the
// detector first. Blocked messages are never forwarded; the side-reporting
// contracts fire instead.
type Sender struct {
	link     ports.BackLink
	detector ports.Detector
	reporter *detect.Reporter
	logger   ports.Logger
}

// NewSender creates a sender. detector and reporter may be nil when
// detection is disabled.
func NewSender(link ports.BackLink, detector ports.Detector, reporter *detect.Reporter, logger ports.Logger) *Sender {
	return &Sender{link: link, detector: detector, reporter: reporter, logger: logger}
}

// Send gates and forwards one message. A blocked verdict is not an error:
// the message is dropped, the warning/report side effects run, and nil is
// returned so the pipeline keeps moving.
func (s *Sender) Send(ctx context.Context, msg Message) error {
	if s.detector != nil && msg.Text != "" {
		verdict, err := s.detector.Classify(ctx, msg.Text)
		switch {
		case err != nil:
			// Fail open: an unavailable classifier must not stall the
			// pipeline.
			s.logger.Warn("content classification unavailable, forwarding",
				ports.Err(err))
		case verdict.Blocked:
			s.logger.Warn("outbound message blocked",
				ports.String("risk_level", verdict.RiskLevel),
				ports.String("reason", verdict.Reason),
				ports.Int64("user_id", msg.UserID),
				ports.Int64("group_id", msg.GroupID))
			if s.reporter != nil {
				if msg.GroupID == 0 && msg.UserID != 0 {
					s.reporter.WarnUser(ctx, msg.UserID)
				}
				s.reporter.Report(ctx, msg.UserID, msg.GroupID, verdict)
			}
			return nil
		}
	}

	return s.link.Send(ctx, msg.Payload)
}
