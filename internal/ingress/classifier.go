// Package ingress owns the front-protocol WebSocket listener: connection
// acceptance and authentication, frame classification, the connection
// handle registry, and the restart supervisor.
package ingress

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/obgate-labs/obgate/internal/domain"
)

// envelope is the minimal view of an inbound frame needed for routing.
// Events carry a post_type discriminator; responses carry none and echo
// the correlation token of their originating request.
type envelope struct {
	PostType string `json:"post_type"`
	Echo     string `json:"echo"`
}

// Classify inspects a raw inbound frame and derives its category and, for
// response frames, the echoed correlation token. Decode failures are
// reported as ErrMalformedFrame; the caller drops the frame and continues.
// An unrecognized post_type yields ok=false.
func Classify(raw []byte, now time.Time) (frame domain.InboundFrame, echo string, ok bool, err error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return domain.InboundFrame{}, "", false, fmt.Errorf("%w: %v", domain.ErrMalformedFrame, err)
	}

	if env.PostType == "" {
		frame = domain.InboundFrame{
			Category:   domain.CategoryResponse,
			Payload:    raw,
			ReceivedAt: now,
		}
		return frame, env.Echo, true, nil
	}

	cat, known := domain.ParseCategory(env.PostType)
	if !known {
		return domain.InboundFrame{}, "", false, nil
	}

	frame = domain.InboundFrame{
		Category:   cat,
		Payload:    raw,
		ReceivedAt: now,
	}
	return frame, "", true, nil
}
