package ports

import "context"

// BackLink transmits translated payloads to the orchestration core.
// Implementations enforce the outbound size ceiling before any bytes hit
// the wire and serialize concurrent writers.
type BackLink interface {
	// Send forwards one payload to the core. Returns
	// domain.ErrOversizeMessage if the payload exceeds the ceiling; the
	// payload is then dropped, never partially sent.
	Send(ctx context.Context, payload []byte) error

	// Connected reports whether the link currently has a live connection.
	Connected() bool
}
