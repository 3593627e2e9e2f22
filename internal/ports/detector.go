package ports

import "context"

// Verdict is the result of classifying outbound text content.
type Verdict struct {
	// Blocked indicates the content must not be forwarded.
	Blocked bool

	// RiskLevel is the classifier's risk label (e.g. "low", "high").
	RiskLevel string

	// Reason is a human-readable explanation for the verdict.
	Reason string
}

// Detector is the content-moderation gate applied to outbound plain text.
// On a blocked verdict the caller must not forward the message and should
// invoke the subsystem's side-reporting contracts instead.
type Detector interface {
	// Classify evaluates one piece of plain text.
	Classify(ctx context.Context, text string) (Verdict, error)

	// Close releases network resources held by the detector.
	Close() error
}
