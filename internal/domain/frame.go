package domain

import (
	"encoding/json"
	"time"
)

// Category classifies an inbound frame by its post_type discriminator.
// Response frames carry no discriminator at all.
type Category int

const (
	CategoryMessage Category = iota
	CategoryNotice
	CategoryMetaEvent
	CategoryResponse
)

// String returns the wire name of the category.
func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "message"
	case CategoryNotice:
		return "notice"
	case CategoryMetaEvent:
		return "meta_event"
	case CategoryResponse:
		return "response"
	default:
		return "unknown"
	}
}

// ParseCategory maps a post_type discriminator value to its Category.
// The second return value is false for unrecognized values.
func ParseCategory(s string) (Category, bool) {
	switch s {
	case "message":
		return CategoryMessage, true
	case "notice":
		return CategoryNotice, true
	case "meta_event":
		return CategoryMetaEvent, true
	default:
		return 0, false
	}
}

// InboundFrame is a decoded message from the front connection.
// The payload stays opaque; only the discriminator is inspected here.
type InboundFrame struct {
	Category   Category
	Payload    json.RawMessage
	ReceivedAt time.Time
}

// QueueItem is an event-category InboundFrame waiting for dispatch.
// It is owned exclusively by the work queue until popped, then by the
// dispatch call for the duration of handling.
type QueueItem struct {
	Frame      InboundFrame
	EnqueuedAt time.Time
}
