/*

Structured notifications emitted by every mutating engine operation, intended
for external observability and indexing. Each event carries the relevant
before/after values in its payload.

*/

package types

import "time"

// EventKind classifies a strategy notification.
type EventKind string

const (
	EventConfigChanged        EventKind = "configuration-changed"
	EventLockCreated          EventKind = "lock-created"
	EventLockReleased         EventKind = "lock-released"
	EventFeeCharged           EventKind = "fee-charged"
	EventHighWaterMarkUpdated EventKind = "high-water-mark-updated"
)

// StrategyEvent is a single notification record. Payload keys are
// event-specific; amounts are rendered as decimal strings.
type StrategyEvent struct {
	ID        string         `json:"id"`
	Kind      EventKind      `json:"kind"`
	User      UserID         `json:"user,omitempty"` // empty for global configuration events
	Payload   map[string]any `json:"payload"`
	Timestamp time.Time      `json:"timestamp"`
}

// EventSink receives emitted events. Implementations must not mutate the event.
type EventSink interface {
	Record(event StrategyEvent) error
}
