package ledger

import (
	"time"
)

// Events is a slice of Event instances.
type Events = []Event

// Event is one of the ledger's state-changing facts. The event set is
// closed: the unexported apply method ties every event kind to its applier,
// so a new kind cannot satisfy this interface without one.
type Event interface {
	// IsEventType returns the string identifier for this event type.
	IsEventType() string

	// HasOccurredAt returns when this event occurred.
	HasOccurredAt() time.Time

	// apply folds this event into the ledger. Only reachable through Ledger.Apply.
	apply(led *Ledger)
}
