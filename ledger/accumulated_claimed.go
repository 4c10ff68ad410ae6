package ledger

import (
	"time"
)

// AccumulatedClaimedEventType is the event type identifier.
const AccumulatedClaimedEventType = "AccumulatedClaimed"

// AccumulatedClaimed represents when an account's accumulated rewards were
// withdrawn. The event carries the complete record as it stood at claim
// time; applying the event removes the account from the ledger.
type AccumulatedClaimed struct {
	EventType   EventTypeString
	AccountID   AccountID
	Accumulated AccountRecord
	OccurredAt  OccurredAtTS
}

// BuildAccumulatedClaimed creates a new AccumulatedClaimed event.
func BuildAccumulatedClaimed(
	accountID AccountID,
	accumulated AccountRecord,
	occurredAt time.Time,
) AccumulatedClaimed {

	event := AccumulatedClaimed{
		EventType:   AccumulatedClaimedEventType,
		AccountID:   accountID,
		Accumulated: accumulated,
		OccurredAt:  ToOccurredAt(occurredAt),
	}

	return event
}

// IsEventType returns the event type identifier.
func (e AccumulatedClaimed) IsEventType() string {
	return AccumulatedClaimedEventType
}

// HasOccurredAt returns when this event occurred.
func (e AccumulatedClaimed) HasOccurredAt() time.Time {
	return e.OccurredAt
}

// apply removes the account record. The claimed amounts travel in the event
// itself; state keeps nothing behind, and the freed id may register again.
func (e AccumulatedClaimed) apply(led *Ledger) {
	delete(led.accounts, e.AccountID)
}
