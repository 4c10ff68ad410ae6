package ledger

import (
	"time"
)

// AccountAddedEventType is the event type identifier.
const AccountAddedEventType = "AccountAdded"

// AccountAdded represents when a new account was registered with the ledger.
type AccountAdded struct {
	EventType  EventTypeString
	AccountID  AccountID
	Worked     WorkCounter
	OccurredAt OccurredAtTS
}

// BuildAccountAdded creates a new AccountAdded event.
func BuildAccountAdded(
	accountID AccountID,
	worked WorkCounter,
	occurredAt time.Time,
) AccountAdded {

	event := AccountAdded{
		EventType:  AccountAddedEventType,
		AccountID:  accountID,
		Worked:     worked,
		OccurredAt: ToOccurredAt(occurredAt),
	}

	return event
}

// IsEventType returns the event type identifier.
func (e AccountAdded) IsEventType() string {
	return AccountAddedEventType
}

// HasOccurredAt returns when this event occurred.
func (e AccountAdded) HasOccurredAt() time.Time {
	return e.OccurredAt
}

// apply inserts a fresh record with zero balance, replacing whatever record
// the account id pointed at. Validation guarantees the id was absent.
func (e AccountAdded) apply(led *Ledger) {
	led.accounts[e.AccountID] = AccountRecord{Balance: 0, Worked: e.Worked}
}
