package ledger

import (
	"fmt"
	"slices"
	"time"
)

// AmountsAccumulatedEventType is the event type identifier.
const AmountsAccumulatedEventType = "AmountsAccumulated"

// AmountsAccumulated represents when the rewards of one submission were
// credited to the receiving accounts.
type AmountsAccumulated struct {
	EventType    EventTypeString
	SubmissionID string
	AccountIDs   []AccountID
	Distribution Distribution
	OccurredAt   OccurredAtTS
}

// BuildAmountsAccumulated creates a new AmountsAccumulated event. The
// distribution is copied; AccountIDs lists its keys in sorted order so that
// payloads are deterministic and array predicates can match on them.
func BuildAmountsAccumulated(
	submission SubmissionID,
	distribution Distribution,
	occurredAt time.Time,
) AmountsAccumulated {

	accountIDs := make([]AccountID, 0, len(distribution))
	copied := make(Distribution, len(distribution))
	for accountID, delta := range distribution {
		accountIDs = append(accountIDs, accountID)
		copied[accountID] = delta
	}
	slices.Sort(accountIDs)

	event := AmountsAccumulated{
		EventType:    AmountsAccumulatedEventType,
		SubmissionID: submission.Key(),
		AccountIDs:   accountIDs,
		Distribution: copied,
		OccurredAt:   ToOccurredAt(occurredAt),
	}

	return event
}

// IsEventType returns the event type identifier.
func (e AmountsAccumulated) IsEventType() string {
	return AmountsAccumulatedEventType
}

// HasOccurredAt returns when this event occurred.
func (e AmountsAccumulated) HasOccurredAt() time.Time {
	return e.OccurredAt
}

// apply credits every delta through the shared checked addition and then
// marks the submission id as processed. The submission is marked even for an
// empty distribution, so an empty submission de-duplicates like any other.
// An overflow here means the event was never validated: that is a broken
// contract, not a recoverable condition.
func (e AmountsAccumulated) apply(led *Ledger) {
	updated, err := accrueDistribution(led.accounts, e.Distribution)
	if err != nil {
		panic(fmt.Sprintf("ledger: applying unvalidated submission %q: %s", e.SubmissionID, err))
	}

	for accountID, record := range updated {
		led.accounts[accountID] = record
	}

	led.processed[e.SubmissionID] = struct{}{}
}
