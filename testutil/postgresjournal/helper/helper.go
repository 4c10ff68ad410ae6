package helper

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/accrualworks/reward-ledger-go/shell"

	. "github.com/accrualworks/reward-ledger-go/journal"
	. "github.com/accrualworks/reward-ledger-go/ledger"
)

// Journal is the journal surface the helpers need, satisfied by all engines.
type Journal interface {
	Query(ctx context.Context, filter Filter) (Entries, MaxSequenceNumberUint, error)
	Append(ctx context.Context, filter Filter, expectedMaxSequenceNumber MaxSequenceNumberUint, entry Entry, additionalEntries ...Entry) error
}

func GivenUniqueID(t testing.TB) uuid.UUID {
	id, err := uuid.NewV7()
	assert.NoError(t, err, "error in arranging test data")

	return id
}

func GivenUniqueSubmissionID(t testing.TB) SubmissionID {
	id := GivenUniqueID(t)

	return SubmissionID(id[:])
}

func QueryMaxSequenceNumberBeforeAppend(
	t testing.TB,
	ctx context.Context,
	j Journal,
	filter Filter,
) MaxSequenceNumberUint {

	_, maxSequenceNumBeforeAppend, err := j.Query(ctx, filter)
	assert.NoError(t, err, "error in arranging test data")

	return maxSequenceNumBeforeAppend
}

func FilterAllEventTypesForOneAccount(accountID AccountID) Filter {
	filter := BuildEventFilter().
		Matching().
		AnyEventTypeOf(
			AccountAddedEventType,
			AccumulatedClaimedEventType).
		AndAnyPredicateOf(P("AccountID", accountID)).
		OrMatching().
		AnyEventTypeOf(AmountsAccumulatedEventType).
		AndAnyPredicateOf(PAnyElement("AccountIDs", accountID)).
		Finalize()

	return filter
}

func FilterAllEventTypesForOneSubmission(submission SubmissionID) Filter {
	filter := BuildEventFilter().
		Matching().
		AnyEventTypeOf(AmountsAccumulatedEventType).
		AndAnyPredicateOf(P("SubmissionID", submission.Key())).
		Finalize()

	return filter
}

func FixtureAccountAdded(accountID AccountID, worked WorkCounter, fakeClock time.Time) Event {
	return BuildAccountAdded(accountID, worked, fakeClock)
}

func FixtureAmountsAccumulated(submission SubmissionID, distribution Distribution, fakeClock time.Time) Event {
	return BuildAmountsAccumulated(submission, distribution, fakeClock)
}

func FixtureAccumulatedClaimed(accountID AccountID, accumulated AccountRecord, fakeClock time.Time) Event {
	return BuildAccumulatedClaimed(accountID, accumulated, fakeClock)
}

func ToEntry(t testing.TB, event Event) Entry {
	entry, err := shell.EntryWithEmptyMetadataFrom(event)
	assert.NoError(t, err, "error in arranging test data")

	return entry
}

func ToEntryWithMetadata(t testing.TB, event Event, eventMetadata shell.EventMetadata) Entry {
	entry, err := shell.EntryFrom(event, eventMetadata)
	assert.NoError(t, err, "error in arranging test data")

	return entry
}

func GivenAccountAddedWasAppended(t testing.TB, ctx context.Context, j Journal, accountID AccountID, worked WorkCounter, fakeClock time.Time) Event {
	filter := FilterAllEventTypesForOneAccount(accountID)
	event := FixtureAccountAdded(accountID, worked, fakeClock)
	err := j.Append(
		ctx,
		filter,
		QueryMaxSequenceNumberBeforeAppend(t, ctx, j, filter),
		ToEntry(t, event),
	)
	assert.NoError(t, err, "error in arranging test data")

	return event
}

func GivenAmountsAccumulatedWasAppended(t testing.TB, ctx context.Context, j Journal, submission SubmissionID, distribution Distribution, fakeClock time.Time) Event {
	filter := FilterAllEventTypesForOneSubmission(submission)
	event := FixtureAmountsAccumulated(submission, distribution, fakeClock)
	err := j.Append(
		ctx,
		filter,
		QueryMaxSequenceNumberBeforeAppend(t, ctx, j, filter),
		ToEntry(t, event),
	)
	assert.NoError(t, err, "error in arranging test data")

	return event
}

func GivenAccumulatedClaimedWasAppended(t testing.TB, ctx context.Context, j Journal, accountID AccountID, accumulated AccountRecord, fakeClock time.Time) Event {
	filter := FilterAllEventTypesForOneAccount(accountID)
	event := FixtureAccumulatedClaimed(accountID, accumulated, fakeClock)
	err := j.Append(
		ctx,
		filter,
		QueryMaxSequenceNumberBeforeAppend(t, ctx, j, filter),
		ToEntry(t, event),
	)
	assert.NoError(t, err, "error in arranging test data")

	return event
}

// GivenSomeOtherEventsWereAppended fills the store with registrations for
// unrelated accounts. Each noise account has a fresh id, so every append
// targets an empty scope and cannot conflict with the test's own scope.
func GivenSomeOtherEventsWereAppended(t testing.TB, ctx context.Context, j Journal, numEvents int, fakeClock time.Time) time.Time {
	for i := 0; i < numEvents; i++ {
		id, err := uuid.NewV7()
		assert.NoError(t, err, "error in arranging test data")

		fakeClock = fakeClock.Add(time.Second)
		accountID := "noise-" + id.String()
		event := FixtureAccountAdded(accountID, WorkCounter(i), fakeClock)

		filter := FilterAllEventTypesForOneAccount(accountID)
		err = j.Append(ctx, filter, 0, ToEntry(t, event))
		assert.NoError(t, err, "error in arranging test data")
	}

	return fakeClock
}
