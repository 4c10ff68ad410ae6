package memoryjournal_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/accrualworks/reward-ledger-go/journal"
	"github.com/accrualworks/reward-ledger-go/journal/memoryjournal"
)

func Test_Query_ReturnsEmptyStream_WhenJournalIsEmpty(t *testing.T) {
	// setup
	ctx := context.Background()
	store := memoryjournal.New()

	// act
	entries, maxSeq, err := store.Query(ctx, journal.BuildEventFilter().MatchingAnyEvent())

	// assert
	assert.NoError(t, err)
	assert.Empty(t, entries)
	assert.Equal(t, uint(0), maxSeq)
}

func Test_Append_AppendsEntry_WhenScopeIsEmpty(t *testing.T) {
	// setup
	ctx := context.Background()
	store := memoryjournal.New()
	filter := accountScopedFilter("acc-1")

	// act
	appendErr := store.Append(ctx, filter, 0, accountAddedEntry(t, "acc-1"))

	// assert
	assert.NoError(t, appendErr)

	entries, maxSeq, queryErr := store.Query(ctx, filter)
	assert.NoError(t, queryErr)
	assert.Len(t, entries, 1)
	assert.Equal(t, "AccountAdded", entries[0].EventType)
	assert.Equal(t, uint(1), maxSeq)
}

func Test_Append_ReturnsConcurrencyConflict_WhenExpectedSequenceIsStale(t *testing.T) {
	// setup
	ctx := context.Background()
	store := memoryjournal.New()
	filter := accountScopedFilter("acc-1")

	assert.NoError(t, store.Append(ctx, filter, 0, accountAddedEntry(t, "acc-1")))

	// act - expected sequence 0 is stale now
	appendErr := store.Append(ctx, filter, 0, claimedEntry(t, "acc-1"))

	// assert
	assert.ErrorIs(t, appendErr, journal.ErrConcurrencyConflict)
}

func Test_Append_MultipleEntries_AssignsIncreasingSequenceNumbers(t *testing.T) {
	// setup
	ctx := context.Background()
	store := memoryjournal.New()
	filter := accountScopedFilter("acc-1")

	// act
	appendErr := store.Append(ctx, filter, 0,
		accountAddedEntry(t, "acc-1"),
		claimedEntry(t, "acc-1"))

	// assert
	assert.NoError(t, appendErr)

	entries, maxSeq, queryErr := store.Query(ctx, filter)
	assert.NoError(t, queryErr)
	assert.Len(t, entries, 2)
	assert.Equal(t, uint(2), maxSeq)
}

func Test_Query_OnlyReturnsEntriesMatchingScope(t *testing.T) {
	// setup
	ctx := context.Background()
	store := memoryjournal.New()
	filterOne := accountScopedFilter("acc-1")
	filterTwo := accountScopedFilter("acc-2")

	assert.NoError(t, store.Append(ctx, filterOne, 0, accountAddedEntry(t, "acc-1")))
	assert.NoError(t, store.Append(ctx, filterTwo, 0, accountAddedEntry(t, "acc-2")))

	// act
	entriesOne, maxSeqOne, errOne := store.Query(ctx, filterOne)
	entriesTwo, maxSeqTwo, errTwo := store.Query(ctx, filterTwo)

	// assert
	assert.NoError(t, errOne)
	assert.Len(t, entriesOne, 1)
	assert.Equal(t, uint(1), maxSeqOne)

	assert.NoError(t, errTwo)
	assert.Len(t, entriesTwo, 1)
	assert.Equal(t, uint(2), maxSeqTwo)
}

func Test_Query_MatchesArrayElementPredicate(t *testing.T) {
	// setup
	ctx := context.Background()
	store := memoryjournal.New()
	filter := accountScopedFilter("acc-1")

	accumulated := buildTestEntry(t, "AmountsAccumulated",
		`{"SubmissionID": "0a1b", "AccountIDs": ["acc-1", "acc-2"]}`)

	assert.NoError(t, store.Append(ctx, filter, 0, accountAddedEntry(t, "acc-1")))
	assert.NoError(t, store.Append(ctx, filter, 1, accumulated))

	// act
	entries, maxSeq, err := store.Query(ctx, filter)

	// assert
	assert.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Equal(t, "AmountsAccumulated", entries[1].EventType)
	assert.Equal(t, uint(2), maxSeq)

	// the accumulation mentions acc-2 as well, so it is part of that account's scope too
	entriesTwo, _, errTwo := store.Query(ctx, accountScopedFilter("acc-2"))
	assert.NoError(t, errTwo)
	assert.Len(t, entriesTwo, 1)
	assert.Equal(t, "AmountsAccumulated", entriesTwo[0].EventType)
}

func Test_Query_AppliesSequenceBoundary(t *testing.T) {
	// setup
	ctx := context.Background()
	store := memoryjournal.New()
	filter := accountScopedFilter("acc-1")

	assert.NoError(t, store.Append(ctx, filter, 0, accountAddedEntry(t, "acc-1")))
	assert.NoError(t, store.Append(ctx, filter, 1,
		buildTestEntry(t, "AmountsAccumulated", `{"SubmissionID": "0a1b", "AccountIDs": ["acc-1"]}`)))

	reopened, ok := filter.ReopenForSequenceFiltering().(journal.SequenceFilteringCapable)
	assert.True(t, ok)
	incrementalFilter := reopened.WithSequenceNumberHigherThan(1).Finalize()

	// act
	entries, maxSeq, err := store.Query(ctx, incrementalFilter)

	// assert
	assert.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, "AmountsAccumulated", entries[0].EventType)
	assert.Equal(t, uint(2), maxSeq)
}

func Test_Query_AppliesOccurredAtBoundaries(t *testing.T) {
	// setup
	ctx := context.Background()
	store := memoryjournal.New()

	early := journalEntryAt(t, "AccountAdded", `{"AccountID": "acc-1"}`,
		time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC))
	late := journalEntryAt(t, "AccountAdded", `{"AccountID": "acc-2"}`,
		time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))

	anyEvent := journal.BuildEventFilter().MatchingAnyEvent()
	assert.NoError(t, store.Append(ctx, anyEvent, 0, early))
	assert.NoError(t, store.Append(ctx, anyEvent, 1, late))

	boundedFilter := journal.BuildEventFilter().
		Matching().
		AnyEventTypeOf("AccountAdded").
		OccurredFrom(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)).
		Finalize()

	// act
	entries, _, err := store.Query(ctx, boundedFilter)

	// assert
	assert.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Contains(t, string(entries[0].PayloadJSON), "acc-2")
}

func Test_SaveSnapshot_PreservesHigherSequence(t *testing.T) {
	// setup
	ctx := context.Background()
	store := memoryjournal.New()
	filter := accountScopedFilter("acc-1")

	newer, buildErr := journal.BuildSnapshot("ledger", filter.Hash(), 10, []byte(`{"state": "newer"}`))
	assert.NoError(t, buildErr)
	older, buildErr := journal.BuildSnapshot("ledger", filter.Hash(), 5, []byte(`{"state": "older"}`))
	assert.NoError(t, buildErr)

	// act
	assert.NoError(t, store.SaveSnapshot(ctx, newer))
	assert.NoError(t, store.SaveSnapshot(ctx, older))

	// assert - the older snapshot must not have replaced the newer one
	loaded, loadErr := store.LoadSnapshot(ctx, "ledger", filter)
	assert.NoError(t, loadErr)
	assert.NotNil(t, loaded)
	assert.Equal(t, uint(10), loaded.SequenceNumber)
	assert.JSONEq(t, `{"state": "newer"}`, string(loaded.Data))
}

func Test_SaveSnapshot_ReturnsError_ForInvalidSnapshot(t *testing.T) {
	// setup
	ctx := context.Background()
	store := memoryjournal.New()

	invalid := journal.Snapshot{ProjectionType: "", FilterHash: "sha256:abc", SequenceNumber: 1, Data: []byte(`{}`)}

	// act
	err := store.SaveSnapshot(ctx, invalid)

	// assert
	assert.ErrorContains(t, err, journal.ErrEmptyProjectionTypeSupplied.Error())
}

func Test_LoadSnapshot_ReturnsNil_WhenNoSnapshotExists(t *testing.T) {
	// setup
	ctx := context.Background()
	store := memoryjournal.New()

	// act
	loaded, err := store.LoadSnapshot(ctx, "ledger", accountScopedFilter("acc-1"))

	// assert
	assert.NoError(t, err)
	assert.Nil(t, loaded)
}

func Test_DeleteSnapshot_IsIdempotent(t *testing.T) {
	// setup
	ctx := context.Background()
	store := memoryjournal.New()
	filter := accountScopedFilter("acc-1")

	snapshot, buildErr := journal.BuildSnapshot("ledger", filter.Hash(), 3, []byte(`{"state": "any"}`))
	assert.NoError(t, buildErr)
	assert.NoError(t, store.SaveSnapshot(ctx, snapshot))

	// act + assert - deleting twice must not fail
	assert.NoError(t, store.DeleteSnapshot(ctx, "ledger", filter))
	assert.NoError(t, store.DeleteSnapshot(ctx, "ledger", filter))

	loaded, loadErr := store.LoadSnapshot(ctx, "ledger", filter)
	assert.NoError(t, loadErr)
	assert.Nil(t, loaded)
}

// accountScopedFilter builds the canonical filter for a single account's scope:
// registration and claim events carry the account id as a scalar property,
// accumulation events carry it inside their AccountIDs array.
func accountScopedFilter(accountID string) journal.Filter {
	return journal.BuildEventFilter().
		Matching().
		AnyEventTypeOf("AccountAdded", "AccumulatedClaimed").
		AndAnyPredicateOf(journal.P("AccountID", accountID)).
		OrMatching().
		AnyEventTypeOf("AmountsAccumulated").
		AndAnyPredicateOf(journal.PAnyElement("AccountIDs", accountID)).
		Finalize()
}

func accountAddedEntry(t *testing.T, accountID string) journal.Entry {
	t.Helper()

	return buildTestEntry(t, "AccountAdded", `{"AccountID": "`+accountID+`"}`)
}

func claimedEntry(t *testing.T, accountID string) journal.Entry {
	t.Helper()

	return buildTestEntry(t, "AccumulatedClaimed", `{"AccountID": "`+accountID+`"}`)
}

func buildTestEntry(t *testing.T, eventType string, payload string) journal.Entry {
	t.Helper()

	return journalEntryAt(t, eventType, payload, time.Now())
}

func journalEntryAt(t *testing.T, eventType string, payload string, occurredAt time.Time) journal.Entry {
	t.Helper()

	entry, err := journal.BuildEntryWithEmptyMetadata(eventType, occurredAt, []byte(payload))
	assert.NoError(t, err)

	return entry
}
