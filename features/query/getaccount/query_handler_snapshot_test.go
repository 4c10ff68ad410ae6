package getaccount_test

import (
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/stretchr/testify/assert"

	"github.com/accrualworks/reward-ledger-go/features/query/getaccount"
	"github.com/accrualworks/reward-ledger-go/journal"
	"github.com/accrualworks/reward-ledger-go/journal/memoryjournal"
	"github.com/accrualworks/reward-ledger-go/ledger"
	"github.com/accrualworks/reward-ledger-go/shell/snapshot"
)

func Test_SnapshotAwareQueryHandler_Handle_SnapshotMiss(t *testing.T) {
	// setup
	ctx, testJournal, cleanup := setupTestEnvironment(t)
	defer cleanup()

	handlers := createAllHandlers(t, testJournal)
	snapshotHandler := setupSnapshotHandler(t, testJournal)
	fakeClock := time.Unix(0, 0).UTC()

	// arrange
	registerTestAccount(ctx, t, handlers, "acc-worker-1", 42, fakeClock)
	accumulateTestDistribution(ctx, t, handlers, []byte{0x01},
		ledger.Distribution{"acc-worker-1": 10}, fakeClock.Add(time.Hour))

	// act
	result, err := snapshotHandler.Handle(ctx, getaccount.BuildQuery("acc-worker-1"))

	// assert
	assert.NoError(t, err, "Snapshot handler should work")
	assert.True(t, result.Exists, "Account should exist")
	assert.Equal(t, ledger.Amount(10), result.Balance, "Should have the accumulated balance")
}

func Test_SnapshotAwareQueryHandler_Handle_SnapshotCreationAndHitWithNoNewEvents(t *testing.T) {
	// setup
	ctx, testJournal, cleanup := setupTestEnvironment(t)
	defer cleanup()

	handlers := createAllHandlers(t, testJournal)
	snapshotHandler := setupSnapshotHandler(t, testJournal)
	fakeClock := time.Unix(0, 0).UTC()

	// arrange
	registerTestAccount(ctx, t, handlers, "acc-worker-1", 42, fakeClock)

	// act / assert

	// First query: Should miss the snapshot, fall back to the base handler
	// and save the result as the initial snapshot
	query := getaccount.BuildQuery("acc-worker-1")

	result, err := snapshotHandler.Handle(ctx, query)
	assert.NoError(t, err, "First query should work")
	assert.Equal(t, ledger.WorkCounter(42), result.Worked, "Should carry the registered work counter")

	// Verify that a snapshot was created in the journal
	filter := getaccount.BuildEventFilter(query.AccountID)
	savedSnapshot, err := testJournal.LoadSnapshot(ctx, query.SnapshotType(), filter)
	assert.NoError(t, err, "Should be able to load saved snapshot")
	assert.NotNil(t, savedSnapshot, "Snapshot should exist after first query")

	// Second query: Should hit the snapshot (no new events since last query)
	result2, err := snapshotHandler.Handle(ctx, query)
	assert.NoError(t, err, "Second query should work")
	assert.Equal(t, result.SequenceNumber, result2.SequenceNumber, "Both results should have same sequence number")
	assert.Equal(t, result, result2, "Results should be identical")
}

func Test_SnapshotAwareQueryHandler_Handle_IncrementalUpdateWithNewEvents(t *testing.T) {
	// setup
	ctx, testJournal, cleanup := setupTestEnvironment(t)
	defer cleanup()

	handlers := createAllHandlers(t, testJournal)
	snapshotHandler := setupSnapshotHandler(t, testJournal)
	fakeClock := time.Unix(0, 0).UTC()

	// arrange: register and accumulate once (sequence=1 and sequence=2)
	registerTestAccount(ctx, t, handlers, "acc-worker-1", 42, fakeClock)
	accumulateTestDistribution(ctx, t, handlers, []byte{0x01},
		ledger.Distribution{"acc-worker-1": 10}, fakeClock.Add(time.Hour))

	// act / assert

	// First query: Should miss the snapshot and save one at sequence=2
	query := getaccount.BuildQuery("acc-worker-1")

	result1, err := snapshotHandler.Handle(ctx, query)
	assert.NoError(t, err, "First query should work")
	assert.Equal(t, ledger.Amount(10), result1.Balance, "Should have the first distribution's amount")
	assert.Equal(t, uint(2), result1.SequenceNumber, "Should have sequence=2")

	// arrange: accumulate a second distribution (sequence=3)
	accumulateTestDistribution(ctx, t, handlers, []byte{0x02},
		ledger.Distribution{"acc-worker-1": 5}, fakeClock.Add(2*time.Hour))

	// Second query: Should hit the snapshot and fold only the new event
	result2, err := snapshotHandler.Handle(ctx, query)
	assert.NoError(t, err, "Second query should work")
	assert.Equal(t, ledger.Amount(15), result2.Balance, "Should have both distributions after the incremental update")
	assert.Equal(t, uint(3), result2.SequenceNumber, "Should have sequence=3")

	// Verify the snapshot was updated with the incremental changes
	filter := getaccount.BuildEventFilter(query.AccountID)
	updatedSnapshot, err := testJournal.LoadSnapshot(ctx, query.SnapshotType(), filter)
	assert.NoError(t, err, "Should be able to load updated snapshot")
	assert.NotNil(t, updatedSnapshot, "Updated snapshot should exist")
	assert.Equal(t, uint(3), updatedSnapshot.SequenceNumber, "Updated snapshot should have sequence=3")

	var snapshotData getaccount.AccountView
	err = jsoniter.ConfigFastest.Unmarshal(updatedSnapshot.Data, &snapshotData)
	assert.NoError(t, err, "Should unmarshal snapshot data")
	assert.Equal(t, ledger.Amount(15), snapshotData.Balance, "Snapshot should contain the updated balance")
}

func Test_SnapshotAwareQueryHandler_Handle_KeepsSnapshotsOfDifferentAccountsApart(t *testing.T) {
	// setup
	ctx, testJournal, cleanup := setupTestEnvironment(t)
	defer cleanup()

	handlers := createAllHandlers(t, testJournal)
	snapshotHandler := setupSnapshotHandler(t, testJournal)
	fakeClock := time.Unix(0, 0).UTC()

	// arrange
	registerTestAccount(ctx, t, handlers, "acc-worker-1", 42, fakeClock)
	registerTestAccount(ctx, t, handlers, "acc-worker-2", 7, fakeClock.Add(time.Minute))

	queryOne := getaccount.BuildQuery("acc-worker-1")
	queryTwo := getaccount.BuildQuery("acc-worker-2")

	// act
	resultOne, err := snapshotHandler.Handle(ctx, queryOne)
	assert.NoError(t, err, "First account query should work")

	resultTwo, err := snapshotHandler.Handle(ctx, queryTwo)
	assert.NoError(t, err, "Second account query should work")

	// assert
	assert.NotEqual(t, queryOne.SnapshotType(), queryTwo.SnapshotType(),
		"Snapshot types should include the account id")
	assert.Equal(t, ledger.WorkCounter(42), resultOne.Worked, "First view should belong to acc-worker-1")
	assert.Equal(t, ledger.WorkCounter(7), resultTwo.Worked, "Second view should belong to acc-worker-2")

	snapshotOne, err := testJournal.LoadSnapshot(ctx, queryOne.SnapshotType(), getaccount.BuildEventFilter(queryOne.AccountID))
	assert.NoError(t, err, "Should load the first account's snapshot")
	assert.NotNil(t, snapshotOne, "The first account should have its own snapshot")

	snapshotTwo, err := testJournal.LoadSnapshot(ctx, queryTwo.SnapshotType(), getaccount.BuildEventFilter(queryTwo.AccountID))
	assert.NoError(t, err, "Should load the second account's snapshot")
	assert.NotNil(t, snapshotTwo, "The second account should have its own snapshot")
}

// Test helpers

func setupSnapshotHandler(
	t *testing.T,
	testJournal *memoryjournal.Journal,
) *snapshot.GenericSnapshotWrapper[getaccount.Query, getaccount.AccountView] {
	t.Helper()

	baseHandler, err := getaccount.NewQueryHandler(testJournal)
	assert.NoError(t, err, "error in arranging test data")

	snapshotHandler, err := snapshot.NewGenericSnapshotWrapper[
		getaccount.Query,
		getaccount.AccountView,
	](
		baseHandler,
		getaccount.Project,
		func(q getaccount.Query) journal.Filter {
			return getaccount.BuildEventFilter(q.AccountID)
		},
	)
	assert.NoError(t, err, "Should create snapshot-aware query handler")

	return snapshotHandler
}
