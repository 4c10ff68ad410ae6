package getallaccounts_test

import (
	"context"
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/stretchr/testify/assert"

	"github.com/accrualworks/reward-ledger-go/features/command/accumulatedistribution"
	"github.com/accrualworks/reward-ledger-go/features/command/registeraccount"
	"github.com/accrualworks/reward-ledger-go/features/query/getallaccounts"
	"github.com/accrualworks/reward-ledger-go/journal"
	"github.com/accrualworks/reward-ledger-go/journal/memoryjournal"
	"github.com/accrualworks/reward-ledger-go/ledger"
	"github.com/accrualworks/reward-ledger-go/shell/snapshot"
	. "github.com/accrualworks/reward-ledger-go/testutil/postgresjournal/helper" //nolint:revive
)

func Test_SnapshotAwareQueryHandler_Handle_SnapshotMiss(t *testing.T) {
	// Setup test environment with metrics spy
	ctx, snapshotHandler, metricsCollector, testJournal := setupSnapshotTestWithMetrics(t)

	// Create test data (1 account with an accumulation)
	createFirstTestAccount(ctx, t, testJournal)
	query := getallaccounts.BuildQuery()

	// Reset metrics to only capture the snapshot handler behavior (no snapshot exists)
	metricsCollector.Reset()

	// Act: Query using snapshot handler (should miss snapshot and fall back to base handler)
	result, err := snapshotHandler.Handle(ctx, query)
	assert.NoError(t, err, "Snapshot handler should work")
	assert.Equal(t, 1, result.Count, "Should have 1 account")

	// Assert: Should record snapshot miss metrics (empty load, then fallback to base handler)
	assertSnapshotMissMetrics(t, metricsCollector)
}

func Test_SnapshotAwareQueryHandler_Handle_SnapshotCreationAndHitWithNoNewEvents(t *testing.T) {
	// Setup test environment with metrics spy
	ctx, snapshotHandler, metricsCollector, testJournal := setupSnapshotTestWithMetrics(t)

	// Create test data (1 account with an accumulation)
	createFirstTestAccount(ctx, t, testJournal)
	query := getallaccounts.BuildQuery()

	// Reset metrics to capture the first query behavior (no snapshot exists)
	metricsCollector.Reset()

	// First query: Should miss snapshot and fall back to base handler
	// If wrapper works correctly, it should create a snapshot after a successful fallback
	result, err := snapshotHandler.Handle(ctx, query)
	assert.NoError(t, err, "First query should work")
	assert.Equal(t, 1, result.Count, "Should have 1 account")

	// Assert: The first query should record snapshot miss metrics
	assertSnapshotMissMetrics(t, metricsCollector)

	// Verify that a snapshot was created in the journal
	filter := getallaccounts.BuildEventFilter()
	savedSnapshot, err := testJournal.LoadSnapshot(ctx, snapshotHandler.BuildSnapshotType(query), filter)
	assert.NoError(t, err, "Should be able to load saved snapshot")
	assert.NotNil(t, savedSnapshot, "Snapshot should exist after first query")

	// Reset metrics to capture second query behavior
	metricsCollector.Reset()

	// Second query: Should hit the snapshot created by the first query
	hitResult, err := snapshotHandler.Handle(ctx, query)
	assert.NoError(t, err, "Second query should work")
	assert.Equal(t, 1, hitResult.Count, "Should have 1 account")
	assert.Equal(t, result, hitResult, "Results should be identical")

	// Assert: The second query should record snapshot hit metrics
	assertSnapshotHitMetrics(t, metricsCollector)
}

func Test_SnapshotAwareQueryHandler_Handle_SnapshotHitWithNewEvents(t *testing.T) {
	// Setup test environment with metrics spy
	ctx, snapshotHandler, metricsCollector, testJournal := setupSnapshotTestWithMetrics(t)

	// Create the first test account (register + accumulate, sequence=2)
	createFirstTestAccount(ctx, t, testJournal)
	query := getallaccounts.BuildQuery()

	// First query: Should miss snapshot and fall back to base handler, then create snapshot
	result1, err := snapshotHandler.Handle(ctx, query)
	assert.NoError(t, err, "First query should work")
	assert.Equal(t, 1, result1.Count, "Should have 1 account initially")
	assert.Equal(t, uint(2), result1.SequenceNumber, "Should have sequence=2 (register+accumulate)")

	// Verify that a snapshot was created in the journal
	filter := getallaccounts.BuildEventFilter()
	savedSnapshot, err := testJournal.LoadSnapshot(ctx, snapshotHandler.BuildSnapshotType(query), filter)
	assert.NoError(t, err, "Should be able to load saved snapshot")
	assert.NotNil(t, savedSnapshot, "Snapshot should exist after first query")
	assert.Equal(t, uint(2), savedSnapshot.SequenceNumber, "Snapshot should have sequence=2")

	// Create a SECOND account (register + accumulate, sequence=4)
	createSecondTestAccount(ctx, t, testJournal)

	// Reset metrics to capture snapshot hit behavior with incremental events
	metricsCollector.Reset()

	// Second query: Should hit snapshot and process incremental events (new account)
	result2, err := snapshotHandler.Handle(ctx, query)
	assert.NoError(t, err, "Second query should work")
	assert.Equal(t, 2, result2.Count, "Should have 2 accounts after incremental processing")
	assert.Equal(t, uint(4), result2.SequenceNumber, "Should have sequence=4 after processing new events")

	// Verify both accounts with their balances (sorted by account id)
	assert.Equal(t, ledger.AccountID("acc-worker-1"), result2.Accounts[0].AccountID, "First account should still be present")
	assert.Equal(t, ledger.Amount(5), result2.Accounts[0].Balance, "First account should keep its balance")
	assert.Equal(t, ledger.AccountID("acc-worker-2"), result2.Accounts[1].AccountID, "Second account should appear")
	assert.Equal(t, ledger.Amount(9), result2.Accounts[1].Balance, "Second account should have its balance")

	// Assert: A second query should record snapshot hit metrics with incremental processing
	assertSnapshotHitMetrics(t, metricsCollector)

	// Verify that the snapshot was updated with new incremental data
	updatedSnapshot, err := testJournal.LoadSnapshot(ctx, snapshotHandler.BuildSnapshotType(query), filter)
	assert.NoError(t, err, "Should be able to load updated snapshot")
	assert.NotNil(t, updatedSnapshot, "Updated snapshot should exist")
	assert.Equal(t, uint(4), updatedSnapshot.SequenceNumber, "Updated snapshot should have sequence=4")

	// Deserialize and verify the updated snapshot contains incremental data (2 accounts)
	var updatedProjection getallaccounts.AllAccounts
	err = jsoniter.ConfigFastest.Unmarshal(updatedSnapshot.Data, &updatedProjection)
	assert.NoError(t, err, "Should be able to unmarshal updated snapshot data")
	assert.Equal(t, 2, updatedProjection.Count, "Updated snapshot should contain 2 accounts")
	assert.Equal(t, uint(4), updatedProjection.SequenceNumber, "Updated snapshot projection should have sequence=4")
}

// Helper function to set up the test environment with metrics spy.
func setupSnapshotTestWithMetrics(t *testing.T) (context.Context, *snapshot.GenericSnapshotWrapper[getallaccounts.Query, getallaccounts.AllAccounts], *MetricsCollectorSpy, *memoryjournal.Journal) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	metricsCollector := NewMetricsCollectorSpy(true)
	testJournal := memoryjournal.New()

	// Create the base handler with metrics spy
	baseHandler, err := getallaccounts.NewQueryHandler(
		testJournal,
		getallaccounts.WithMetrics(metricsCollector),
	)
	assert.NoError(t, err, "Should create base query handler with metrics")

	snapshotHandler, err := snapshot.NewGenericSnapshotWrapper[
		getallaccounts.Query,
		getallaccounts.AllAccounts,
	](
		baseHandler,
		getallaccounts.Project,
		func(_ getallaccounts.Query) journal.Filter {
			return getallaccounts.BuildEventFilter()
		},
	)
	assert.NoError(t, err, "Should create snapshot-aware query handler")

	return ctx, snapshotHandler, metricsCollector, testJournal
}

// Helper function to create the first test account (register + accumulate a distribution).
func createFirstTestAccount(ctx context.Context, t *testing.T, testJournal *memoryjournal.Journal) {
	t.Helper()

	fakeClock := time.Unix(0, 0).UTC()

	registerCmd, err := registeraccount.BuildCommand("acc-worker-1", 10, fakeClock)
	assert.NoError(t, err, "error in arranging test data")
	_, err = registeraccount.NewCommandHandler(testJournal).Handle(ctx, registerCmd)
	assert.NoError(t, err, "Should register account")

	accumulateCmd, err := accumulatedistribution.BuildCommand(
		[]byte{0x01}, ledger.Distribution{"acc-worker-1": 5}, fakeClock.Add(time.Minute))
	assert.NoError(t, err, "error in arranging test data")
	_, err = accumulatedistribution.NewCommandHandler(testJournal).Handle(ctx, accumulateCmd)
	assert.NoError(t, err, "Should accumulate distribution")
}

// Helper function to create a second test account for testing incremental snapshot updates.
func createSecondTestAccount(ctx context.Context, t *testing.T, testJournal *memoryjournal.Journal) {
	t.Helper()

	fakeClock := time.Unix(1, 0).UTC() // Slightly different timestamp

	registerCmd, err := registeraccount.BuildCommand("acc-worker-2", 20, fakeClock)
	assert.NoError(t, err, "error in arranging test data")
	_, err = registeraccount.NewCommandHandler(testJournal).Handle(ctx, registerCmd)
	assert.NoError(t, err, "Should register second account")

	accumulateCmd, err := accumulatedistribution.BuildCommand(
		[]byte{0x02}, ledger.Distribution{"acc-worker-2": 9}, fakeClock.Add(time.Minute))
	assert.NoError(t, err, "error in arranging test data")
	_, err = accumulatedistribution.NewCommandHandler(testJournal).Handle(ctx, accumulateCmd)
	assert.NoError(t, err, "Should accumulate second distribution")
}

// Helper function to assert snapshot miss metrics.
func assertSnapshotMissMetrics(t *testing.T, metricsCollector *MetricsCollectorSpy) {
	t.Helper()

	componentRecords := getComponentMetrics(metricsCollector)

	// We should have 5 component records: snapshot_load, query, unmarshal, projection, snapshot_save
	assert.Len(t, componentRecords, 5, "should record exactly 5 component metrics for snapshot miss")

	// Check for expected components with the correct status
	expectedComponents := map[string]string{
		"snapshot_load": "success", // Load succeeds but finds no snapshot
		"query":         "success", // Fallback to base handler
		"unmarshal":     "success", // Fallback to base handler
		"projection":    "success", // Fallback to base handler
		"snapshot_save": "success", // Save the initial snapshot after fallback
	}

	assertComponentMetrics(t, componentRecords, expectedComponents)
}

// Helper function to assert snapshot hit metrics.
func assertSnapshotHitMetrics(t *testing.T, metricsCollector *MetricsCollectorSpy) {
	t.Helper()

	componentRecords := getComponentMetrics(metricsCollector)

	// We should have 6 snapshot hit parts: all snapshot operations succeed, including snapshot save
	assert.Len(t, componentRecords, 6, "should record exactly 6 component metrics for snapshot hit")

	// Check for snapshot hit components with success status
	expectedComponents := map[string]string{
		"snapshot_load":          "success", // Snapshot hit
		"incremental_query":      "success", // Incremental query execution
		"unmarshal":              "success", // Incremental events unmarshal
		"snapshot_deserialize":   "success", // Snapshot data deserialization
		"incremental_projection": "success", // Incremental projection
		"snapshot_save":          "success", // Save the updated snapshot with incremental changes
	}

	assertComponentMetrics(t, componentRecords, expectedComponents)

	// Verify we DON'T have fallback components (query, projection) which would indicate fallback to base handler
	for _, record := range componentRecords {
		component := record.Labels["component"]
		assert.NotEqual(t, "query", component, "should NOT record base handler query component on snapshot hit")
		assert.NotEqual(t, "projection", component, "should NOT record base handler projection component on snapshot hit")
	}
}

// Helper function to extract component metrics from spy records.
func getComponentMetrics(metricsCollector *MetricsCollectorSpy) []SpyDurationRecord {
	durationRecords := metricsCollector.GetDurationRecords()
	componentRecords := make([]SpyDurationRecord, 0)
	for _, record := range durationRecords {
		if record.Metric == "queryhandler_component_duration_seconds" {
			componentRecords = append(componentRecords, record)
		}
	}
	return componentRecords
}

// Helper function to assert component metrics match expected components and statuses.
func assertComponentMetrics(t *testing.T, componentRecords []SpyDurationRecord, expectedComponents map[string]string) {
	t.Helper()

	foundComponents := make(map[string]bool)

	for _, record := range componentRecords {
		component := record.Labels["component"]
		status := record.Labels["status"]

		expectedStatus, exists := expectedComponents[component]
		if !exists {
			t.Errorf("Unexpected component: %s", component)
			continue
		}

		assert.Equal(t, expectedStatus, status, "component %s should have status %s", component, expectedStatus)
		foundComponents[component] = true
	}

	// Verify all expected components were found
	for component := range expectedComponents {
		assert.True(t, foundComponents[component], "should record %s component", component)
	}
}
