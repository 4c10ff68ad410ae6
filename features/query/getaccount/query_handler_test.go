package getaccount_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/accrualworks/reward-ledger-go/features/command/accumulatedistribution"
	"github.com/accrualworks/reward-ledger-go/features/command/claimaccumulated"
	"github.com/accrualworks/reward-ledger-go/features/command/registeraccount"
	"github.com/accrualworks/reward-ledger-go/features/query/getaccount"
	"github.com/accrualworks/reward-ledger-go/journal"
	"github.com/accrualworks/reward-ledger-go/journal/memoryjournal"
	"github.com/accrualworks/reward-ledger-go/ledger"
)

type testHandlers struct {
	registerAccount registeraccount.CommandHandler
	accumulate      accumulatedistribution.CommandHandler
	claim           claimaccumulated.CommandHandler
	query           getaccount.QueryHandler
}

func Test_QueryHandler_Handle_ReturnsRegisteredAccountWithAccumulatedBalance(t *testing.T) {
	// setup
	ctx, testJournal, cleanup := setupTestEnvironment(t)
	defer cleanup()

	handlers := createAllHandlers(t, testJournal)
	fakeClock := time.Unix(0, 0).UTC()

	// arrange
	registerTestAccount(ctx, t, handlers, "acc-worker-1", 42, fakeClock)
	accumulateTestDistribution(ctx, t, handlers, []byte{0x01},
		ledger.Distribution{"acc-worker-1": 10, "acc-worker-2": 5}, fakeClock.Add(time.Hour))
	accumulateTestDistribution(ctx, t, handlers, []byte{0x02},
		ledger.Distribution{"acc-worker-1": 3}, fakeClock.Add(2*time.Hour))

	// act
	result, err := handlers.query.Handle(ctx, getaccount.BuildQuery("acc-worker-1"))

	// assert
	assert.NoError(t, err, "Query should succeed")
	assert.True(t, result.Exists, "Account should exist")
	assert.Equal(t, ledger.Amount(13), result.Balance, "Should have accumulated both distributions")
	assert.Equal(t, ledger.WorkCounter(42), result.Worked, "Should carry the registered work counter")
	assert.Equal(t, uint(3), result.SequenceNumber, "Should report the scope's max sequence number")
}

func Test_QueryHandler_Handle_ReturnsAccountCreatedThroughAccumulationAlone(t *testing.T) {
	// setup
	ctx, testJournal, cleanup := setupTestEnvironment(t)
	defer cleanup()

	handlers := createAllHandlers(t, testJournal)
	fakeClock := time.Unix(0, 0).UTC()

	// arrange - the account was never registered, a distribution created it
	accumulateTestDistribution(ctx, t, handlers, []byte{0x01},
		ledger.Distribution{"acc-worker-1": 25}, fakeClock.Add(time.Hour))

	// act
	result, err := handlers.query.Handle(ctx, getaccount.BuildQuery("acc-worker-1"))

	// assert
	assert.NoError(t, err, "Query should succeed")
	assert.True(t, result.Exists, "Account should exist through accumulation alone")
	assert.Equal(t, ledger.Amount(25), result.Balance, "Should have the accumulated balance")
	assert.Equal(t, ledger.WorkCounter(0), result.Worked, "Should have a zero work counter without registration")
}

func Test_QueryHandler_Handle_ReturnsAbsentView_WhenAccountWasNeverSeen(t *testing.T) {
	// setup
	ctx, testJournal, cleanup := setupTestEnvironment(t)
	defer cleanup()

	handlers := createAllHandlers(t, testJournal)
	fakeClock := time.Unix(0, 0).UTC()

	// arrange - some unrelated history
	registerTestAccount(ctx, t, handlers, "acc-worker-2", 7, fakeClock)

	// act
	result, err := handlers.query.Handle(ctx, getaccount.BuildQuery("acc-worker-1"))

	// assert
	assert.NoError(t, err, "Query should succeed")
	assert.False(t, result.Exists, "Account should not exist")
	assert.Equal(t, ledger.Amount(0), result.Balance, "Absent accounts should report a zero balance")
	assert.Equal(t, ledger.AccountID("acc-worker-1"), result.AccountID, "The view should carry the queried account id")
}

func Test_QueryHandler_Handle_ReturnsAbsentView_AfterClaim(t *testing.T) {
	// setup
	ctx, testJournal, cleanup := setupTestEnvironment(t)
	defer cleanup()

	handlers := createAllHandlers(t, testJournal)
	fakeClock := time.Unix(0, 0).UTC()

	// arrange
	registerTestAccount(ctx, t, handlers, "acc-worker-1", 42, fakeClock)
	accumulateTestDistribution(ctx, t, handlers, []byte{0x01},
		ledger.Distribution{"acc-worker-1": 10}, fakeClock.Add(time.Hour))

	claimCmd, buildErr := claimaccumulated.BuildCommand("acc-worker-1", fakeClock.Add(2*time.Hour))
	assert.NoError(t, buildErr, "error in arranging test data")
	_, err := handlers.claim.Handle(ctx, claimCmd)
	assert.NoError(t, err, "error in arranging test data")

	// act
	result, err := handlers.query.Handle(ctx, getaccount.BuildQuery("acc-worker-1"))

	// assert
	assert.NoError(t, err, "Query should succeed")
	assert.False(t, result.Exists, "Account should be absent after its accumulation was claimed")
	assert.Equal(t, ledger.Amount(0), result.Balance, "Claimed accounts should report a zero balance")
}

func Test_QueryHandler_Handle_TracksOnlyTheQueriedAccountInSharedDistributions(t *testing.T) {
	// setup
	ctx, testJournal, cleanup := setupTestEnvironment(t)
	defer cleanup()

	handlers := createAllHandlers(t, testJournal)
	fakeClock := time.Unix(0, 0).UTC()

	// arrange
	registerTestAccount(ctx, t, handlers, "acc-worker-2", 7, fakeClock)
	accumulateTestDistribution(ctx, t, handlers, []byte{0x01},
		ledger.Distribution{"acc-worker-1": 7, "acc-worker-2": 9}, fakeClock.Add(time.Hour))

	// act
	resultOne, err := handlers.query.Handle(ctx, getaccount.BuildQuery("acc-worker-1"))
	assert.NoError(t, err, "Query should succeed")

	resultTwo, err := handlers.query.Handle(ctx, getaccount.BuildQuery("acc-worker-2"))
	assert.NoError(t, err, "Query should succeed")

	// assert
	assert.Equal(t, ledger.Amount(7), resultOne.Balance, "Should fold only acc-worker-1's share")
	assert.Equal(t, ledger.Amount(9), resultTwo.Balance, "Should fold only acc-worker-2's share")
	assert.Equal(t, ledger.WorkCounter(7), resultTwo.Worked, "Registration details should not leak between accounts")
}

func Test_QueryHandler_Handle_WithStrongConsistency_WorksCorrectly(t *testing.T) {
	// setup
	ctx, testJournal, cleanup := setupTestEnvironment(t)
	defer cleanup()

	ctx = journal.WithStrongConsistency(ctx)
	handlers := createAllHandlers(t, testJournal)

	// act
	result, err := handlers.query.Handle(ctx, getaccount.BuildQuery("acc-worker-1"))

	// assert
	assert.NoError(t, err, "Query should succeed with strong consistency")
	assert.False(t, result.Exists, "Should return an absent view for an empty journal")
}

// Test helpers

func setupTestEnvironment(t *testing.T) (context.Context, *memoryjournal.Journal, func()) {
	t.Helper()

	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	testJournal := memoryjournal.New()

	cleanup := func() {
		cancel()
	}

	return ctxWithTimeout, testJournal, cleanup
}

func createAllHandlers(t *testing.T, testJournal *memoryjournal.Journal) testHandlers {
	t.Helper()

	queryHandler, err := getaccount.NewQueryHandler(testJournal)
	assert.NoError(t, err, "error in arranging test data")

	return testHandlers{
		registerAccount: registeraccount.NewCommandHandler(testJournal),
		accumulate:      accumulatedistribution.NewCommandHandler(testJournal),
		claim:           claimaccumulated.NewCommandHandler(testJournal),
		query:           queryHandler,
	}
}

func registerTestAccount(
	ctx context.Context,
	t *testing.T,
	handlers testHandlers,
	accountID ledger.AccountID,
	worked ledger.WorkCounter,
	occurredAt time.Time,
) {
	t.Helper()

	command, err := registeraccount.BuildCommand(accountID, worked, occurredAt)
	assert.NoError(t, err, "error in arranging test data")

	_, err = handlers.registerAccount.Handle(ctx, command)
	assert.NoError(t, err, "error in arranging test data")
}

func accumulateTestDistribution(
	ctx context.Context,
	t *testing.T,
	handlers testHandlers,
	submissionID ledger.SubmissionID,
	distribution ledger.Distribution,
	occurredAt time.Time,
) {
	t.Helper()

	command, err := accumulatedistribution.BuildCommand(submissionID, distribution, occurredAt)
	assert.NoError(t, err, "error in arranging test data")

	_, err = handlers.accumulate.Handle(ctx, command)
	assert.NoError(t, err, "error in arranging test data")
}
