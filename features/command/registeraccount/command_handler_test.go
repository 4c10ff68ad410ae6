package registeraccount_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/accrualworks/reward-ledger-go/features/command/registeraccount"
	"github.com/accrualworks/reward-ledger-go/journal"
	"github.com/accrualworks/reward-ledger-go/journal/memoryjournal"
	"github.com/accrualworks/reward-ledger-go/ledger"
	"github.com/accrualworks/reward-ledger-go/shell"
)

func Test_CommandHandler_Handle_Success(t *testing.T) {
	// setup
	ctx, testJournal, cleanup := setupTestEnvironment(t)
	ctx = journal.WithStrongConsistency(ctx)
	defer cleanup()

	handler := registeraccount.NewCommandHandler(testJournal)

	fakeClock := time.Unix(0, 0).UTC()

	// act
	command, buildErr := registeraccount.BuildCommand("acc-worker-1", 42, fakeClock.Add(time.Hour))
	assert.NoError(t, buildErr, "Should build the command")

	result, err := handler.Handle(ctx, command)

	// assert
	assert.NoError(t, err, "Should successfully register the account")
	assertNonIdempotentResult(t, result)
	verifyEventsPersisted(ctx, t, testJournal, "acc-worker-1", 1, ledger.AccountAddedEventType)
}

func Test_CommandHandler_Handle_Fails_WhenAccountAlreadyRegistered(t *testing.T) {
	// setup
	ctx, testJournal, cleanup := setupTestEnvironment(t)
	ctx = journal.WithStrongConsistency(ctx)
	defer cleanup()

	handler := registeraccount.NewCommandHandler(testJournal)

	fakeClock := time.Unix(0, 0).UTC()

	// arrange
	command, buildErr := registeraccount.BuildCommand("acc-worker-1", 42, fakeClock.Add(time.Hour))
	assert.NoError(t, buildErr, "Should build the command")

	_, err := handler.Handle(ctx, command)
	assert.NoError(t, err, "Should successfully register the account the first time")

	// act
	_, err = handler.Handle(ctx, command)

	// assert
	assert.ErrorIs(t, err, ledger.ErrAccountAlreadyExists)
	verifyEventsPersisted(ctx, t, testJournal, "acc-worker-1", 1, ledger.AccountAddedEventType)
}

func Test_CommandHandler_Handle_Fails_WhenAccountExistsThroughAccumulationAlone(t *testing.T) {
	// setup
	ctx, testJournal, cleanup := setupTestEnvironment(t)
	ctx = journal.WithStrongConsistency(ctx)
	defer cleanup()

	handler := registeraccount.NewCommandHandler(testJournal)

	fakeClock := time.Unix(0, 0).UTC()

	// arrange - the account was never registered, a distribution created it
	givenEventWasAppended(t, ctx, testJournal,
		ledger.BuildAmountsAccumulated([]byte{0x01}, ledger.Distribution{"acc-worker-1": 10}, fakeClock.Add(time.Hour)))

	// act
	command, buildErr := registeraccount.BuildCommand("acc-worker-1", 42, fakeClock.Add(2*time.Hour))
	assert.NoError(t, buildErr, "Should build the command")

	_, err := handler.Handle(ctx, command)

	// assert
	assert.ErrorIs(t, err, ledger.ErrAccountAlreadyExists)
	verifyEventsPersisted(ctx, t, testJournal, "acc-worker-1", 1, ledger.AmountsAccumulatedEventType)
}

func Test_CommandHandler_Handle_Success_AfterClaimFreedTheAccountID(t *testing.T) {
	// setup
	ctx, testJournal, cleanup := setupTestEnvironment(t)
	ctx = journal.WithStrongConsistency(ctx)
	defer cleanup()

	handler := registeraccount.NewCommandHandler(testJournal)

	fakeClock := time.Unix(0, 0).UTC()

	// arrange
	command, buildErr := registeraccount.BuildCommand("acc-worker-1", 42, fakeClock.Add(time.Hour))
	assert.NoError(t, buildErr, "Should build the command")

	_, err := handler.Handle(ctx, command)
	assert.NoError(t, err, "Should successfully register the account the first time")

	givenEventWasAppended(t, ctx, testJournal,
		ledger.BuildAccumulatedClaimed("acc-worker-1", ledger.AccountRecord{Balance: 0, Worked: 42}, fakeClock.Add(2*time.Hour)))

	// act
	reRegisterCmd, buildErr := registeraccount.BuildCommand("acc-worker-1", 0, fakeClock.Add(3*time.Hour))
	assert.NoError(t, buildErr, "Should build the command")

	result, err := handler.Handle(ctx, reRegisterCmd)

	// assert
	assert.NoError(t, err, "Should successfully register the account again after a claim")
	assertNonIdempotentResult(t, result)
	verifyEventsPersisted(ctx, t, testJournal, "acc-worker-1", 3, ledger.AccountAddedEventType)
}

func Test_CommandHandler_Handle_Success_WithRetryOptions(t *testing.T) {
	// setup
	ctx, testJournal, cleanup := setupTestEnvironment(t)
	ctx = journal.WithStrongConsistency(ctx)
	defer cleanup()

	handler := registeraccount.NewCommandHandler(
		testJournal,
		registeraccount.WithRetryOptions(
			shell.WithMaxAttempts(2),
			shell.WithBaseDelay(time.Millisecond),
		),
	)

	fakeClock := time.Unix(0, 0).UTC()

	// act
	command, buildErr := registeraccount.BuildCommand("acc-worker-1", 42, fakeClock.Add(time.Hour))
	assert.NoError(t, buildErr, "Should build the command")

	result, err := handler.Handle(ctx, command)

	// assert
	assert.NoError(t, err, "Should successfully register the account")
	assert.Equal(t, 1, result.RetryAttempts, "Should succeed on the first attempt")
	verifyEventsPersisted(ctx, t, testJournal, "acc-worker-1", 1, ledger.AccountAddedEventType)
}

func Test_BuildCommand_Fails_WhenAccountIDIsEmpty(t *testing.T) {
	// act
	_, err := registeraccount.BuildCommand("", 42, time.Now())

	// assert
	assert.ErrorIs(t, err, registeraccount.ErrEmptyAccountID)
}

// Test helper functions

func setupTestEnvironment(t *testing.T) (context.Context, *memoryjournal.Journal, func()) {
	t.Helper()

	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	testJournal := memoryjournal.New()

	cleanup := func() {
		cancel()
	}

	return ctxWithTimeout, testJournal, cleanup
}

func givenEventWasAppended(t *testing.T, ctx context.Context, testJournal *memoryjournal.Journal, event ledger.Event) {
	t.Helper()

	filter := journal.BuildEventFilter().MatchingAnyEvent()

	_, maxSequenceNumber, err := testJournal.Query(ctx, filter)
	assert.NoError(t, err, "error in arranging test data")

	entry, err := shell.EntryWithEmptyMetadataFrom(event)
	assert.NoError(t, err, "error in arranging test data")

	err = testJournal.Append(ctx, filter, maxSequenceNumber, entry)
	assert.NoError(t, err, "error in arranging test data")
}

func verifyEventsPersisted(
	ctx context.Context,
	t *testing.T,
	testJournal *memoryjournal.Journal,
	accountID ledger.AccountID,
	expectedCount int,
	expectedLastEventType string,
) {
	t.Helper()

	filter := registeraccount.BuildEventFilter(accountID)

	entries, _, err := testJournal.Query(ctx, filter)
	assert.NoError(t, err, "Should query entries successfully")

	assert.Len(t, entries, expectedCount, "unexpected number of persisted entries")

	if len(entries) > 0 {
		lastEntry := entries[len(entries)-1]
		assert.Equal(t, expectedLastEventType, lastEntry.EventType, "unexpected last event type")
	}
}

func assertNonIdempotentResult(t *testing.T, result shell.HandlerResult) {
	t.Helper()
	assert.False(t, result.Idempotent, "Operation should not be idempotent")
}
