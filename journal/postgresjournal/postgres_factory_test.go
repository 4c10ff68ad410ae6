package postgresjournal_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq" // postgres driver
	"github.com/stretchr/testify/assert"

	"github.com/accrualworks/reward-ledger-go/journal"
	"github.com/accrualworks/reward-ledger-go/journal/postgresjournal"
	"github.com/accrualworks/reward-ledger-go/shell/config"
	. "github.com/accrualworks/reward-ledger-go/testutil/postgresjournal/helper"                 //nolint:revive
	. "github.com/accrualworks/reward-ledger-go/testutil/postgresjournal/helper/postgreswrapper" //nolint:revive
)

func Test_FactoryFunctions_NewJournal_ShouldPanic_WithUnsupportedAdapterType(t *testing.T) {
	// Save the original env var
	originalAdapterType := os.Getenv("ADAPTER_TYPE")
	defer func() {
		if originalAdapterType == "" {
			err := os.Unsetenv("ADAPTER_TYPE")
			assert.NoError(t, err)
		} else {
			err := os.Setenv("ADAPTER_TYPE", originalAdapterType)
			assert.NoError(t, err)
		}
	}()

	// Set an unsupported adapter type
	err := os.Setenv("ADAPTER_TYPE", "unsupported")
	assert.NoError(t, err)

	assert.Panics(t, func() {
		createErr := TryCreateJournalWithTableName(t, "events")
		assert.NoError(t, createErr)
	})
}

func Test_FactoryFunctions_NewJournalWithTableName_ShouldPanic_WithUnsupportedAdapterType(t *testing.T) {
	// Save the original env var
	originalAdapterType := os.Getenv("ADAPTER_TYPE")
	defer func() {
		if originalAdapterType == "" {
			err := os.Unsetenv("ADAPTER_TYPE")
			assert.NoError(t, err)
		} else {
			err := os.Setenv("ADAPTER_TYPE", originalAdapterType)
			assert.NoError(t, err)
		}
	}()

	// Set an unsupported adapter type
	err := os.Setenv("ADAPTER_TYPE", "unsupported")
	assert.NoError(t, err)

	assert.Panics(t, func() {
		createErr := TryCreateJournalWithTableName(t, "entry_data")
		assert.NoError(t, createErr)
	})
}

func Test_FactoryFunctions_NewJournal_ShouldFail_WithNilDatabaseConnection(t *testing.T) {
	testCases := []struct {
		name        string
		factoryFunc func() (*postgresjournal.Journal, error)
	}{
		{
			name: "NewJournalFromPGXPool with nil",
			factoryFunc: func() (*postgresjournal.Journal, error) {
				return postgresjournal.NewJournalFromPGXPool(nil)
			},
		},
		{
			name: "NewJournalFromPGXPoolAndReplica with nil",
			factoryFunc: func() (*postgresjournal.Journal, error) {
				return postgresjournal.NewJournalFromPGXPoolAndReplica(nil, nil)
			},
		},
		{
			name: "NewJournalFromSQLDB with nil",
			factoryFunc: func() (*postgresjournal.Journal, error) {
				return postgresjournal.NewJournalFromSQLDB(nil)
			},
		},
		{
			name: "NewJournalFromSQLX with nil",
			factoryFunc: func() (*postgresjournal.Journal, error) {
				return postgresjournal.NewJournalFromSQLX(nil)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// act
			_, err := tc.factoryFunc()

			// assert
			assert.ErrorContains(t, err, journal.ErrNilDatabaseConnectionSupplied.Error())
		})
	}
}

func Test_FactoryFunctions_Journal_WithTableName_ShouldWorkCorrectly(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	customTableName := "events"
	wrapper := CreateWrapperWithTestConfig(t, postgresjournal.WithTableName(customTableName))
	defer wrapper.Close()
	j := wrapper.GetJournal()

	fakeClock := time.Unix(0, 0).UTC()

	// arrange
	CleanUp(t, wrapper)
	accountID := GivenUniqueID(t).String()
	filter := FilterAllEventTypesForOneAccount(accountID)

	err := j.Append(
		ctxWithTimeout,
		filter,
		0,
		ToEntry(t, FixtureAccountAdded(accountID, 7, fakeClock)),
	)
	assert.NoError(t, err)

	// act
	entries, _, queryErr := j.Query(ctxWithTimeout, filter)

	// assert
	assert.NoError(t, queryErr)
	assert.Len(t, entries, 1)
}

func Test_FactoryFunctions_FactoryFunctions_ShouldFail_WithEmptyTableName(t *testing.T) {
	testCases := []struct {
		name        string
		factoryFunc func(t *testing.T) (*postgresjournal.Journal, error)
	}{
		{
			name: "NewJournalFromPGXPool with empty table name",
			factoryFunc: func(_ *testing.T) (*postgresjournal.Journal, error) {
				connPool, err := pgxpool.NewWithConfig(context.Background(), config.PostgresPGXPoolTestConfig())
				assert.NoError(t, err, "error connecting to DB pool in test setup")
				defer connPool.Close()

				return postgresjournal.NewJournalFromPGXPool(connPool, postgresjournal.WithTableName(""))
			},
		},
		{
			name: "NewJournalFromSQLDB with empty table name",
			factoryFunc: func(_ *testing.T) (*postgresjournal.Journal, error) {
				db := config.PostgresSQLDBTestConfig()
				defer func() { _ = db.Close() }()

				return postgresjournal.NewJournalFromSQLDB(db, postgresjournal.WithTableName(""))
			},
		},
		{
			name: "NewJournalFromSQLX with empty table name",
			factoryFunc: func(_ *testing.T) (*postgresjournal.Journal, error) {
				db := config.PostgresSQLXTestConfig()
				defer func() { _ = db.Close() }()

				return postgresjournal.NewJournalFromSQLX(db, postgresjournal.WithTableName(""))
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// act
			_, err := tc.factoryFunc(t)

			// assert
			assert.ErrorContains(t, err, journal.ErrEmptyTableNameSupplied.Error())
		})
	}
}

func Test_FactoryFunctions_Journal_WithTableName_ShouldFail_WithNonExistentTable(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wrapper := CreateWrapperWithTestConfig(t, postgresjournal.WithTableName("non_existent_table_1"))
	defer wrapper.Close()
	j := wrapper.GetJournal()

	// arrange
	accountID := GivenUniqueID(t).String()
	filter := FilterAllEventTypesForOneAccount(accountID)

	// act
	_, _, err := j.Query(ctxWithTimeout, filter)

	// assert
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}
