package postgreswrapper

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"

	"github.com/accrualworks/reward-ledger-go/journal/postgresjournal"
	"github.com/accrualworks/reward-ledger-go/ledger"
	"github.com/accrualworks/reward-ledger-go/shell/config"
)

// Adapter type constants
const (
	typePGXPool = "pgx.pool"
	typeSQLDB   = "sql.db"
	typeSQLXDB  = "sqlx.db"
)

// Wrapper interface to abstract over different adapter types
type Wrapper interface {
	GetJournal() *postgresjournal.Journal
	Close()
}

// PGXPoolWrapper wraps pgxpool-based testing
type PGXPoolWrapper struct {
	pool *pgxpool.Pool
	j    *postgresjournal.Journal
}

func (w *PGXPoolWrapper) GetJournal() *postgresjournal.Journal {
	return w.j
}

func (w *PGXPoolWrapper) Close() {
	w.pool.Close()
}

// SQLDBWrapper wraps sql.DB-based testing
type SQLDBWrapper struct {
	db *sql.DB
	j  *postgresjournal.Journal
}

func (w *SQLDBWrapper) GetJournal() *postgresjournal.Journal {
	return w.j
}

func (w *SQLDBWrapper) Close() {
	_ = w.db.Close() // ignore error
}

// SQLXWrapper wraps sqlx.DB-based testing
type SQLXWrapper struct {
	db *sqlx.DB
	j  *postgresjournal.Journal
}

func (w *SQLXWrapper) GetJournal() *postgresjournal.Journal {
	return w.j
}

func (w *SQLXWrapper) Close() {
	_ = w.db.Close() // ignore error
}

// CreateWrapperWithTestConfig creates the appropriate wrapper based on the environment variable.
// Any supplied options are passed through to the journal constructor.
func CreateWrapperWithTestConfig(t testing.TB, options ...postgresjournal.Option) Wrapper {
	adapterTypeFromEnv := strings.ToLower(os.Getenv("ADAPTER_TYPE"))

	switch adapterTypeFromEnv {
	case typePGXPool, "":
		connPool, err := pgxpool.NewWithConfig(context.Background(), config.PostgresPGXPoolTestConfig())
		assert.NoError(t, err, "error connecting to DB pool in test setup")

		j, err := postgresjournal.NewJournalFromPGXPool(connPool, options...)
		assert.NoError(t, err, "error creating journal")

		return &PGXPoolWrapper{pool: connPool, j: j}

	case typeSQLDB:
		db := config.PostgresSQLDBTestConfig()

		j, err := postgresjournal.NewJournalFromSQLDB(db, options...)
		assert.NoError(t, err, "error creating journal")

		return &SQLDBWrapper{db: db, j: j}

	case typeSQLXDB:
		db := config.PostgresSQLXTestConfig()

		j, err := postgresjournal.NewJournalFromSQLX(db, options...)
		assert.NoError(t, err, "error creating journal")

		return &SQLXWrapper{db: db, j: j}

	default: // neither one of the known types nor empty
		panic(fmt.Sprintf("unsupported wrapper type from env: %s", adapterTypeFromEnv))
	}
}

// TryCreateJournalWithTableName tries to create a journal with the given table name and returns the error (for testing error cases)
func TryCreateJournalWithTableName(t testing.TB, tableName string) error {
	adapterTypeFromEnv := strings.ToLower(os.Getenv("ADAPTER_TYPE"))

	var options []postgresjournal.Option
	if tableName != "events" {
		options = append(options, postgresjournal.WithTableName(tableName))
	}

	switch adapterTypeFromEnv {
	case typePGXPool, "":
		connPool, err := pgxpool.NewWithConfig(context.Background(), config.PostgresPGXPoolTestConfig())
		assert.NoError(t, err, "error connecting to DB pool in test setup")
		defer connPool.Close()

		_, err = postgresjournal.NewJournalFromPGXPool(connPool, options...)
		return err

	case typeSQLDB:
		db := config.PostgresSQLDBTestConfig()
		defer func(db *sql.DB) {
			_ = db.Close() // makes no sense to handle this
		}(db)

		_, err := postgresjournal.NewJournalFromSQLDB(db, options...)
		return err

	case typeSQLXDB:
		db := config.PostgresSQLXTestConfig()
		defer func(db *sqlx.DB) {
			_ = db.Close() // makes no sense to handle this
		}(db)

		_, err := postgresjournal.NewJournalFromSQLX(db, options...)
		return err

	default: // neither one of the known types nor empty
		panic(fmt.Sprintf("unsupported wrapper type from env: %s", adapterTypeFromEnv))
	}
}

// CreateWrapperWithBenchmarkConfig creates the appropriate wrapper based on the environment variable
func CreateWrapperWithBenchmarkConfig(t testing.TB) Wrapper {
	adapterTypeFromEnv := strings.ToLower(os.Getenv("ADAPTER_TYPE"))

	switch adapterTypeFromEnv {
	case typePGXPool, "":
		connPool, err := pgxpool.NewWithConfig(context.Background(), config.PostgresPGXPoolBenchmarkConfig())
		assert.NoError(t, err, "error connecting to DB pool in test setup")
		j, err := postgresjournal.NewJournalFromPGXPool(connPool)
		assert.NoError(t, err, "error creating journal")

		return &PGXPoolWrapper{pool: connPool, j: j}

	case typeSQLDB:
		db := config.PostgresSQLDBBenchmarkConfig()
		j, err := postgresjournal.NewJournalFromSQLDB(db)
		assert.NoError(t, err, "error creating journal")

		return &SQLDBWrapper{db: db, j: j}

	case typeSQLXDB:
		db := config.PostgresSQLXBenchmarkConfig()
		j, err := postgresjournal.NewJournalFromSQLX(db)
		assert.NoError(t, err, "error creating journal")

		return &SQLXWrapper{db: db, j: j}

	default: // neither one of the known types nor empty
		panic(fmt.Sprintf("unsupported wrapper type from env: %s", adapterTypeFromEnv))
	}
}

// CleanUp truncates the events and snapshots tables for the given wrapper
func CleanUp(t testing.TB, wrapper Wrapper) {
	for _, statement := range []string{
		"TRUNCATE TABLE events RESTART IDENTITY",
		"TRUNCATE TABLE snapshots",
	} {
		switch w := wrapper.(type) {
		case *PGXPoolWrapper:
			_, err := w.pool.Exec(context.Background(), statement)
			assert.NoError(t, err, "error cleaning up the database")

		case *SQLDBWrapper:
			_, err := w.db.Exec(statement)
			assert.NoError(t, err, "error cleaning up the database")

		case *SQLXWrapper:
			_, err := w.db.Exec(statement)
			assert.NoError(t, err, "error cleaning up the database")

		default:
			panic(fmt.Sprintf("unsupported wrapper type: %T", w))
		}
	}
}

// GetGreatestOccurredAtTimeFromDB gets the maximum occurred_at time from the events table for the given wrapper
func GetGreatestOccurredAtTimeFromDB(t testing.TB, wrapper Wrapper) time.Time {
	var greatestOccurredAtTime time.Time
	var err error

	switch w := wrapper.(type) {
	case *PGXPoolWrapper:
		row := w.pool.QueryRow(context.Background(), `select max(occurred_at) from events`)
		err = row.Scan(&greatestOccurredAtTime)

	case *SQLDBWrapper:
		row := w.db.QueryRow(`select max(occurred_at) from events`)
		err = row.Scan(&greatestOccurredAtTime)

	case *SQLXWrapper:
		row := w.db.QueryRow(`select max(occurred_at) from events`)
		err = row.Scan(&greatestOccurredAtTime)

	default:
		panic(fmt.Sprintf("unsupported wrapper type: %T", w))
	}

	assert.NoError(t, err, "error in arranging test data")
	return greatestOccurredAtTime
}

// GetLatestAccountIDFromDB gets the latest registered AccountID from the events table for the given wrapper
func GetLatestAccountIDFromDB(t testing.TB, wrapper Wrapper) ledger.AccountID {
	var accountID string
	var err error

	switch w := wrapper.(type) {
	case *PGXPoolWrapper:
		row := w.pool.QueryRow(context.Background(), `select max(payload->>'AccountID') from events`)
		err = row.Scan(&accountID)

	case *SQLDBWrapper:
		row := w.db.QueryRow(`select max(payload->>'AccountID') from events`)
		err = row.Scan(&accountID)

	case *SQLXWrapper:
		row := w.db.QueryRow(`select max(payload->>'AccountID') from events`)
		err = row.Scan(&accountID)

	default:
		panic(fmt.Sprintf("unsupported wrapper type: %T", w))
	}

	assert.NoError(t, err, "error in arranging test data")
	assert.NotEmpty(t, accountID, "error in arranging test data")
	return accountID
}

// GuardThatThereAreEnoughFixtureEventsInStore checks if there are enough fixture events in the store for the given wrapper
func GuardThatThereAreEnoughFixtureEventsInStore(wrapper Wrapper, expectedNumEvents int) {
	var cnt int
	var err error

	switch w := wrapper.(type) {
	case *PGXPoolWrapper:
		row := w.pool.QueryRow(context.Background(), `SELECT count(*) FROM events`)
		err = row.Scan(&cnt)

	case *SQLDBWrapper:
		row := w.db.QueryRow(`SELECT count(*) FROM events`)
		err = row.Scan(&cnt)

	case *SQLXWrapper:
		row := w.db.QueryRow(`SELECT count(*) FROM events`)
		err = row.Scan(&cnt)

	default:
		panic(fmt.Sprintf("unsupported wrapper type: %T", w))
	}

	if err != nil {
		panic(err)
	}

	if cnt < expectedNumEvents {
		panic("not enough fixture events in the DB")
	}
}

// CleanUpAccountEvents deletes all events touching one account for benchmark cleanup.
// Registrations and claims carry the id as a scalar, accumulations as an array element.
func CleanUpAccountEvents(wrapper Wrapper, accountID ledger.AccountID) (rowsAffected int64, err error) {
	query := fmt.Sprintf(
		`DELETE FROM events WHERE payload @> '{"AccountID": "%s"}' OR payload @> '{"AccountIDs": ["%s"]}'`,
		accountID, accountID)

	switch w := wrapper.(type) {
	case *PGXPoolWrapper:
		cmdTag, execErr := w.pool.Exec(context.Background(), query)
		if execErr != nil {
			return 0, execErr
		}
		return cmdTag.RowsAffected(), nil

	case *SQLDBWrapper:
		result, execErr := w.db.Exec(query)
		if execErr != nil {
			return 0, execErr
		}
		return result.RowsAffected()

	case *SQLXWrapper:
		result, execErr := w.db.Exec(query)
		if execErr != nil {
			return 0, execErr
		}
		return result.RowsAffected()

	default:
		panic(fmt.Sprintf("unsupported wrapper type: %T", w))
	}
}

// OptimizeDBWhileBenchmarking executes SQL for benchmark cleanup for the given wrapper
func OptimizeDBWhileBenchmarking(wrapper Wrapper) error {
	query := `VACUUM ANALYZE EVENTS`

	switch w := wrapper.(type) {
	case *PGXPoolWrapper:
		_, execErr := w.pool.Exec(context.Background(), query)
		if execErr != nil {
			return execErr
		}

		return nil

	case *SQLDBWrapper:
		_, execErr := w.db.Exec(query)
		if execErr != nil {
			return execErr
		}

		return nil

	case *SQLXWrapper:
		_, execErr := w.db.Exec(query)
		if execErr != nil {
			return execErr
		}

		return nil

	default:
		panic(fmt.Sprintf("unsupported wrapper type: %T", w))
	}
}
