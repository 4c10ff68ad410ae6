package journal

import (
	"errors"
)

var (
	// ErrEmptyTableNameSupplied is returned when an engine is configured with an empty table name.
	ErrEmptyTableNameSupplied = errors.New("empty table name supplied")

	// ErrNilDatabaseConnectionSupplied is returned when an engine is constructed without a database connection.
	ErrNilDatabaseConnectionSupplied = errors.New("nil database connection supplied")

	// ErrConcurrencyConflict is returned when an append lost the race for its filter scope.
	ErrConcurrencyConflict = errors.New("concurrency error, no rows were affected")

	// ErrBuildingQueryFailed is returned when SQL generation fails.
	ErrBuildingQueryFailed = errors.New("building query failed")

	// ErrQueryingEntriesFailed is returned when the select statement fails.
	ErrQueryingEntriesFailed = errors.New("querying journal entries failed")

	// ErrScanningDBRowFailed is returned when scanning a result row fails.
	ErrScanningDBRowFailed = errors.New("scanning db row failed")

	// ErrBuildingEntryFailed is returned when a result row cannot be turned into an Entry.
	ErrBuildingEntryFailed = errors.New("building journal entry failed")

	// ErrAppendingEntriesFailed is returned when the insert statement fails.
	ErrAppendingEntriesFailed = errors.New("appending journal entries failed")

	// ErrGettingRowsAffectedFailed is returned when the affected row count cannot be read.
	ErrGettingRowsAffectedFailed = errors.New("getting rows affected failed")
)

// MaxSequenceNumberUint is a type alias for uint, representing the maximum sequence number of a dynamic journal scope.
type MaxSequenceNumberUint = uint
