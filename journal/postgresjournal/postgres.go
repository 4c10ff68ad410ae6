package postgresjournal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // driver import
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/accrualworks/reward-ledger-go/journal"
	"github.com/accrualworks/reward-ledger-go/journal/postgresjournal/internal/adapters"
)

const (
	defaultEntryTableName    = "events"
	defaultSnapshotTableName = "snapshots"

	logMsgBuildSelectQueryFailed = "failed to build select query"
	logMsgDBQueryFailed          = "database query execution failed"
	logMsgCloseRowsFailed        = "failed to close database rows"
	logMsgScanRowFailed          = "failed to scan database row"
	logMsgBuildEntryFailed       = "failed to build journal entry from database row"
	logMsgBuildInsertQueryFailed = "failed to build insert query"
	logMsgDBExecFailed           = "database execution failed during append"
	logMsgRowsAffectedFailed     = "failed to get rows affected count"
	logMsgSingleEntrySQLFailed   = "failed to convert single entry insert statement to SQL"
	logMsgMultiEntrySQLFailed    = "failed to convert multiple entries insert statement to SQL"
	logMsgQueryCompleted         = "query completed"
	logMsgEntriesAppended        = "entries appended"
	logMsgConcurrencyConflict    = "concurrency conflict detected"
	logMsgSQLExecuted            = "executed sql for: "
	logMsgOperation              = "journal operation: "

	logAttrError            = "error"
	logAttrQuery            = "query"
	logAttrEventType        = "event_type"
	logAttrEntryCount       = "entry_count"
	logAttrDurationMS       = "duration_ms"
	logAttrExpectedEntries  = "expected_entries"
	logAttrRowsAffected     = "rows_affected"
	logAttrExpectedSequence = "expected_sequence"

	logActionQuery  = "query"
	logActionAppend = "append"

	colEventType      = "event_type"
	colOccurredAt     = "occurred_at"
	colPayload        = "payload"
	colMetadata       = "metadata"
	colSequenceNumber = "sequence_number"

	cteContext      = "context"
	cteVals         = "vals"
	dialectPostgres = "postgres"
	aliasMaxSeq     = "max_seq"
	castText        = "?::text"
	castTimestamp   = "?::timestamp with time zone"
	castJsonb       = "?::jsonb"
)

type (
	sqlQueryString    = string
	rowsAffectedInt64 = int64
	queryDuration     = time.Duration
)

// Journal is a Postgres-backed store for the ledger's event records.
// It leverages a database adapter and supports configurable table names,
// logging, metrics and tracing.
type Journal struct {
	db                adapters.DBAdapter
	entryTableName    string
	snapshotTableName string
	logger            journal.Logger
	contextualLogger  journal.ContextualLogger
	metricsCollector  journal.MetricsCollector
	tracingCollector  journal.TracingCollector
}

type queryResultRow struct {
	eventType         string
	payload           []byte
	metadata          []byte
	occurredAt        time.Time
	maxSequenceNumber journal.MaxSequenceNumberUint
}

// NewJournalFromPGXPool creates a new Journal using a pgx pool with optional configuration.
func NewJournalFromPGXPool(db *pgxpool.Pool, options ...Option) (*Journal, error) {
	if db == nil {
		return nil, journal.ErrNilDatabaseConnectionSupplied
	}

	return newJournal(adapters.NewPGXAdapter(db), options...)
}

// NewJournalFromPGXPoolAndReplica creates a new Journal using a primary pgx pool for writes
// and strongly consistent reads, and a replica pool for reads that opted into eventual
// consistency via journal.WithEventualConsistency.
func NewJournalFromPGXPoolAndReplica(db *pgxpool.Pool, replica *pgxpool.Pool, options ...Option) (*Journal, error) {
	if db == nil || replica == nil {
		return nil, journal.ErrNilDatabaseConnectionSupplied
	}

	return newJournal(adapters.NewPGXAdapterWithReplica(db, replica), options...)
}

// NewJournalFromSQLDB creates a new Journal using a sql.DB with optional configuration.
func NewJournalFromSQLDB(db *sql.DB, options ...Option) (*Journal, error) {
	if db == nil {
		return nil, journal.ErrNilDatabaseConnectionSupplied
	}

	return newJournal(adapters.NewSQLAdapter(db), options...)
}

// NewJournalFromSQLX creates a new Journal using a sqlx.DB with optional configuration.
func NewJournalFromSQLX(db *sqlx.DB, options ...Option) (*Journal, error) {
	if db == nil {
		return nil, journal.ErrNilDatabaseConnectionSupplied
	}

	return newJournal(adapters.NewSQLXAdapter(db), options...)
}

func newJournal(db adapters.DBAdapter, options ...Option) (*Journal, error) {
	j := &Journal{
		db:                db,
		entryTableName:    defaultEntryTableName,
		snapshotTableName: defaultSnapshotTableName,
	}

	for _, option := range options {
		if err := option(j); err != nil {
			return nil, err
		}
	}

	return j, nil
}

// Query retrieves entries from the Postgres journal based on the provided journal.Filter criteria
// and returns them as journal.Entries
// as well as the MaxSequenceNumberUint for this dynamic journal scope at the time of the query.
func (j *Journal) Query(ctx context.Context, filter journal.Filter) (
	journal.Entries,
	journal.MaxSequenceNumberUint,
	error,
) {

	var empty journal.Entries

	tracing, ctx := j.startQueryTracing(ctx)
	metrics := j.startQueryMetrics(ctx)

	sqlQuery, buildQueryErr := j.buildSelectQuery(filter)
	if buildQueryErr != nil {
		j.logError(ctx, logMsgBuildSelectQueryFailed, buildQueryErr)
		tracing.finishError(errorTypeBuildQuery, 0)
		metrics.recordError(errorTypeBuildQuery, 0)

		return empty, 0, buildQueryErr
	}

	rows, duration, queryErr := j.executeQuery(ctx, sqlQuery)
	if queryErr != nil {
		tracing.finishError(errorTypeDatabaseQuery, duration)
		metrics.recordError(errorTypeDatabaseQuery, duration)

		return empty, 0, queryErr
	}
	defer j.closeRows(ctx, rows)

	entries, maxSequenceNumber, scanErr := j.processQueryResults(ctx, rows)
	if scanErr != nil {
		tracing.finishError(errorTypeScanRow, duration)
		metrics.recordError(errorTypeScanRow, duration)

		return empty, 0, scanErr
	}

	j.logOperation(
		ctx,
		logMsgQueryCompleted,
		logAttrEntryCount, len(entries),
		logAttrDurationMS, j.toMilliseconds(duration))

	tracing.finishSuccess(entries, maxSequenceNumber, duration)
	metrics.recordSuccess(entries, duration)

	return entries, maxSequenceNumber, nil
}

// executeQuery executes the SQL query and returns rows with timing information.
func (j *Journal) executeQuery(ctx context.Context, sqlQuery string) (
	adapters.DBRows,
	time.Duration,
	error,
) {

	start := time.Now()
	rows, queryErr := j.db.Query(ctx, sqlQuery)
	duration := time.Since(start)
	j.logQueryWithDuration(ctx, sqlQuery, logActionQuery, duration)

	if queryErr != nil {
		j.logError(ctx, logMsgDBQueryFailed, queryErr, logAttrQuery, sqlQuery)

		return nil, duration, errors.Join(journal.ErrQueryingEntriesFailed, queryErr)
	}

	return rows, duration, nil
}

// closeRows safely closes database rows and logs any errors.
func (j *Journal) closeRows(ctx context.Context, rows adapters.DBRows) {
	if closeErr := rows.Close(); closeErr != nil {
		j.logWarn(ctx, logMsgCloseRowsFailed, closeErr)
	}
}

// processQueryResults processes database rows and converts them to journal entries.
func (j *Journal) processQueryResults(ctx context.Context, rows adapters.DBRows) (
	journal.Entries,
	journal.MaxSequenceNumberUint,
	error,
) {

	var empty journal.Entries
	result := queryResultRow{}
	entries := make(journal.Entries, 0)
	maxSequenceNumber := journal.MaxSequenceNumberUint(0)

	for rows.Next() {
		rowScanErr := rows.Scan(&result.eventType, &result.occurredAt, &result.payload, &result.metadata, &result.maxSequenceNumber)
		if rowScanErr != nil {
			j.logError(ctx, logMsgScanRowFailed, rowScanErr)

			return empty, 0, errors.Join(journal.ErrScanningDBRowFailed, rowScanErr)
		}

		entry, buildEntryErr := journal.BuildEntry(result.eventType, result.occurredAt, result.payload, result.metadata)
		if buildEntryErr != nil {
			j.logError(ctx, logMsgBuildEntryFailed, buildEntryErr, logAttrEventType, result.eventType)

			return empty, 0, errors.Join(journal.ErrBuildingEntryFailed, buildEntryErr)
		}

		entries = append(entries, entry)
		maxSequenceNumber = result.maxSequenceNumber
	}

	return entries, maxSequenceNumber, nil
}

// Append attempts to append one or multiple journal.Entry(s) onto the Postgres journal respecting concurrency constraints
// for this dynamic journal scope based on the provided journal.Filter criteria and the expected MaxSequenceNumberUint.
//
// The provided journal.Filter criteria should be the same as the ones used for the Query before making the business decisions.
//
// The insert query to append multiple entries atomically is heavier than the one built to append a single entry.
// In event-sourced applications, one command should typically only produce one event.
// Only supply multiple entries if you are sure that you need to append multiple entries at once!
func (j *Journal) Append(
	ctx context.Context,
	filter journal.Filter,
	expectedMaxSequenceNumber journal.MaxSequenceNumberUint,
	entry journal.Entry,
	additionalEntries ...journal.Entry,
) error {

	allEntries := journal.Entries{entry}
	allEntries = append(allEntries, additionalEntries...)

	tracing, ctx := j.startAppendTracing(ctx, allEntries, expectedMaxSequenceNumber)
	metrics := j.startAppendMetrics(ctx)

	sqlQuery, buildQueryErr := j.buildAppendQuery(ctx, allEntries, filter, expectedMaxSequenceNumber)
	if buildQueryErr != nil {
		tracing.finishError(errorTypeBuildQuery, 0)
		metrics.recordError(errorTypeBuildQuery, 0)

		return buildQueryErr
	}

	rowsAffected, duration, execErr := j.executeAppendQuery(ctx, sqlQuery)
	if execErr != nil {
		tracing.finishError(errorTypeDatabaseAppend, duration)
		metrics.recordError(errorTypeDatabaseAppend, duration)

		return execErr
	}

	if err := j.validateAppendResult(ctx, rowsAffected, len(allEntries), expectedMaxSequenceNumber); err != nil {
		tracing.finishErrorWithAttrs(errorTypeConcurrencyConflict, map[string]string{
			spanAttrExpectedSeq:  fmt.Sprintf("%d", expectedMaxSequenceNumber),
			spanAttrRowsAffected: fmt.Sprintf("%d", rowsAffected),
		})
		metrics.recordConcurrencyConflict()
		metrics.recordError(errorTypeConcurrencyConflict, duration)

		return err
	}

	j.logOperation(
		ctx,
		logMsgEntriesAppended,
		logAttrEntryCount, len(allEntries),
		logAttrDurationMS, j.toMilliseconds(duration),
	)

	tracing.finishSuccess(rowsAffected, duration)
	metrics.recordSuccess(len(allEntries), duration)

	return nil
}

// buildAppendQuery builds the appropriate SQL query for single or multiple entries.
func (j *Journal) buildAppendQuery(
	ctx context.Context,
	allEntries journal.Entries,
	filter journal.Filter,
	expectedMaxSequenceNumber journal.MaxSequenceNumberUint,
) (sqlQueryString, error) {

	var sqlQuery sqlQueryString
	var buildQueryErr error

	switch len(allEntries) {
	case 1:
		sqlQuery, buildQueryErr = j.buildInsertQueryForSingleEntry(ctx, allEntries[0], filter, expectedMaxSequenceNumber)

	default:
		sqlQuery, buildQueryErr = j.buildInsertQueryForMultipleEntries(ctx, allEntries, filter, expectedMaxSequenceNumber)
	}

	if buildQueryErr != nil {
		j.logError(ctx, logMsgBuildInsertQueryFailed, buildQueryErr, logAttrEntryCount, len(allEntries))

		return "", buildQueryErr
	}

	return sqlQuery, nil
}

// executeAppendQuery executes the SQL append query and returns rows affected and duration.
func (j *Journal) executeAppendQuery(ctx context.Context, sqlQuery string) (
	rowsAffectedInt64,
	queryDuration,
	error,
) {

	start := time.Now()
	tag, execErr := j.db.Exec(ctx, sqlQuery)
	duration := time.Since(start)
	j.logQueryWithDuration(ctx, sqlQuery, logActionAppend, duration)

	if execErr != nil {
		j.logError(ctx, logMsgDBExecFailed, execErr, logAttrQuery, sqlQuery)

		return 0, duration, errors.Join(journal.ErrAppendingEntriesFailed, execErr)
	}

	rowsAffected, rowsAffectedErr := tag.RowsAffected()
	if rowsAffectedErr != nil {
		j.logError(ctx, logMsgRowsAffectedFailed, rowsAffectedErr)

		return 0, duration, errors.Join(journal.ErrGettingRowsAffectedFailed, rowsAffectedErr)
	}

	return rowsAffected, duration, nil
}

// validateAppendResult checks if the append operation was successful and detects concurrency conflicts.
func (j *Journal) validateAppendResult(
	ctx context.Context,
	rowsAffected int64,
	expectedEntryCount int,
	expectedMaxSequenceNumber journal.MaxSequenceNumberUint,
) error {

	if rowsAffected < int64(expectedEntryCount) {
		j.logOperation(
			ctx,
			logMsgConcurrencyConflict,
			logAttrExpectedEntries, expectedEntryCount,
			logAttrRowsAffected, rowsAffected,
			logAttrExpectedSequence, expectedMaxSequenceNumber,
		)

		return journal.ErrConcurrencyConflict
	}

	return nil
}

func (j *Journal) buildSelectQuery(filter journal.Filter) (sqlQueryString, error) {
	selectStmt := goqu.Dialect(dialectPostgres).
		From(j.entryTableName).
		Select(colEventType, colOccurredAt, colPayload, colMetadata, colSequenceNumber).
		Order(goqu.I(colSequenceNumber).Asc())

	selectStmt = j.addWhereClause(filter, selectStmt)

	sqlQuery, _, toSQLErr := selectStmt.ToSQL()
	if toSQLErr != nil {
		return "", errors.Join(journal.ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}

func (j *Journal) buildInsertQueryForSingleEntry(
	ctx context.Context,
	entry journal.Entry,
	filter journal.Filter,
	expectedMaxSequenceNumber journal.MaxSequenceNumberUint,
) (sqlQueryString, error) {

	builder := goqu.Dialect(dialectPostgres)

	// Define the subquery for the CTE
	cteStmt := builder.
		From(j.entryTableName).
		Select(goqu.MAX(colSequenceNumber).As(aliasMaxSeq))

	cteStmt = j.addWhereClause(filter, cteStmt)

	// Define the SELECT for the INSERT
	selectStmt := builder.
		From(cteContext).
		Select(goqu.V(entry.EventType), goqu.V(entry.OccurredAt), goqu.V(entry.PayloadJSON), goqu.V(entry.MetadataJSON)).
		Where(goqu.COALESCE(goqu.C(aliasMaxSeq), 0).Eq(goqu.V(expectedMaxSequenceNumber)))

	// Finalize the full INSERT query
	insertStmt := builder.
		Insert(j.entryTableName).
		Cols(colEventType, colOccurredAt, colPayload, colMetadata).
		FromQuery(selectStmt).
		With(cteContext, cteStmt)

	sqlQuery, _, toSQLErr := insertStmt.ToSQL()
	if toSQLErr != nil {
		j.logError(ctx, logMsgSingleEntrySQLFailed, toSQLErr, logAttrEventType, entry.EventType)

		return "", errors.Join(journal.ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}

func (j *Journal) buildInsertQueryForMultipleEntries(
	ctx context.Context,
	entries journal.Entries,
	filter journal.Filter,
	expectedMaxSequenceNumber journal.MaxSequenceNumberUint,
) (sqlQueryString, error) {

	builder := goqu.Dialect(dialectPostgres)

	// Define the subquery for the CTE
	cteStmt := builder.
		From(j.entryTableName).
		Select(goqu.MAX(colSequenceNumber).As(aliasMaxSeq))

	cteStmt = j.addWhereClause(filter, cteStmt)

	// Create individual SELECT statements for each entry
	unionStatements := make([]*goqu.SelectDataset, len(entries))
	for i, entry := range entries {
		unionStatements[i] = builder.
			Select(
				goqu.L(castText, entry.EventType).As(colEventType),
				goqu.L(castTimestamp, entry.OccurredAt).As(colOccurredAt),
				goqu.L(castJsonb, entry.PayloadJSON).As(colPayload),
				goqu.L(castJsonb, entry.MetadataJSON).As(colMetadata),
			)
	}

	// Combine all SELECT statements with UNION ALL
	valuesStmt := unionStatements[0]
	for i := 1; i < len(unionStatements); i++ {
		valuesStmt = valuesStmt.UnionAll(unionStatements[i])
	}

	// Finalize the full INSERT query
	valsEventType := fmt.Sprintf("%s.%s", cteVals, colEventType)
	valsOccurredAt := fmt.Sprintf("%s.%s", cteVals, colOccurredAt)
	valsPayload := fmt.Sprintf("%s.%s", cteVals, colPayload)
	valsMetadata := fmt.Sprintf("%s.%s", cteVals, colMetadata)

	insertStmt := builder.
		Insert(j.entryTableName).
		Cols(colEventType, colOccurredAt, colPayload, colMetadata).
		With(cteContext, cteStmt).
		With(cteVals, valuesStmt).
		FromQuery(
			builder.From(cteContext, cteVals).
				Select(valsEventType, valsOccurredAt, valsPayload, valsMetadata).
				Where(goqu.COALESCE(goqu.C(aliasMaxSeq), 0).Eq(goqu.V(expectedMaxSequenceNumber))),
		)

	sqlQuery, _, toSQLErr := insertStmt.ToSQL()
	if toSQLErr != nil {
		j.logError(ctx, logMsgMultiEntrySQLFailed, toSQLErr, logAttrEntryCount, len(entries))

		return "", errors.Join(journal.ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}

func (j *Journal) addWhereClause(filter journal.Filter, selectStmt *goqu.SelectDataset) *goqu.SelectDataset {
	itemsExpressions := make([]goqu.Expression, 0)

	for _, item := range filter.Items() {
		eventTypeExpressions := make([]goqu.Expression, 0)
		predicateExpressions := make([]goqu.Expression, 0)

		for _, eventType := range item.EventTypes() {
			eventTypeExpressions = append(
				eventTypeExpressions,
				goqu.Ex{colEventType: eventType},
			)
		}

		// eventTypes must always be filtered with OR ;-)
		eventTypesExpressionList := goqu.Or(eventTypeExpressions...)

		for _, predicate := range item.Predicates() {
			predicateExpressions = append(
				predicateExpressions,
				j.predicateExpression(predicate),
			)
		}

		var predicatesExpressionList exp.ExpressionList

		if item.AllPredicatesMustMatch() {
			predicatesExpressionList = goqu.And(predicateExpressions...)
		} else {
			predicatesExpressionList = goqu.Or(predicateExpressions...)
		}

		itemsExpressions = append(
			itemsExpressions,
			goqu.And(eventTypesExpressionList, predicatesExpressionList),
		)
	}

	boundsExpressions := make([]goqu.Expression, 0)

	if !filter.OccurredFrom().IsZero() {
		boundsExpressions = append(
			boundsExpressions,
			goqu.C(colOccurredAt).Gte(filter.OccurredFrom()),
		)
	}

	if !filter.OccurredUntil().IsZero() {
		boundsExpressions = append(
			boundsExpressions,
			goqu.C(colOccurredAt).Lte(filter.OccurredUntil()),
		)
	}

	if filter.SequenceNumberHigherThan() > 0 {
		boundsExpressions = append(
			boundsExpressions,
			goqu.C(colSequenceNumber).Gt(filter.SequenceNumberHigherThan()),
		)
	}

	selectStmt = selectStmt.Where(
		goqu.And(
			goqu.Or(itemsExpressions...),
			goqu.And(boundsExpressions...),
		),
	)

	return selectStmt
}

// predicateExpression renders a payload predicate as a jsonb containment check.
// Scalar predicates match a top-level string property, array-element predicates
// match membership in a top-level string array.
func (j *Journal) predicateExpression(predicate journal.FilterPredicate) goqu.Expression {
	if predicate.MatchesAnyElement() {
		return goqu.L(fmt.Sprintf(`%s @> '{"%s": ["%s"]}'`, colPayload, predicate.Key(), predicate.Val()))
	}

	return goqu.L(fmt.Sprintf(`%s @> '{"%s": "%s"}'`, colPayload, predicate.Key(), predicate.Val()))
}
