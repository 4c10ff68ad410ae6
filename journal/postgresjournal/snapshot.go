package postgresjournal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/accrualworks/reward-ledger-go/journal"
)

const (
	colProjectionType = "projection_type"
	colFilterHash     = "filter_hash"
	colSnapshotData   = "snapshot_data"
	colCreatedAt      = "created_at"

	logMsgSnapshotSaved            = "snapshot saved"
	logMsgSnapshotDeleted          = "snapshot deleted"
	logMsgSnapshotSaveFailed       = "failed to save snapshot"
	logMsgSnapshotLoadFailed       = "failed to load snapshot"
	logMsgSnapshotDeleteFailed     = "failed to delete snapshot"
	logMsgSnapshotScanFailed       = "failed to scan snapshot row"
	logMsgBuildSnapshotQueryFailed = "failed to build snapshot query"

	logAttrProjectionType = "projection_type"
	logAttrFilterHash     = "filter_hash"
	logAttrSequence       = "sequence_number"
)

type snapshotResultRow struct {
	sequenceNumber journal.MaxSequenceNumberUint
	data           []byte
	createdAt      time.Time
}

// SaveSnapshot stores a projection snapshot, keyed by projection type and filter hash.
//
// The upsert only replaces an existing snapshot when the new one covers a higher
// sequence number, so concurrent writers cannot regress a snapshot.
// Writes always go to the primary database.
func (j *Journal) SaveSnapshot(ctx context.Context, snapshot journal.Snapshot) error {
	if validateErr := snapshot.Validate(); validateErr != nil {
		return errors.Join(journal.ErrSavingSnapshotFailed, validateErr)
	}

	sqlQuery, buildQueryErr := j.buildUpsertSnapshotQuery(snapshot)
	if buildQueryErr != nil {
		j.logError(ctx, logMsgBuildSnapshotQueryFailed, buildQueryErr, logAttrProjectionType, snapshot.ProjectionType)

		return buildQueryErr
	}

	start := time.Now()
	_, execErr := j.db.Exec(ctx, sqlQuery)
	duration := time.Since(start)
	j.logQueryWithDuration(ctx, sqlQuery, operationSnapshotSave, duration)

	if execErr != nil {
		j.logError(ctx, logMsgSnapshotSaveFailed, execErr, logAttrProjectionType, snapshot.ProjectionType)
		j.recordDurationMetricsContext(ctx, metricSnapshotDuration, duration, operationSnapshotSave, statusError)

		return errors.Join(journal.ErrSavingSnapshotFailed, execErr)
	}

	j.logOperation(
		ctx,
		logMsgSnapshotSaved,
		logAttrProjectionType, snapshot.ProjectionType,
		logAttrFilterHash, snapshot.FilterHash,
		logAttrSequence, snapshot.SequenceNumber,
	)
	j.recordDurationMetricsContext(ctx, metricSnapshotDuration, duration, operationSnapshotSave, statusSuccess)

	return nil
}

// LoadSnapshot retrieves the stored snapshot for the given projection type and the
// scope described by the filter, or (nil, nil) when no snapshot exists.
func (j *Journal) LoadSnapshot(ctx context.Context, projectionType string, filter journal.Filter) (
	*journal.Snapshot,
	error,
) {

	if projectionType == "" {
		return nil, errors.Join(journal.ErrLoadingSnapshotFailed, journal.ErrEmptyProjectionTypeSupplied)
	}

	filterHash := filter.Hash()

	sqlQuery, buildQueryErr := j.buildSelectSnapshotQuery(projectionType, filterHash)
	if buildQueryErr != nil {
		j.logError(ctx, logMsgBuildSnapshotQueryFailed, buildQueryErr, logAttrProjectionType, projectionType)

		return nil, buildQueryErr
	}

	start := time.Now()
	rows, queryErr := j.db.Query(ctx, sqlQuery)
	duration := time.Since(start)
	j.logQueryWithDuration(ctx, sqlQuery, operationSnapshotLoad, duration)

	if queryErr != nil {
		j.logError(ctx, logMsgSnapshotLoadFailed, queryErr, logAttrProjectionType, projectionType)
		j.recordDurationMetricsContext(ctx, metricSnapshotDuration, duration, operationSnapshotLoad, statusError)

		return nil, errors.Join(journal.ErrLoadingSnapshotFailed, queryErr)
	}
	defer j.closeRows(ctx, rows)

	if !rows.Next() {
		j.recordDurationMetricsContext(ctx, metricSnapshotDuration, duration, operationSnapshotLoad, statusSuccess)

		return nil, nil //nolint:nilnil // a missing snapshot is not an error, callers fall back to a full query
	}

	result := snapshotResultRow{}
	if scanErr := rows.Scan(&result.sequenceNumber, &result.data, &result.createdAt); scanErr != nil {
		j.logError(ctx, logMsgSnapshotScanFailed, scanErr, logAttrProjectionType, projectionType)
		j.recordDurationMetricsContext(ctx, metricSnapshotDuration, duration, operationSnapshotLoad, statusError)

		return nil, errors.Join(journal.ErrLoadingSnapshotFailed, scanErr)
	}

	snapshot := journal.Snapshot{
		ProjectionType: projectionType,
		FilterHash:     filterHash,
		SequenceNumber: result.sequenceNumber,
		Data:           result.data,
		CreatedAt:      result.createdAt,
	}

	j.recordDurationMetricsContext(ctx, metricSnapshotDuration, duration, operationSnapshotLoad, statusSuccess)

	return &snapshot, nil
}

// DeleteSnapshot removes the stored snapshot for the given projection type and filter scope.
// Deleting a snapshot that does not exist is not an error.
func (j *Journal) DeleteSnapshot(ctx context.Context, projectionType string, filter journal.Filter) error {
	if projectionType == "" {
		return errors.Join(journal.ErrDeletingSnapshotFailed, journal.ErrEmptyProjectionTypeSupplied)
	}

	filterHash := filter.Hash()

	sqlQuery, buildQueryErr := j.buildDeleteSnapshotQuery(projectionType, filterHash)
	if buildQueryErr != nil {
		j.logError(ctx, logMsgBuildSnapshotQueryFailed, buildQueryErr, logAttrProjectionType, projectionType)

		return buildQueryErr
	}

	start := time.Now()
	_, execErr := j.db.Exec(ctx, sqlQuery)
	duration := time.Since(start)
	j.logQueryWithDuration(ctx, sqlQuery, operationSnapshotDelete, duration)

	if execErr != nil {
		j.logError(ctx, logMsgSnapshotDeleteFailed, execErr, logAttrProjectionType, projectionType)
		j.recordDurationMetricsContext(ctx, metricSnapshotDuration, duration, operationSnapshotDelete, statusError)

		return errors.Join(journal.ErrDeletingSnapshotFailed, execErr)
	}

	j.logOperation(
		ctx,
		logMsgSnapshotDeleted,
		logAttrProjectionType, projectionType,
		logAttrFilterHash, filterHash,
	)
	j.recordDurationMetricsContext(ctx, metricSnapshotDuration, duration, operationSnapshotDelete, statusSuccess)

	return nil
}

func (j *Journal) buildUpsertSnapshotQuery(snapshot journal.Snapshot) (sqlQueryString, error) {
	builder := goqu.Dialect(dialectPostgres)

	conflictTarget := fmt.Sprintf("%s, %s", colProjectionType, colFilterHash)
	existingSequence := fmt.Sprintf("%s.%s", j.snapshotTableName, colSequenceNumber)
	excludedSequence := fmt.Sprintf("excluded.%s", colSequenceNumber)

	insertStmt := builder.
		Insert(j.snapshotTableName).
		Cols(colProjectionType, colFilterHash, colSequenceNumber, colSnapshotData, colCreatedAt).
		Vals(goqu.Vals{snapshot.ProjectionType, snapshot.FilterHash, snapshot.SequenceNumber, snapshot.Data, snapshot.CreatedAt}).
		OnConflict(goqu.DoUpdate(
			conflictTarget,
			goqu.Record{
				colSequenceNumber: snapshot.SequenceNumber,
				colSnapshotData:   snapshot.Data,
				colCreatedAt:      snapshot.CreatedAt,
			},
		).Where(goqu.I(excludedSequence).Gt(goqu.I(existingSequence))))

	sqlQuery, _, toSQLErr := insertStmt.ToSQL()
	if toSQLErr != nil {
		return "", errors.Join(journal.ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}

func (j *Journal) buildSelectSnapshotQuery(projectionType string, filterHash string) (sqlQueryString, error) {
	selectStmt := goqu.Dialect(dialectPostgres).
		From(j.snapshotTableName).
		Select(colSequenceNumber, colSnapshotData, colCreatedAt).
		Where(
			goqu.C(colProjectionType).Eq(projectionType),
			goqu.C(colFilterHash).Eq(filterHash),
		)

	sqlQuery, _, toSQLErr := selectStmt.ToSQL()
	if toSQLErr != nil {
		return "", errors.Join(journal.ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}

func (j *Journal) buildDeleteSnapshotQuery(projectionType string, filterHash string) (sqlQueryString, error) {
	deleteStmt := goqu.Dialect(dialectPostgres).
		Delete(j.snapshotTableName).
		Where(
			goqu.C(colProjectionType).Eq(projectionType),
			goqu.C(colFilterHash).Eq(filterHash),
		)

	sqlQuery, _, toSQLErr := deleteStmt.ToSQL()
	if toSQLErr != nil {
		return "", errors.Join(journal.ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}
