package postgresjournal

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/accrualworks/reward-ledger-go/journal"
)

const (
	metricQueryDuration        = "journal_query_duration_seconds"
	metricAppendDuration       = "journal_append_duration_seconds"
	metricSnapshotDuration     = "journal_snapshot_duration_seconds"
	metricEntriesQueried       = "journal_entries_queried_total"
	metricEntriesAppended      = "journal_entries_appended_total"
	metricDatabaseErrors       = "journal_database_errors_total"
	metricConcurrencyConflicts = "journal_concurrency_conflicts_total"

	spanNameQuery  = "journal.query"
	spanNameAppend = "journal.append"

	spanAttrOperation    = "operation"
	spanAttrErrorType    = "error_type"
	spanAttrEntryCount   = "entry_count"
	spanAttrMaxSequence  = "max_sequence_number"
	spanAttrDurationMS   = "duration_ms"
	spanAttrExpectedSeq  = "expected_sequence_number"
	spanAttrEventType    = "event_type"
	spanAttrRowsAffected = "rows_affected"

	operationQuery          = "query"
	operationAppend         = "append"
	operationSnapshotSave   = "snapshot_save"
	operationSnapshotLoad   = "snapshot_load"
	operationSnapshotDelete = "snapshot_delete"

	statusSuccess = "success"
	statusError   = "error"

	errorTypeBuildQuery          = "build_query"
	errorTypeDatabaseQuery       = "database_query"
	errorTypeDatabaseAppend      = "database_append"
	errorTypeScanRow             = "scan_row"
	errorTypeConcurrencyConflict = "concurrency_conflict"
)

// logQueryWithDuration logs SQL queries with execution time at debug level.
// The contextual logger is preferred when both loggers are configured.
func (j *Journal) logQueryWithDuration(
	ctx context.Context,
	sqlQuery string,
	action string,
	duration time.Duration,
) {
	if j.contextualLogger != nil {
		j.contextualLogger.DebugContext(ctx, logMsgSQLExecuted+action, logAttrDurationMS, j.toMilliseconds(duration), logAttrQuery, sqlQuery)
		return
	}

	if j.logger != nil {
		j.logger.Debug(logMsgSQLExecuted+action, logAttrDurationMS, j.toMilliseconds(duration), logAttrQuery, sqlQuery)
	}
}

// logOperation logs operational information at info level.
// The contextual logger is preferred when both loggers are configured.
func (j *Journal) logOperation(ctx context.Context, action string, args ...any) {
	if j.contextualLogger != nil {
		j.contextualLogger.InfoContext(ctx, logMsgOperation+action, args...)
		return
	}

	if j.logger != nil {
		j.logger.Info(logMsgOperation+action, args...)
	}
}

// logWarn logs non-critical issues at warn level.
func (j *Journal) logWarn(ctx context.Context, message string, err error) {
	if j.contextualLogger != nil {
		j.contextualLogger.WarnContext(ctx, message, logAttrError, err.Error())
		return
	}

	if j.logger != nil {
		j.logger.Warn(message, logAttrError, err.Error())
	}
}

// logError logs error information at error level.
// The contextual logger is preferred when both loggers are configured.
func (j *Journal) logError(
	ctx context.Context,
	message string,
	err error,
	args ...any,
) {
	allArgs := []any{logAttrError, err.Error()}
	allArgs = append(allArgs, args...)

	if j.contextualLogger != nil {
		j.contextualLogger.ErrorContext(ctx, message, allArgs...)
		return
	}

	if j.logger != nil {
		j.logger.Error(message, allArgs...)
	}
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func (j *Journal) toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

// recordErrorMetricsContext records error metrics with context if the collector supports it.
func (j *Journal) recordErrorMetricsContext(ctx context.Context, operation, errorType string) {
	if j.metricsCollector != nil {
		labels := map[string]string{
			spanAttrOperation: operation,
			"status":          statusError,
			spanAttrErrorType: errorType,
		}

		// Use context-aware method if available
		if contextualCollector, ok := j.metricsCollector.(journal.ContextualMetricsCollector); ok {
			contextualCollector.IncrementCounterContext(ctx, metricDatabaseErrors, labels)
		} else {
			j.metricsCollector.IncrementCounter(metricDatabaseErrors, labels)
		}
	}
}

// recordDurationMetricsContext records duration metrics with context if the collector supports it.
func (j *Journal) recordDurationMetricsContext(
	ctx context.Context,
	metricName string,
	duration time.Duration,
	operation, status string,
) {
	if j.metricsCollector != nil {
		labels := map[string]string{
			spanAttrOperation: operation,
			"status":          status,
		}

		// Use context-aware method if available
		if contextualCollector, ok := j.metricsCollector.(journal.ContextualMetricsCollector); ok {
			contextualCollector.RecordDurationContext(ctx, metricName, duration, labels)
		} else {
			j.metricsCollector.RecordDuration(metricName, duration, labels)
		}
	}
}

// recordValueMetricsContext records value metrics with context if the collector supports it.
func (j *Journal) recordValueMetricsContext(
	ctx context.Context,
	metricName string,
	value float64,
	operation,
	status string,
) {
	if j.metricsCollector != nil {
		labels := map[string]string{
			spanAttrOperation: operation,
			"status":          status,
		}

		// Use context-aware method if available
		if contextualCollector, ok := j.metricsCollector.(journal.ContextualMetricsCollector); ok {
			contextualCollector.RecordValueContext(ctx, metricName, value, labels)
		} else {
			j.metricsCollector.RecordValue(metricName, value, labels)
		}
	}
}

// recordConcurrencyConflictMetrics records concurrency conflict metrics if the metrics collector is configured.
func (j *Journal) recordConcurrencyConflictMetrics(operation string) {
	if j.metricsCollector != nil {
		labels := map[string]string{
			spanAttrOperation: operation,
			"conflict_type":   "concurrency",
		}
		j.metricsCollector.IncrementCounter(metricConcurrencyConflicts, labels)
	}
}

// startTraceSpan starts a tracing span if the tracing collector is configured.
func (j *Journal) startTraceSpan(
	ctx context.Context,
	operation string,
	attrs map[string]string,
) (context.Context, journal.SpanContext) {
	if j.tracingCollector != nil {
		return j.tracingCollector.StartSpan(ctx, operation, attrs)
	}

	return ctx, nil
}

// finishTraceSpan finishes a tracing span if the tracing collector is configured.
func (j *Journal) finishTraceSpan(
	spanCtx journal.SpanContext,
	status string,
	attrs map[string]string,
) {
	if j.tracingCollector != nil && spanCtx != nil {
		j.tracingCollector.FinishSpan(spanCtx, status, attrs)
	}
}

// startQuerySpan starts a tracing span for query operations.
func (j *Journal) startQuerySpan(ctx context.Context) (context.Context, journal.SpanContext) {
	spanAttrs := map[string]string{
		spanAttrOperation: operationQuery,
	}

	return j.startTraceSpan(ctx, spanNameQuery, spanAttrs)
}

// finishQuerySpanSuccess finishes a successful query span with results.
func (j *Journal) finishQuerySpanSuccess(
	span journal.SpanContext,
	entries journal.Entries,
	maxSequenceNumber journal.MaxSequenceNumberUint,
	duration time.Duration,
) {
	if span != nil {
		span.SetStatus(statusSuccess)
		if entries != nil {
			span.AddAttribute(spanAttrEntryCount, fmt.Sprintf("%d", len(entries)))
		}
		span.AddAttribute(spanAttrMaxSequence, fmt.Sprintf("%d", maxSequenceNumber))
		span.AddAttribute(spanAttrDurationMS, fmt.Sprintf("%.2f", float64(duration.Nanoseconds())/1e6))
	}

	attrs := map[string]string{
		spanAttrMaxSequence: fmt.Sprintf("%d", maxSequenceNumber),
	}

	if entries != nil {
		attrs[spanAttrEntryCount] = fmt.Sprintf("%d", len(entries))
	}

	j.finishTraceSpan(span, statusSuccess, attrs)
}

// finishQuerySpanError finishes a query span with error details.
func (j *Journal) finishQuerySpanError(
	span journal.SpanContext,
	errorType string,
	duration time.Duration,
) {
	if span != nil {
		span.SetStatus(statusError)
		span.AddAttribute(spanAttrErrorType, errorType)

		if duration > 0 {
			span.AddAttribute(spanAttrDurationMS, fmt.Sprintf("%.2f", float64(duration.Nanoseconds())/1e6))
		}
	}

	j.finishTraceSpan(span, statusError, map[string]string{spanAttrErrorType: errorType})
}

// startAppendSpan starts a tracing span for append operations.
func (j *Journal) startAppendSpan(
	ctx context.Context,
	allEntries journal.Entries,
	expectedMaxSequenceNumber journal.MaxSequenceNumberUint,
) (context.Context, journal.SpanContext) {
	spanAttrs := map[string]string{
		spanAttrOperation:   operationAppend,
		spanAttrEntryCount:  fmt.Sprintf("%d", len(allEntries)),
		spanAttrExpectedSeq: fmt.Sprintf("%d", expectedMaxSequenceNumber),
	}

	if len(allEntries) > 0 {
		spanAttrs[spanAttrEventType] = allEntries[0].EventType
	}

	return j.startTraceSpan(ctx, spanNameAppend, spanAttrs)
}

// finishAppendSpanSuccess finishes a successful append span with results.
func (j *Journal) finishAppendSpanSuccess(
	span journal.SpanContext,
	rowsAffected int64,
	duration time.Duration,
) {
	if span != nil {
		span.SetStatus(statusSuccess)
		span.AddAttribute(spanAttrRowsAffected, fmt.Sprintf("%d", rowsAffected))
		span.AddAttribute(spanAttrDurationMS, fmt.Sprintf("%.2f", float64(duration.Nanoseconds())/1e6))
	}

	j.finishTraceSpan(span, statusSuccess, map[string]string{
		spanAttrRowsAffected: fmt.Sprintf("%d", rowsAffected),
	})
}

// finishAppendSpanError finishes an append span with error details.
func (j *Journal) finishAppendSpanError(
	span journal.SpanContext,
	errorType string,
	additionalAttrs map[string]string,
) {
	if span != nil {
		span.SetStatus(statusError)
		span.AddAttribute(spanAttrErrorType, errorType)
		for key, value := range additionalAttrs {
			span.AddAttribute(key, value)
		}
	}

	attrs := map[string]string{spanAttrErrorType: errorType}
	for key, value := range additionalAttrs {
		attrs[key] = value
	}

	j.finishTraceSpan(span, statusError, attrs)
}

// === Tracing Observer Pattern ===
// These observers simplify tracing span management by encapsulating lifecycle complexity.

// queryTracingObserver encapsulates tracing span lifecycle management for query operations.
type queryTracingObserver struct {
	j    *Journal
	span journal.SpanContext
}

// appendTracingObserver encapsulates tracing span lifecycle management for append operations.
type appendTracingObserver struct {
	j    *Journal
	span journal.SpanContext
}

// startQueryTracing creates a new tracing observer for query operations.
func (j *Journal) startQueryTracing(ctx context.Context) (*queryTracingObserver, context.Context) {
	newCtx, span := j.startQuerySpan(ctx)

	return &queryTracingObserver{
		j:    j,
		span: span,
	}, newCtx
}

// startAppendTracing creates a new tracing observer for append operations.
func (j *Journal) startAppendTracing(
	ctx context.Context,
	entries journal.Entries,
	expectedMaxSequenceNumber journal.MaxSequenceNumberUint,
) (*appendTracingObserver, context.Context) {

	newCtx, span := j.startAppendSpan(ctx, entries, expectedMaxSequenceNumber)

	return &appendTracingObserver{
		j:    j,
		span: span,
	}, newCtx
}

// finishError completes the query tracing span with error details.
func (qto *queryTracingObserver) finishError(errorType string, duration time.Duration) {
	if qto.span == nil {
		return
	}

	qto.j.finishQuerySpanError(qto.span, errorType, duration)
}

// finishSuccess completes the query tracing span for successful operations.
func (qto *queryTracingObserver) finishSuccess(
	entries journal.Entries,
	maxSequenceNumber journal.MaxSequenceNumberUint,
	duration time.Duration,
) {
	if qto.span == nil {
		return
	}

	qto.j.finishQuerySpanSuccess(qto.span, entries, maxSequenceNumber, duration)
}

// finishError completes the append operation's tracing span with error details.
func (ato *appendTracingObserver) finishError(errorType string, duration time.Duration) {
	if ato.span == nil {
		return
	}

	// For append operations, we may need additional attributes
	var attrs map[string]string
	if duration > 0 {
		attrs = map[string]string{
			spanAttrDurationMS: ato.formatDuration(duration),
		}
	}

	ato.j.finishAppendSpanError(ato.span, errorType, attrs)
}

// finishErrorWithAttrs completes the append operation's tracing span with error details and additional attributes.
func (ato *appendTracingObserver) finishErrorWithAttrs(errorType string, attrs map[string]string) {
	if ato.span == nil {
		return
	}

	ato.j.finishAppendSpanError(ato.span, errorType, attrs)
}

// finishSuccess completes the append operation's tracing span for successful operations.
func (ato *appendTracingObserver) finishSuccess(rowsAffected int64, duration time.Duration) {
	if ato.span == nil {
		return
	}

	ato.j.finishAppendSpanSuccess(ato.span, rowsAffected, duration)
}

// formatDuration formats duration for span attributes using the Journal's helper.
func (ato *appendTracingObserver) formatDuration(duration time.Duration) string {
	return fmt.Sprintf("%.2f", ato.j.toMilliseconds(duration))
}

// === Metrics Observer Pattern ===
// These observers simplify the metrics collection by encapsulating recording complexity.

// queryMetricsObserver encapsulates the metrics collection for query operations.
type queryMetricsObserver struct {
	j   *Journal
	ctx context.Context
}

// appendMetricsObserver encapsulates the metrics collection for append operations.
type appendMetricsObserver struct {
	j   *Journal
	ctx context.Context
}

// startQueryMetrics creates a new metrics observer for query operations.
func (j *Journal) startQueryMetrics(ctx context.Context) *queryMetricsObserver {
	return &queryMetricsObserver{
		j:   j,
		ctx: ctx,
	}
}

// startAppendMetrics creates a new metrics observer for append operations.
func (j *Journal) startAppendMetrics(ctx context.Context) *appendMetricsObserver {
	return &appendMetricsObserver{
		j:   j,
		ctx: ctx,
	}
}

// recordSuccess records all metrics for a successful query operation.
func (qmo *queryMetricsObserver) recordSuccess(entries journal.Entries, duration time.Duration) {
	qmo.j.recordDurationMetricsContext(qmo.ctx, metricQueryDuration, duration, operationQuery, statusSuccess)

	entryCount := float64(0)
	if entries != nil {
		entryCount = float64(len(entries))
	}

	qmo.j.recordValueMetricsContext(qmo.ctx, metricEntriesQueried, entryCount, operationQuery, statusSuccess)
}

// recordError records all metrics for a failed query operation.
func (qmo *queryMetricsObserver) recordError(errorType string, duration time.Duration) {
	qmo.j.recordDurationMetricsContext(qmo.ctx, metricQueryDuration, duration, operationQuery, statusError)
	qmo.j.recordErrorMetricsContext(qmo.ctx, operationQuery, errorType)
}

// recordSuccess records all metrics for a successful append operation.
func (amo *appendMetricsObserver) recordSuccess(entryCount int, duration time.Duration) {
	amo.j.recordDurationMetricsContext(amo.ctx, metricAppendDuration, duration, operationAppend, statusSuccess)
	amo.j.recordValueMetricsContext(amo.ctx, metricEntriesAppended, float64(entryCount), operationAppend, statusSuccess)
}

// recordError records all metrics for a failed append operation.
func (amo *appendMetricsObserver) recordError(errorType string, duration time.Duration) {
	amo.j.recordDurationMetricsContext(amo.ctx, metricAppendDuration, duration, operationAppend, statusError)
	amo.j.recordErrorMetricsContext(amo.ctx, operationAppend, errorType)
}

// recordConcurrencyConflict records metrics for concurrency conflicts during append operations.
func (amo *appendMetricsObserver) recordConcurrencyConflict() {
	amo.j.recordConcurrencyConflictMetrics(operationAppend)
}
