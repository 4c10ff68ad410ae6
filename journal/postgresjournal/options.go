package postgresjournal

import (
	"github.com/accrualworks/reward-ledger-go/journal"
)

// Option defines a functional option for configuring a Journal.
type Option func(*Journal) error

// WithTableName sets the table name the Journal appends entries to and queries from.
func WithTableName(tableName string) Option {
	return func(j *Journal) error {
		if tableName == "" {
			return journal.ErrEmptyTableNameSupplied
		}

		j.entryTableName = tableName

		return nil
	}
}

// WithSnapshotTableName sets the table name the Journal stores projection snapshots in.
func WithSnapshotTableName(tableName string) Option {
	return func(j *Journal) error {
		if tableName == "" {
			return journal.ErrEmptyTableNameSupplied
		}

		j.snapshotTableName = tableName

		return nil
	}
}

// WithLogger sets the logger for the Journal.
// The logger will receive messages at different levels based on the logger's configured level:
//
// Debug level: SQL queries with execution timing (development use)
// Info level: Entry counts, durations, concurrency conflicts (production-safe)
// Warn level: Non-critical issues like cleanup failures
// Error level: Critical failures that cause operation failures.
func WithLogger(logger journal.Logger) Option {
	return func(j *Journal) error {
		j.logger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the Journal.
// The metrics collector will receive performance and operational metrics including
// query/append durations, entry counts, concurrency conflicts, and database errors.
func WithMetrics(collector journal.MetricsCollector) Option {
	return func(j *Journal) error {
		j.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the Journal.
// The tracing collector will receive distributed tracing information including
// span creation for query/append operations, context propagation, and error tracking.
func WithTracing(collector journal.TracingCollector) Option {
	return func(j *Journal) error {
		j.tracingCollector = collector
		return nil
	}
}

// WithContextualLogger sets the contextual logger for the Journal.
// The contextual logger will receive log messages with context information including
// automatic trace/span correlation when tracing is enabled.
// When both loggers are configured, the contextual logger takes precedence.
func WithContextualLogger(logger journal.ContextualLogger) Option {
	return func(j *Journal) error {
		j.contextualLogger = logger
		return nil
	}
}
