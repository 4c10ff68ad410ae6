package journal

import (
	"context"
)

// ConsistencyLevel defines the consistency requirements for journal queries.
type ConsistencyLevel int

const (
	// StrongConsistency requires reading from the primary database to ensure
	// read-after-write consistency. Use this when the result feeds a command
	// decision, where stale data could lead to incorrect business outcomes.
	StrongConsistency ConsistencyLevel = iota

	// EventualConsistency allows reading from replica databases which may have
	// replication lag. Use this for queries where slightly stale data
	// is acceptable in exchange for better performance and load distribution.
	EventualConsistency
)

type contextKey string

// ConsistencyLevelKey is the context key used to store consistency level preferences.
const ConsistencyLevelKey contextKey = "journal.consistency_level"

// WithStrongConsistency returns a context that requests strong consistency for queries.
// Queries with this context will read from the primary database.
func WithStrongConsistency(ctx context.Context) context.Context {
	return context.WithValue(ctx, ConsistencyLevelKey, StrongConsistency)
}

// WithEventualConsistency returns a context that allows eventual consistency for queries.
// Queries with this context may read from replica databases with potential replication lag.
func WithEventualConsistency(ctx context.Context) context.Context {
	return context.WithValue(ctx, ConsistencyLevelKey, EventualConsistency)
}

// WithDefaultEventualConsistency returns a context that allows eventual
// consistency unless the caller already chose a level. Pure query handlers
// use this, so an explicit caller preference always wins.
func WithDefaultEventualConsistency(ctx context.Context) context.Context {
	if _, ok := ctx.Value(ConsistencyLevelKey).(ConsistencyLevel); ok {
		return ctx
	}

	return WithEventualConsistency(ctx)
}

// GetConsistencyLevel extracts the consistency level from the context.
// Returns StrongConsistency as the safe default if no level is specified.
func GetConsistencyLevel(ctx context.Context) ConsistencyLevel {
	if level, ok := ctx.Value(ConsistencyLevelKey).(ConsistencyLevel); ok {
		return level
	}

	return StrongConsistency
}

// String returns a human-readable representation of the consistency level.
func (c ConsistencyLevel) String() string {
	switch c {
	case StrongConsistency:
		return "strong"
	case EventualConsistency:
		return "eventual"
	default:
		return "unknown"
	}
}
