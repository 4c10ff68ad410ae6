// Package journal provides core abstractions and types for the append-only
// reward journal with dynamic, filter-scoped consistency boundaries.
//
// This package defines the fundamental interfaces and types used across the
// journal engine implementations, including filters, entries, snapshots and
// common error definitions.
//
// The journal supports dynamic filtering of entries based on:
//   - Event types
//   - JSON payload predicates (scalar fields and array membership)
//   - Time ranges (occurred from/until)
//   - Sequence number lower bounds (for incremental projections)
//
// Key types:
//   - Filter: Defines criteria for querying entries
//   - Entry: Represents a ledger event in its storable form
//   - Snapshot: Captured projection state for incremental updates
//
// Common usage pattern:
//
//	filter := journal.BuildEventFilter().
//		Matching().
//		AnyEventTypeOf(
//			ledger.AccountAddedEventType,
//			ledger.AccumulatedClaimedEventType).
//		AndAnyPredicateOf(journal.P("AccountID", accountID)).
//		Finalize()
//
//	entries, maxSeq, err := store.Query(ctx, filter)
//	if err != nil {
//		// handle error
//	}
//
//	err = store.Append(ctx, filter, maxSeq, newEntry)
package journal
