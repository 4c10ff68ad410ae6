// Package postgresjournal provides a PostgreSQL implementation of the journal interface.
//
// This package implements dynamic journal scopes using PostgreSQL as the storage backend,
// supporting multiple database adapters (pgx, sql.DB, sqlx) with atomic operations
// and concurrency control.
//
// Key features:
//   - Multiple database adapter support (PGX, SQL, SQLX)
//   - Optional read replica routing for eventually consistent queries
//   - Atomic entry appending with concurrency conflict detection
//   - Dynamic scope filtering with JSON predicate support
//   - Projection snapshot storage with monotonic sequence upserts
//   - Configurable table names, logging, metrics and tracing
//
// Usage examples:
//
//	// Basic usage
//	db, _ := pgxpool.New(context.Background(), dsn)
//	store, _ := postgresjournal.NewJournalFromPGXPool(db)
//
//	// With operational logging (production-safe)
//	store, _ := postgresjournal.NewJournalFromPGXPool(
//		db,
//		postgresjournal.WithTableName("ledger_events"),
//		postgresjournal.WithLogger(logger),
//	)
//
//	// With a read replica for eventually consistent queries
//	store, _ := postgresjournal.NewJournalFromPGXPoolAndReplica(db, replica)
//
//	entries, maxSeq, _ := store.Query(ctx, filter)
//	err := store.Append(ctx, filter, maxSeq, newEntry)
package postgresjournal
