// Package adapters provides database adapter implementations for the PostgreSQL journal.
//
// This package implements the adapter pattern to support multiple PostgreSQL database libraries:
// pgx.Pool, sql.DB, and sqlx.DB. All adapters provide equivalent functionality through
// a common DBAdapter interface, allowing the journal to work seamlessly with any
// supported database connection type.
//
// The pgx adapter additionally supports an optional read replica. Queries are routed
// to the replica only when the caller opted into eventual consistency through the
// request context, all other operations go to the primary.
package adapters
