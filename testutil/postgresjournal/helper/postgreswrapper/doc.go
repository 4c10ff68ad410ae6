// Package postgreswrapper provides test wrappers that abstract over the
// supported database adapters (pgx pool, database/sql, sqlx).
//
// The ADAPTER_TYPE environment variable selects the adapter ("pgx.pool",
// "sql.db" or "sqlx.db"); pgx is used when the variable is unset. This lets
// the same test suite run against every adapter without code changes.
package postgreswrapper
