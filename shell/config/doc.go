// Package config provides database configuration helpers for PostgreSQL connections
// for the rewards ledger.
//
// This package contains factory functions for creating database connections
// using different PostgreSQL drivers (pgx.Pool, sql.DB, sqlx.DB) with
// pre-configured test and benchmark database DSNs. Each DSN can be overridden
// through an environment variable for non-local setups.
//
// This package is part of the shell (infrastructure) layer, providing
// database connection configuration for the event sourcing system.
package config
