// Package helper provides shared test helpers for journal tests and benchmarks.
//
// It contains fixture builders for ledger events, append helpers that respect
// optimistic concurrency, and spy implementations of the journal observability
// interfaces (metrics, tracing, logging) for asserting instrumentation behavior.
package helper
