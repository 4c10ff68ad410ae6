// Package shell contains the application services for the rewards ledger:
// the imperative shell around the functional core in the ledger package.
//
// It converts between ledger events and journal entries, carries the
// observability helpers shared by all command and query handlers, and
// provides retry with exponential backoff for optimistic concurrency
// conflicts.
package shell
