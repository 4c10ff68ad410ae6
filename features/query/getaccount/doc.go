// Package getaccount implements the Get Account query use case.
//
// This feature provides a pure query operation that returns the current accumulation
// state of a single account. It follows the Query-Project pattern without any command
// processing or event generation.
//
// The query returns an AccountView struct containing the account's balance, its work
// counter, and whether the account currently holds a record. An account that was never
// seen, or whose accumulation has been claimed, is reported with Exists set to false.
//
// This is a read-only operation that projects the current state from the event history
// without modifying any data or generating new events.
package getaccount
