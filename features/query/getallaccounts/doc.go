// Package getallaccounts implements the Get All Accounts query use case.
//
// This feature provides a pure query operation that returns every account currently
// holding a record, with its balance and work counter. It follows the Query-Project
// pattern without any command processing or event generation.
//
// The query returns an AllAccounts struct containing the account list sorted by
// account id and the total count. Accounts whose accumulation has been claimed are
// not part of the view.
//
// This is a read-only operation that projects the current state from the event history
// without modifying any data or generating new events.
package getallaccounts
