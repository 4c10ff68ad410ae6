// Package ledger implements the reward accounting core: an in-memory state
// of processed submissions and account balances, pure command handlers that
// validate proposed changes, and the event applier that folds accepted
// events into new state.
//
// Commands never mutate; they return an event or a typed failure. Apply is
// the single mutation path and trusts its input: every event reaching it was
// validated by the matching command (and, in the full system, journaled
// before being folded). De-duplication of submissions is the load-bearing
// rule: a submission id that was processed once is never accepted again,
// so any unit of completed work is paid out at most once across restarts
// and replays.
package ledger
