// Package registeraccount implements the Register Account use case.
//
// This feature registers a new reward account under a caller-chosen id, with
// an initial work counter and a zero balance. It follows the
// Query-Replay-Decide-Append pattern with proper separation between
// infrastructure concerns (CommandHandler) and the pure core decision in the
// ledger package.
//
// Registration is rejected when the account currently exists, whether it was
// registered explicitly or created implicitly by a reward distribution.
// Claiming removes the record completely, so a claimed account id may
// register again.
package registeraccount
