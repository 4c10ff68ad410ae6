// Package claimaccumulated implements the Claim Accumulated use case.
//
// This feature withdraws everything an account has accumulated. The emitted
// event carries the complete record (balance and work counter) as it stood
// at claim time, and applying the event removes the account from the ledger.
// It follows the Query-Replay-Decide-Append pattern with proper separation
// between infrastructure concerns (CommandHandler) and the pure core
// decision in the ledger package.
//
// Claiming an unknown or already claimed account is rejected. After a claim
// the account id is free again and may be re-registered.
package claimaccumulated
