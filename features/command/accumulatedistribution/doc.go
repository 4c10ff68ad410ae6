// Package accumulatedistribution implements the Accumulate Distribution use case.
//
// This feature credits the rewards of one submission to the receiving
// accounts: a submission id paired with a distribution of amount deltas per
// account. It follows the Query-Replay-Decide-Append pattern with proper
// separation between infrastructure concerns (CommandHandler) and the pure
// core decision in the ledger package.
//
// A submission id is credited at most once; replaying the same id is
// rejected as a duplicate. Accounts do not have to be registered to receive
// rewards, a distribution creates the missing records when its event is
// applied. A distribution that would push any account's balance over the
// representable maximum is rejected as a whole, no partial credit happens.
package accumulatedistribution
