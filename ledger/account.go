package ledger

// AccountRecord is the per-account state: the claimable balance and the work
// counter reported when the account was registered. A record exists from
// registration (or first accumulation) until the account's rewards are
// claimed; claiming removes it entirely.
type AccountRecord struct {
	Balance Amount
	Worked  WorkCounter
}

// Distribution maps accounts to the balance deltas of one submission.
// Building the map collapses duplicate account ids; the last delta wins.
type Distribution = map[AccountID]Amount
