package getaccount

import (
	"github.com/accrualworks/reward-ledger-go/journal"
	"github.com/accrualworks/reward-ledger-go/ledger"
)

// Project implements the query logic to determine one account's current accumulation.
// This is a pure function with no side effects - it takes the account's event history and optionally
// a base projection to build upon, returning the projected view of the account.
//
// The account's history is a scoped stream: accumulations shared with other
// accounts appear in it while those accounts' own events do not, so the fold
// tracks only the queried account and skips everything foreign.
//
// Query Logic:
//
//	GIVEN: All events affecting the account (or incremental events since base projection)
//	WHEN: GetAccount query is executed
//	THEN: AccountView struct is returned with the account's current balance and work counter
//	INCLUDES: Accounts created through registration or through accumulation alone
//	EXCLUDES: Accounts whose accumulation has been claimed (Exists is false)
func Project(history ledger.Events, query Query, maxSequence uint, base ...AccountView) AccountView {
	view := AccountView{AccountID: query.AccountID}

	if len(base) > 0 {
		view = base[0] // Start from an existing projection (incremental update)
	}

	for _, event := range history {
		switch e := event.(type) {
		case ledger.AccountAdded:
			if e.AccountID == query.AccountID {
				view.Balance = 0
				view.Worked = e.Worked
				view.Exists = true
			}

		case ledger.AmountsAccumulated:
			delta, affected := e.Distribution[query.AccountID]
			if !affected {
				continue
			}

			balance, err := view.Balance.Add(delta)
			if err != nil {
				continue // appended accumulations passed command validation, they never overflow
			}

			view.Balance = balance
			view.Exists = true

		case ledger.AccumulatedClaimed:
			if e.AccountID == query.AccountID {
				view = AccountView{AccountID: query.AccountID}
			}
		}
	}

	view.SequenceNumber = maxSequence

	return view
}

// BuildEventFilter creates the filter for querying all events which are relevant
// for the given account. The scope matches the command-side account scope, so the
// view reflects exactly the history those commands validate against. Accounts can
// exist through accumulation alone, and AmountsAccumulated events carry their
// accounts in the AccountIDs array, so the scope matches on array membership as well.
func BuildEventFilter(accountID ledger.AccountID) journal.Filter {
	return journal.BuildEventFilter().
		Matching().
		AnyEventTypeOf(
			ledger.AccountAddedEventType,
			ledger.AccumulatedClaimedEventType,
		).
		AndAnyPredicateOf(
			journal.P("AccountID", accountID),
		).
		OrMatching().
		AnyEventTypeOf(
			ledger.AmountsAccumulatedEventType,
		).
		AndAnyPredicateOf(
			journal.PAnyElement("AccountIDs", accountID),
		).
		Finalize()
}
