package getallaccounts

import (
	"slices"
	"strings"

	"github.com/accrualworks/reward-ledger-go/journal"
	"github.com/accrualworks/reward-ledger-go/ledger"
)

// Project implements the query logic to determine every account currently holding a record.
// This is a pure function with no side effects - it takes the complete event history and optionally
// a base projection to build upon, returning the projected state of the whole ledger.
//
// Unlike the account-scoped views, this projection folds the complete stream,
// so it can delegate the fold to the ledger core itself.
//
// Query Logic:
//
//	GIVEN: All events in the system (or incremental events since base projection)
//	WHEN: GetAllAccounts query is executed
//	THEN: AllAccounts struct is returned with the current ledger state
//	INCLUDES: Accounts created through registration or through accumulation alone
//	EXCLUDES: Accounts whose accumulation has been claimed
func Project(history ledger.Events, _ Query, maxSequence uint, base ...AllAccounts) AllAccounts {
	var led *ledger.Ledger

	if len(base) > 0 {
		// Start from an existing projection (incremental update). The view
		// never reads the processed table, so the restore can leave it empty.
		led = ledger.RestoreLedger(nil, convertAccountsToMap(base[0].Accounts))
		for _, event := range history {
			led.Apply(event)
		}
	} else {
		led = ledger.Replay(history) // Start fresh (full projection)
	}

	accounts := led.GetAll()

	accountList := make([]AccountInfo, 0, len(accounts))
	for accountID, record := range accounts {
		accountList = append(accountList, AccountInfo{
			AccountID: accountID,
			Balance:   record.Balance,
			Worked:    record.Worked,
		})
	}
	slices.SortFunc(accountList, func(a, b AccountInfo) int {
		return strings.Compare(a.AccountID, b.AccountID)
	})

	return AllAccounts{
		Accounts:       accountList,
		Count:          len(accountList),
		SequenceNumber: maxSequence,
	}
}

// BuildEventFilter creates the filter for this query. The ledger view folds
// every event type, so the scope is the complete stream.
func BuildEventFilter() journal.Filter {
	return journal.BuildEventFilter().
		MatchingAnyEvent()
}

// convertAccountsToMap converts a slice of AccountInfo back into the ledger's account table.
// This is used when starting from a base projection for incremental updates.
func convertAccountsToMap(accounts []AccountInfo) map[ledger.AccountID]ledger.AccountRecord {
	records := make(map[ledger.AccountID]ledger.AccountRecord, len(accounts))
	for _, account := range accounts {
		records[account.AccountID] = ledger.AccountRecord{
			Balance: account.Balance,
			Worked:  account.Worked,
		}
	}

	return records
}
