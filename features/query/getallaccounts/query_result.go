package getallaccounts

import (
	"github.com/accrualworks/reward-ledger-go/ledger"
)

// AccountInfo represents one account's current accumulation within the full ledger view.
type AccountInfo struct {
	AccountID ledger.AccountID
	Balance   ledger.Amount
	Worked    ledger.WorkCounter
}

// AllAccounts represents the query result containing every account currently holding a record.
type AllAccounts struct {
	Accounts       []AccountInfo
	Count          int
	SequenceNumber uint
}

// GetSequenceNumber returns the sequence number of the last event in the event history that was used to build the projection.
func (r AllAccounts) GetSequenceNumber() uint {
	return r.SequenceNumber
}
