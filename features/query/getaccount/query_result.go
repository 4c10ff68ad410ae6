package getaccount

import (
	"github.com/accrualworks/reward-ledger-go/ledger"
)

// AccountView represents the current accumulation state of one account.
// Exists reports whether the account currently holds a record: an account is
// absent before it is registered or first accumulated into, and again after
// its accumulation has been claimed.
type AccountView struct {
	AccountID      ledger.AccountID
	Balance        ledger.Amount
	Worked         ledger.WorkCounter
	Exists         bool
	SequenceNumber uint
}

// GetSequenceNumber returns the sequence number of the last event in the event history that was used to build the projection.
func (v AccountView) GetSequenceNumber() uint {
	return v.SequenceNumber
}
