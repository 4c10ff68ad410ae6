package claimaccumulated

import (
	"errors"
	"time"

	"github.com/accrualworks/reward-ledger-go/ledger"
)

const (
	commandType = "ClaimAccumulated"
)

// ErrEmptyAccountID is returned by BuildCommand when the account id is empty.
var ErrEmptyAccountID = errors.New("account id must not be empty")

// Command represents the intent to withdraw an account's accumulated rewards.
// It encapsulates all the necessary information required to execute the claim use case.
type Command struct {
	AccountID  ledger.AccountID
	OccurredAt ledger.OccurredAtTS
}

// CommandType returns the type identifier for this command, used for observability and routing.
func (c Command) CommandType() string {
	return commandType
}

// BuildCommand creates a new Command with the provided parameters.
// An empty account id is rejected here: an empty predicate value would be
// dropped from the event filter and widen the scope to every account.
func BuildCommand(accountID ledger.AccountID, occurredAt time.Time) (Command, error) {
	if accountID == "" {
		return Command{}, ErrEmptyAccountID
	}

	return Command{
		AccountID:  accountID,
		OccurredAt: ledger.ToOccurredAt(occurredAt),
	}, nil
}
