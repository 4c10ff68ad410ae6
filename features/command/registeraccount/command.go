package registeraccount

import (
	"errors"
	"time"

	"github.com/accrualworks/reward-ledger-go/ledger"
)

const (
	commandType = "RegisterAccount"
)

// ErrEmptyAccountID is returned by BuildCommand when the account id is empty.
var ErrEmptyAccountID = errors.New("account id must not be empty")

// Command represents the intent to register a new reward account.
// It encapsulates all the necessary information required to execute the register account use case.
type Command struct {
	AccountID  ledger.AccountID
	Worked     ledger.WorkCounter
	OccurredAt ledger.OccurredAtTS
}

// CommandType returns the type identifier for this command, used for observability and routing.
func (c Command) CommandType() string {
	return commandType
}

// BuildCommand creates a new Command with the provided parameters.
// An empty account id is rejected here: an empty predicate value would be
// dropped from the event filter and widen the scope to every account.
func BuildCommand(
	accountID ledger.AccountID,
	worked ledger.WorkCounter,
	occurredAt time.Time,
) (Command, error) {

	if accountID == "" {
		return Command{}, ErrEmptyAccountID
	}

	return Command{
		AccountID:  accountID,
		Worked:     worked,
		OccurredAt: ledger.ToOccurredAt(occurredAt),
	}, nil
}
